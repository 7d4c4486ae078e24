package cmd

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/frahmantamala/leave-management/internal/core/events"
	"github.com/frahmantamala/leave-management/internal/notification"
	"github.com/frahmantamala/leave-management/pkg/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish sample leave request events to check the bus and the broker wiring`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a sample leave request event",
	Long:  `Publish a sample leave request event on the bus, forwarding it to the broker when one is configured`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishSampleEvent(cmd.Context(), args[0])
	},
}

var (
	eventUserID    string
	eventLeaveType string
	eventDays      int
)

func publishSampleEvent(ctx context.Context, eventType string) error {
	if !slices.Contains(events.LeaveRequestEventTypes, eventType) {
		return fmt.Errorf("unknown event type %q, expected one of %v", eventType, events.LeaveRequestEventTypes)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	bus := events.NewEventBus(lg)
	bus.Subscribe(eventType, func(_ context.Context, event events.Event) error {
		lg.Info("handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	if cfg.Notification.AMQPURL != "" {
		pub, err := notification.Dial(cfg.Notification.AMQPURL, cfg.Notification.Queue, lg)
		if err != nil {
			return err
		}
		defer pub.Close()
		pub.Subscribe(bus)
	}

	if eventUserID == "" {
		eventUserID = uuid.NewString()
	}
	start := time.Now().AddDate(0, 0, 7)
	status := "pending"
	switch eventType {
	case events.EventTypeLeaveRequestApproved:
		status = "approved"
	case events.EventTypeLeaveRequestRejected:
		status = "rejected"
	}

	evt := events.NewLeaveRequestEvent(eventType, eventUserID, events.LeaveRequestSnapshot{
		RequestID:    uuid.NewString(),
		UserID:       eventUserID,
		LeaveType:    eventLeaveType,
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, eventDays-1),
		NumberOfDays: eventDays,
		Status:       status,
	})

	lg.Info("publishing sample event", "event_type", eventType, "event_id", evt.EventID())
	if err := bus.PublishSync(ctx, evt); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	lg.Info("sample event published")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventUserID, "user-id", "", "owner of the sample request (random when empty)")
	publishEventCmd.Flags().StringVar(&eventLeaveType, "leave-type", "annual", "leave type of the sample request")
	publishEventCmd.Flags().IntVar(&eventDays, "days", 3, "number of days of the sample request")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
