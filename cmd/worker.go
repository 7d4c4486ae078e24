package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/leave-management/internal/leavebalance"
	balancePostgres "github.com/frahmantamala/leave-management/internal/leavebalance/postgres"
	"github.com/frahmantamala/leave-management/internal/notification"
	userPostgres "github.com/frahmantamala/leave-management/internal/user/postgres"
	"github.com/frahmantamala/leave-management/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start the yearly leave balance rollover or the notification consumer`,
}

var rolloverWorkerCmd = &cobra.Command{
	Use:   "rollover",
	Short: "Seed default leave balances for every active user each new year",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRolloverWorker()
	},
}

var notificationWorkerCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Consume leave request events from the broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startNotificationWorker()
	},
}

var (
	rolloverNow         bool
	rolloverSchedule    string
	notificationWorkers int
)

func startRolloverWorker() error {
	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	s, err := openStore(config.Database)
	if err != nil {
		return err
	}
	defer s.Close()

	loc := config.Scheduler.Location()
	balances := leavebalance.NewService(balancePostgres.NewLeaveBalanceRepository(s.Gorm), lg).
		WithLocation(loc)
	rollover := leavebalance.NewRollover(balances, userPostgres.NewUserRepository(s.SQLX), lg).
		WithClock(func() time.Time { return time.Now().In(loc) })

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if rolloverNow {
		result, err := rollover.Run(ctx)
		lg.Info("rollover run complete", "year", result.Year, "balances_created", result.BalancesCreated)
		return err
	}

	spec := getStringFlag(rolloverSchedule, config.Scheduler.RolloverSchedule)
	scheduler, err := rollover.Schedule(spec, loc)
	if err != nil {
		return err
	}
	scheduler.Start()
	lg.Info("rollover worker is running", "schedule", spec, "timezone", loc.String())

	<-ctx.Done()
	lg.Info("shutting down rollover worker")
	stopped := scheduler.Stop()

	select {
	case <-stopped.Done():
		lg.Info("rollover worker shutdown complete")
	case <-time.After(30 * time.Second):
		lg.Warn("shutdown timeout reached, forcing exit")
	}
	return nil
}

func startNotificationWorker() error {
	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	if config.Notification.AMQPURL == "" {
		return errors.New("notification.amqp_url is not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := notification.NewConsumer(config.Notification.AMQPURL, config.Notification.Queue,
		notification.LogNotifier{Logger: lg}, lg).WithWorkers(notificationWorkers)

	lg.Info("notification worker is running", "queue", config.Notification.Queue, "workers", notificationWorkers)
	if err := consumer.Run(ctx); err != nil {
		return fmt.Errorf("notification consumer: %w", err)
	}
	lg.Info("notification worker shutdown complete")
	return nil
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func init() {
	rolloverWorkerCmd.Flags().BoolVar(&rolloverNow, "now", false, "run the rollover once for the current year and exit")
	rolloverWorkerCmd.Flags().StringVar(&rolloverSchedule, "schedule", "", "cron schedule (overrides config)")

	notificationWorkerCmd.Flags().IntVar(&notificationWorkers, "workers", 4, "deliveries handled concurrently")

	workerCmd.AddCommand(rolloverWorkerCmd)
	workerCmd.AddCommand(notificationWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
