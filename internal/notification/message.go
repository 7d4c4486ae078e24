package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/frahmantamala/leave-management/internal/core/events"
)

// Message is the JSON body put on the queue for every lifecycle event.
type Message struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurredAt"`
	Payload    map[string]interface{} `json:"payload"`
}

func NewMessage(e events.Event) Message {
	m := Message{
		ID:         e.EventID(),
		Type:       e.EventType(),
		OccurredAt: e.OccurredAt(),
	}
	if p, ok := e.Payload().(map[string]interface{}); ok {
		m.Payload = p
	}
	return m
}

func Decode(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, fmt.Errorf("unmarshal notification: %w", err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("notification %q has no type", m.ID)
	}
	return m, nil
}

func (m Message) str(key string) string {
	if v, ok := m.Payload[key].(string); ok {
		return v
	}
	return ""
}

// Recipient is the user the notification is addressed to.
func (m Message) Recipient() string {
	return m.str("user_id")
}

// Subject renders the one-line summary shown to the recipient.
func (m Message) Subject() string {
	period := fmt.Sprintf("%s to %s", m.str("start_date"), m.str("end_date"))
	switch m.Type {
	case events.EventTypeLeaveRequestCreated:
		return fmt.Sprintf("Leave request submitted for %s", period)
	case events.EventTypeLeaveRequestApproved:
		return fmt.Sprintf("Leave request for %s was approved", period)
	case events.EventTypeLeaveRequestRejected:
		if reason := m.str("rejection_reason"); reason != "" {
			return fmt.Sprintf("Leave request for %s was rejected: %s", period, reason)
		}
		return fmt.Sprintf("Leave request for %s was rejected", period)
	case events.EventTypeLeaveRequestDeleted:
		return fmt.Sprintf("Leave request for %s was deleted", period)
	default:
		return m.Type
	}
}
