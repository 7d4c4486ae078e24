package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeLeaveRequestCreated  = "leave_request.created"
	EventTypeLeaveRequestApproved = "leave_request.approved"
	EventTypeLeaveRequestRejected = "leave_request.rejected"
	EventTypeLeaveRequestDeleted  = "leave_request.deleted"
)

// LeaveRequestEventTypes lists every lifecycle event type.
var LeaveRequestEventTypes = []string{
	EventTypeLeaveRequestCreated,
	EventTypeLeaveRequestApproved,
	EventTypeLeaveRequestRejected,
	EventTypeLeaveRequestDeleted,
}

type LeaveRequestEvent struct {
	BaseEvent
	RequestID       string `json:"request_id"`
	UserID          string `json:"user_id"`
	ActorID         string `json:"actor_id"`
	LeaveType       string `json:"leave_type"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	NumberOfDays    int    `json:"number_of_days"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

type LeaveRequestSnapshot struct {
	RequestID       string
	UserID          string
	LeaveType       string
	StartDate       time.Time
	EndDate         time.Time
	NumberOfDays    int
	Status          string
	RejectionReason string
}

func NewLeaveRequestEvent(eventType, actorID string, snap LeaveRequestSnapshot) *LeaveRequestEvent {
	start := snap.StartDate.Format("2006-01-02")
	end := snap.EndDate.Format("2006-01-02")
	return &LeaveRequestEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"request_id":       snap.RequestID,
				"user_id":          snap.UserID,
				"actor_id":         actorID,
				"leave_type":       snap.LeaveType,
				"start_date":       start,
				"end_date":         end,
				"number_of_days":   snap.NumberOfDays,
				"status":           snap.Status,
				"rejection_reason": snap.RejectionReason,
			},
		},
		RequestID:       snap.RequestID,
		UserID:          snap.UserID,
		ActorID:         actorID,
		LeaveType:       snap.LeaveType,
		StartDate:       start,
		EndDate:         end,
		NumberOfDays:    snap.NumberOfDays,
		Status:          snap.Status,
		RejectionReason: snap.RejectionReason,
	}
}
