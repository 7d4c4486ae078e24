package leaverequest

import (
	"errors"
	"time"

	requestDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leaverequest"
	userDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/user"
	"github.com/frahmantamala/leave-management/internal/core/events"
	"github.com/frahmantamala/leave-management/internal/core/leave"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
)

// UserSummary is the public view of the requester or approver.
type UserSummary struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	FirstName string        `json:"firstName"`
	LastName  string        `json:"lastName"`
	Role      coreUser.Role `json:"role"`
}

type LeaveRequest struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	LeaveType       leave.Type   `json:"leaveType"`
	StartDate       time.Time    `json:"startDate"`
	EndDate         time.Time    `json:"endDate"`
	NumberOfDays    int          `json:"numberOfDays"`
	Reason          string       `json:"reason"`
	Status          leave.Status `json:"status"`
	ApprovedBy      *string      `json:"approvedBy"`
	RejectionReason *string      `json:"rejectionReason"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`

	User     *UserSummary `json:"user,omitempty"`
	Approver *UserSummary `json:"approver,omitempty"`
}

var (
	ErrNotFound = errors.New("leave request not found")
	// ErrNotPending is returned by conditional status writes that lost a race.
	ErrNotPending = errors.New("leave request is no longer pending")
)

func NewLeaveRequest(userID string, leaveType leave.Type, start, end time.Time, days int, reason string) *LeaveRequest {
	now := time.Now()
	return &LeaveRequest{
		UserID:       userID,
		LeaveType:    leaveType,
		StartDate:    start,
		EndDate:      end,
		NumberOfDays: days,
		Reason:       reason,
		Status:       leave.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (r *LeaveRequest) IsPending() bool {
	return r.Status == leave.StatusPending
}

// Decide moves a pending request to status on behalf of managerID. An empty
// reason leaves RejectionReason unset.
func (r *LeaveRequest) Decide(status leave.Status, managerID, reason string) {
	r.Status = status
	r.ApprovedBy = &managerID
	if reason != "" {
		r.RejectionReason = &reason
	}
	r.UpdatedAt = time.Now()
}

func (r *LeaveRequest) Snapshot() events.LeaveRequestSnapshot {
	snap := events.LeaveRequestSnapshot{
		RequestID:    r.ID,
		UserID:       r.UserID,
		LeaveType:    string(r.LeaveType),
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		NumberOfDays: r.NumberOfDays,
		Status:       string(r.Status),
	}
	if r.RejectionReason != nil {
		snap.RejectionReason = *r.RejectionReason
	}
	return snap
}

func ToDataModel(r *LeaveRequest) *requestDatamodel.LeaveRequest {
	return &requestDatamodel.LeaveRequest{
		ID:              r.ID,
		UserID:          r.UserID,
		LeaveType:       string(r.LeaveType),
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		NumberOfDays:    r.NumberOfDays,
		Reason:          r.Reason,
		Status:          string(r.Status),
		ApprovedBy:      r.ApprovedBy,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func FromDataModel(r *requestDatamodel.LeaveRequest) *LeaveRequest {
	return &LeaveRequest{
		ID:              r.ID,
		UserID:          r.UserID,
		LeaveType:       leave.Type(r.LeaveType),
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		NumberOfDays:    r.NumberOfDays,
		Reason:          r.Reason,
		Status:          leave.Status(r.Status),
		ApprovedBy:      r.ApprovedBy,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		User:            summaryFromDataModel(r.User),
		Approver:        summaryFromDataModel(r.Approver),
	}
}

func FromDataModelSlice(rows []*requestDatamodel.LeaveRequest) []*LeaveRequest {
	result := make([]*LeaveRequest, len(rows))
	for i, r := range rows {
		result[i] = FromDataModel(r)
	}
	return result
}

func summaryFromDataModel(u *userDatamodel.User) *UserSummary {
	if u == nil || u.ID == "" {
		return nil
	}
	return &UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      coreUser.Role(u.Role),
	}
}
