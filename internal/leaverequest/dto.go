package leaverequest

import (
	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/core/common/validation"
	"github.com/frahmantamala/leave-management/internal/core/leave"
)

// CreateLeaveRequestDTO is the body of POST /leave-request. Dates are kept as
// strings so that parse failures surface as a single validation message.
type CreateLeaveRequestDTO struct {
	LeaveType    string `json:"leaveType"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	NumberOfDays int    `json:"numberOfDays"`
	Reason       string `json:"reason"`
}

func (d CreateLeaveRequestDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("leaveType", d.LeaveType).Required().OneOf(leave.TypeNames(), internal.ErrCodeInvalidLeaveType)
	v.Field("startDate", d.StartDate).Required()
	v.Field("endDate", d.EndDate).Required()
	v.Field("numberOfDays", d.NumberOfDays).MinInt(1, internal.ErrCodeInvalidDays).MaxInt(365, internal.ErrCodeInvalidDays)
	v.Field("reason", d.Reason).Required().MaxLength(2000)
	return v.Validate()
}

type UpdateLeaveRequestStatusDTO struct {
	Status          string  `json:"status"`
	RejectionReason *string `json:"rejectionReason,omitempty"`
}

func (d UpdateLeaveRequestStatusDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("status", d.Status).Required().
		OneOf([]string{string(leave.StatusApproved), string(leave.StatusRejected)}, internal.ErrCodeInvalidStatus)
	if d.RejectionReason != nil {
		v.Field("rejectionReason", *d.RejectionReason).MaxLength(2000)
	}
	return v.Validate()
}

func (d UpdateLeaveRequestStatusDTO) reason() string {
	if d.RejectionReason == nil {
		return ""
	}
	return *d.RejectionReason
}

// ListFilter narrows GET /leave-request/all.
type ListFilter struct {
	Status leave.Status
}

type MessageResponse struct {
	Message string `json:"message"`
}
