package leavebalance

import (
	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/core/common/validation"
	"github.com/frahmantamala/leave-management/internal/core/leave"
)

// SetBalanceDTO is the body of PUT /leave-balance/users/{userId}.
type SetBalanceDTO struct {
	LeaveType string `json:"leaveType"`
	TotalDays *int   `json:"totalDays"`
	Year      int    `json:"year,omitempty"`
}

func (d SetBalanceDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("leaveType", d.LeaveType).Required().OneOf(leave.TypeNames(), internal.ErrCodeInvalidLeaveType)
	if d.TotalDays == nil {
		v.Field("totalDays", nil).Required()
	} else {
		v.Field("totalDays", *d.TotalDays).MinInt(0, internal.ErrCodeInvalidDays).MaxInt(366, internal.ErrCodeInvalidDays)
	}
	if d.Year != 0 {
		v.Field("year", d.Year).MinInt(2000, internal.ErrCodeInvalidYear).MaxInt(9999, internal.ErrCodeInvalidYear)
	}
	return v.Validate()
}

// InitializeBalancesDTO is the optional body of the initialize endpoint.
type InitializeBalancesDTO struct {
	Year int `json:"year,omitempty"`
}
