package leavebalance

import (
	"errors"
	"time"

	"github.com/frahmantamala/leave-management/internal/core/leave"
	balanceDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leavebalance"
)

// LeaveBalance is the per (user, leave type, year) day counter. RemainingDays
// always equals TotalDays - UsedDays after any mutation through its methods.
type LeaveBalance struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	LeaveType     leave.Type `json:"leaveType"`
	TotalDays     int        `json:"totalDays"`
	UsedDays      int        `json:"usedDays"`
	RemainingDays int        `json:"remainingDays"`
	Year          int        `json:"year"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

var ErrBalanceNotFound = errors.New("leave balance not found")

func NewLeaveBalance(userID string, leaveType leave.Type, totalDays, year int) *LeaveBalance {
	return &LeaveBalance{
		UserID:        userID,
		LeaveType:     leaveType,
		TotalDays:     totalDays,
		UsedDays:      0,
		RemainingDays: totalDays,
		Year:          year,
	}
}

// Consume records days as used. The remainder may go negative; callers
// check Covers before accepting new requests.
func (b *LeaveBalance) Consume(days int) {
	b.UsedDays += days
	b.recompute()
}

// SetTotal overwrites the allocation and keeps the used days.
func (b *LeaveBalance) SetTotal(total int) {
	b.TotalDays = total
	b.recompute()
}

func (b *LeaveBalance) Covers(days int) bool {
	return b.RemainingDays >= days
}

func (b *LeaveBalance) recompute() {
	b.RemainingDays = b.TotalDays - b.UsedDays
}

func ToDataModel(b *LeaveBalance) *balanceDatamodel.LeaveBalance {
	return &balanceDatamodel.LeaveBalance{
		ID:            b.ID,
		UserID:        b.UserID,
		LeaveType:     string(b.LeaveType),
		TotalDays:     b.TotalDays,
		UsedDays:      b.UsedDays,
		RemainingDays: b.RemainingDays,
		Year:          b.Year,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func FromDataModel(b *balanceDatamodel.LeaveBalance) *LeaveBalance {
	return &LeaveBalance{
		ID:            b.ID,
		UserID:        b.UserID,
		LeaveType:     leave.Type(b.LeaveType),
		TotalDays:     b.TotalDays,
		UsedDays:      b.UsedDays,
		RemainingDays: b.RemainingDays,
		Year:          b.Year,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func FromDataModelSlice(balances []*balanceDatamodel.LeaveBalance) []*LeaveBalance {
	result := make([]*LeaveBalance, len(balances))
	for i, b := range balances {
		result[i] = FromDataModel(b)
	}
	return result
}
