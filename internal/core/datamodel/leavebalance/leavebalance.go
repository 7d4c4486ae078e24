package leavebalance

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeaveBalance struct {
	ID            string    `gorm:"primaryKey;size:36"`
	UserID        string    `gorm:"column:user_id;size:36;not null;uniqueIndex:uq_leave_balance_user_type_year"`
	LeaveType     string    `gorm:"column:leave_type;size:16;not null;uniqueIndex:uq_leave_balance_user_type_year"`
	TotalDays     int       `gorm:"column:total_days;not null;default:0"`
	UsedDays      int       `gorm:"column:used_days;not null;default:0"`
	RemainingDays int       `gorm:"column:remaining_days;not null;default:0"`
	Year          int       `gorm:"column:year;not null;uniqueIndex:uq_leave_balance_user_type_year"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (LeaveBalance) TableName() string {
	return "leave_balances"
}

func (b *LeaveBalance) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
