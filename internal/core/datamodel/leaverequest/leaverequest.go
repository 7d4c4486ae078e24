package leaverequest

import (
	"time"

	userDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeaveRequest struct {
	ID              string    `gorm:"primaryKey;size:36"`
	UserID          string    `gorm:"column:user_id;size:36;not null;index"`
	LeaveType       string    `gorm:"column:leave_type;size:16;not null"`
	StartDate       time.Time `gorm:"column:start_date;type:date;not null"`
	EndDate         time.Time `gorm:"column:end_date;type:date;not null"`
	NumberOfDays    int       `gorm:"column:number_of_days;not null"`
	Reason          string    `gorm:"column:reason;type:text;not null"`
	Status          string    `gorm:"column:status;size:16;not null;default:pending;index"`
	ApprovedBy      *string   `gorm:"column:approved_by;size:36"`
	RejectionReason *string   `gorm:"column:rejection_reason;type:text"`
	CreatedAt       time.Time `gorm:"column:created_at;index"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`

	User     *userDatamodel.User `gorm:"foreignKey:UserID;references:ID"`
	Approver *userDatamodel.User `gorm:"foreignKey:ApprovedBy;references:ID"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

func (r *LeaveRequest) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
