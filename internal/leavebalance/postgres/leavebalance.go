package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	balanceDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leavebalance"
	"github.com/frahmantamala/leave-management/internal/core/leave"
	"github.com/frahmantamala/leave-management/internal/leavebalance"
	"gorm.io/gorm"
)

// LeaveBalanceRepository implements leavebalance.RepositoryAPI using GORM
type LeaveBalanceRepository struct {
	db *gorm.DB
}

func NewLeaveBalanceRepository(db *gorm.DB) *LeaveBalanceRepository {
	return &LeaveBalanceRepository{db: db}
}

func (r *LeaveBalanceRepository) ListByUserAndYear(ctx context.Context, userID string, year int) ([]*leavebalance.LeaveBalance, error) {
	var rows []*balanceDatamodel.LeaveBalance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND year = ?", userID, year).
		Order("leave_type ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list leave balances: %w", err)
	}
	return leavebalance.FromDataModelSlice(rows), nil
}

func (r *LeaveBalanceRepository) GetByUserTypeYear(ctx context.Context, userID string, leaveType leave.Type, year int) (*leavebalance.LeaveBalance, error) {
	var row balanceDatamodel.LeaveBalance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND leave_type = ? AND year = ?", userID, string(leaveType), year).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leavebalance.ErrBalanceNotFound
		}
		return nil, fmt.Errorf("get leave balance: %w", err)
	}
	return leavebalance.FromDataModel(&row), nil
}

func (r *LeaveBalanceRepository) Create(ctx context.Context, balance *leavebalance.LeaveBalance) error {
	row := leavebalance.ToDataModel(balance)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create leave balance: %w", err)
	}
	*balance = *leavebalance.FromDataModel(row)
	return nil
}

// UpdateTotal never writes used_days, so a concurrent approval's deduction
// survives the update.
func (r *LeaveBalanceRepository) UpdateTotal(ctx context.Context, id string, totalDays int) (*leavebalance.LeaveBalance, error) {
	var row balanceDatamodel.LeaveBalance
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&balanceDatamodel.LeaveBalance{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"total_days":     totalDays,
				"remaining_days": gorm.Expr("? - used_days", totalDays),
				"updated_at":     time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return leavebalance.ErrBalanceNotFound
		}
		return tx.Where("id = ?", id).First(&row).Error
	})
	if err != nil {
		if errors.Is(err, leavebalance.ErrBalanceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update leave balance total: %w", err)
	}
	return leavebalance.FromDataModel(&row), nil
}
