package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	balanceDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leavebalance"
	requestDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leaverequest"
	"github.com/frahmantamala/leave-management/internal/core/leave"
	"github.com/frahmantamala/leave-management/internal/leavebalance"
	"github.com/frahmantamala/leave-management/internal/leaverequest"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaveRequestRepository implements leaverequest.RepositoryAPI using GORM
type LeaveRequestRepository struct {
	db *gorm.DB
}

func NewLeaveRequestRepository(db *gorm.DB) *LeaveRequestRepository {
	return &LeaveRequestRepository{db: db}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Approver")
}

func (r *LeaveRequestRepository) Create(ctx context.Context, req *leaverequest.LeaveRequest) error {
	row := leaverequest.ToDataModel(req)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	req.ID = row.ID
	req.CreatedAt = row.CreatedAt
	req.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *LeaveRequestRepository) GetByID(ctx context.Context, id string) (*leaverequest.LeaveRequest, error) {
	var row requestDatamodel.LeaveRequest
	err := withRelations(r.db.WithContext(ctx)).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leaverequest.ErrNotFound
		}
		return nil, fmt.Errorf("get leave request: %w", err)
	}
	return leaverequest.FromDataModel(&row), nil
}

func (r *LeaveRequestRepository) ListByUser(ctx context.Context, userID string) ([]*leaverequest.LeaveRequest, error) {
	var rows []*requestDatamodel.LeaveRequest
	err := withRelations(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list leave requests by user: %w", err)
	}
	return leaverequest.FromDataModelSlice(rows), nil
}

func (r *LeaveRequestRepository) List(ctx context.Context, filter leaverequest.ListFilter) ([]*leaverequest.LeaveRequest, error) {
	q := withRelations(r.db.WithContext(ctx))
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	var rows []*requestDatamodel.LeaveRequest
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	return leaverequest.FromDataModelSlice(rows), nil
}

func (r *LeaveRequestRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&requestDatamodel.LeaveRequest{})
	if res.Error != nil {
		return fmt.Errorf("delete leave request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return leaverequest.ErrNotFound
	}
	return nil
}

func (r *LeaveRequestRepository) WithinTx(ctx context.Context, fn func(tx leaverequest.TxAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&txRepository{db: gtx})
	})
}

type txRepository struct {
	db *gorm.DB
}

// forUpdate adds a row lock on dialects that support SELECT ... FOR UPDATE.
// SQLite serialises writers on the database file instead.
func (t *txRepository) forUpdate(ctx context.Context) *gorm.DB {
	db := t.db.WithContext(ctx)
	if t.db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *txRepository) GetForUpdate(ctx context.Context, id string) (*leaverequest.LeaveRequest, error) {
	var row requestDatamodel.LeaveRequest
	err := t.forUpdate(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leaverequest.ErrNotFound
		}
		return nil, fmt.Errorf("lock leave request: %w", err)
	}
	return leaverequest.FromDataModel(&row), nil
}

func (t *txRepository) ApplyDecision(ctx context.Context, req *leaverequest.LeaveRequest) error {
	res := t.db.WithContext(ctx).
		Model(&requestDatamodel.LeaveRequest{}).
		Where("id = ? AND status = ?", req.ID, string(leave.StatusPending)).
		Updates(map[string]interface{}{
			"status":           string(req.Status),
			"approved_by":      req.ApprovedBy,
			"rejection_reason": req.RejectionReason,
			"updated_at":       req.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update leave request status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return leaverequest.ErrNotPending
	}
	return nil
}

func (t *txRepository) BalanceForUpdate(ctx context.Context, userID string, leaveType leave.Type, year int) (*leavebalance.LeaveBalance, error) {
	var row balanceDatamodel.LeaveBalance
	err := t.forUpdate(ctx).
		Where("user_id = ? AND leave_type = ? AND year = ?", userID, string(leaveType), year).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leavebalance.ErrBalanceNotFound
		}
		return nil, fmt.Errorf("lock leave balance: %w", err)
	}
	return leavebalance.FromDataModel(&row), nil
}

func (t *txRepository) SaveBalance(ctx context.Context, balance *leavebalance.LeaveBalance) error {
	balance.UpdatedAt = time.Now()
	err := t.db.WithContext(ctx).
		Model(&balanceDatamodel.LeaveBalance{}).
		Where("id = ?", balance.ID).
		Updates(map[string]interface{}{
			"used_days":      balance.UsedDays,
			"remaining_days": balance.RemainingDays,
			"updated_at":     balance.UpdatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("save leave balance: %w", err)
	}
	return nil
}
