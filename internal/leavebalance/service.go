package leavebalance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/core/leave"
)

type RepositoryAPI interface {
	ListByUserAndYear(ctx context.Context, userID string, year int) ([]*LeaveBalance, error)
	GetByUserTypeYear(ctx context.Context, userID string, leaveType leave.Type, year int) (*LeaveBalance, error)
	Create(ctx context.Context, balance *LeaveBalance) error
	// UpdateTotal overwrites the allocation of an existing row and derives
	// remaining days from the used days stored at write time.
	UpdateTotal(ctx context.Context, id string, totalDays int) (*LeaveBalance, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source used to resolve the current year.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithLocation sets the zone whose calendar defines the current leave year.
// Without it the clock's own zone is used.
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *Service) resolveYear(year int) int {
	if year > 0 {
		return year
	}
	t := s.now()
	if s.loc != nil {
		t = t.In(s.loc)
	}
	return t.Year()
}

// GetUserLeaveBalances returns the balances of userID for year (current year
// when zero), ordered by leave type.
func (s *Service) GetUserLeaveBalances(ctx context.Context, userID string, year int) ([]*LeaveBalance, error) {
	year = s.resolveYear(year)

	balances, err := s.repo.ListByUserAndYear(ctx, userID, year)
	if err != nil {
		s.logger.Error("failed to list leave balances", "error", err, "user_id", userID, "year", year)
		return nil, internal.NewInternalError("failed to load leave balances", err)
	}
	return balances, nil
}

func (s *Service) GetLeaveBalanceByType(ctx context.Context, userID string, leaveType leave.Type, year int) (*LeaveBalance, error) {
	year = s.resolveYear(year)

	balance, err := s.repo.GetByUserTypeYear(ctx, userID, leaveType, year)
	if err != nil {
		if errors.Is(err, ErrBalanceNotFound) {
			return nil, internal.NewNotFoundError(
				fmt.Sprintf("Leave balance not found for type %s in year %d", leaveType, year),
				internal.ErrCodeBalanceNotFound)
		}
		s.logger.Error("failed to get leave balance", "error", err, "user_id", userID, "leave_type", leaveType, "year", year)
		return nil, internal.NewInternalError("failed to load leave balance", err)
	}
	return balance, nil
}

// CreateOrUpdateLeaveBalance upserts the allocation for (userID, leaveType, year).
// An existing row keeps its used days, including days consumed by an approval
// that commits between the read and the write; a new row starts unused.
func (s *Service) CreateOrUpdateLeaveBalance(ctx context.Context, userID string, leaveType leave.Type, totalDays, year int) (*LeaveBalance, error) {
	if !leaveType.Valid() {
		return nil, internal.NewValidationFieldError("leaveType", fmt.Sprintf("unknown leave type %q", leaveType), internal.ErrCodeInvalidLeaveType)
	}
	if totalDays < 0 {
		return nil, internal.NewValidationFieldError("totalDays", "totalDays must be at least 0", internal.ErrCodeInvalidDays)
	}
	year = s.resolveYear(year)

	balance, err := s.repo.GetByUserTypeYear(ctx, userID, leaveType, year)
	switch {
	case err == nil:
		id := balance.ID
		balance, err = s.repo.UpdateTotal(ctx, id, totalDays)
		if err != nil {
			s.logger.Error("failed to update leave balance", "error", err, "balance_id", id)
			return nil, internal.NewInternalError("failed to save leave balance", err)
		}
	case errors.Is(err, ErrBalanceNotFound):
		balance = NewLeaveBalance(userID, leaveType, totalDays, year)
		if err := s.repo.Create(ctx, balance); err != nil {
			s.logger.Error("failed to create leave balance", "error", err, "user_id", userID, "leave_type", leaveType)
			return nil, internal.NewInternalError("failed to save leave balance", err)
		}
	default:
		s.logger.Error("failed to get leave balance", "error", err, "user_id", userID, "leave_type", leaveType, "year", year)
		return nil, internal.NewInternalError("failed to load leave balance", err)
	}

	s.logger.Info("leave balance saved",
		"user_id", userID,
		"leave_type", leaveType,
		"year", year,
		"total_days", balance.TotalDays,
		"remaining_days", balance.RemainingDays)

	return balance, nil
}

// InitializeDefaultLeaveBalances upserts the default allocation of every leave
// type, overwriting existing totals.
func (s *Service) InitializeDefaultLeaveBalances(ctx context.Context, userID string, year int) ([]*LeaveBalance, error) {
	year = s.resolveYear(year)

	balances := make([]*LeaveBalance, 0, len(leave.Types))
	for _, t := range leave.Types {
		b, err := s.CreateOrUpdateLeaveBalance(ctx, userID, t, leave.DefaultAllocations[t], year)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, nil
}

// EnsureDefaultLeaveBalances creates the default allocation for leave types
// the user has no row for in year. Existing rows are left untouched.
func (s *Service) EnsureDefaultLeaveBalances(ctx context.Context, userID string, year int) (created int, err error) {
	year = s.resolveYear(year)

	existing, err := s.repo.ListByUserAndYear(ctx, userID, year)
	if err != nil {
		return 0, internal.NewInternalError("failed to load leave balances", err)
	}
	have := make(map[leave.Type]bool, len(existing))
	for _, b := range existing {
		have[b.LeaveType] = true
	}

	for _, t := range leave.Types {
		if have[t] {
			continue
		}
		b := NewLeaveBalance(userID, t, leave.DefaultAllocations[t], year)
		if err := s.repo.Create(ctx, b); err != nil {
			s.logger.Error("failed to create default leave balance", "error", err, "user_id", userID, "leave_type", t, "year", year)
			return created, internal.NewInternalError("failed to save leave balance", err)
		}
		created++
	}

	if created > 0 {
		s.logger.Info("default leave balances created", "user_id", userID, "year", year, "count", created)
	}
	return created, nil
}
