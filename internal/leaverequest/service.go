package leaverequest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/auth"
	"github.com/frahmantamala/leave-management/internal/core/common/validation"
	"github.com/frahmantamala/leave-management/internal/core/events"
	"github.com/frahmantamala/leave-management/internal/core/leave"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/leavebalance"
	"github.com/frahmantamala/leave-management/internal/metrics"
)

type RepositoryAPI interface {
	Create(ctx context.Context, req *LeaveRequest) error
	GetByID(ctx context.Context, id string) (*LeaveRequest, error)
	ListByUser(ctx context.Context, userID string) ([]*LeaveRequest, error)
	List(ctx context.Context, filter ListFilter) ([]*LeaveRequest, error)
	Delete(ctx context.Context, id string) error
	// WithinTx runs fn in a single store transaction.
	WithinTx(ctx context.Context, fn func(tx TxAPI) error) error
}

// TxAPI is the transactional view used when deciding a request.
type TxAPI interface {
	GetForUpdate(ctx context.Context, id string) (*LeaveRequest, error)
	// ApplyDecision persists status, approver and rejection reason only if the
	// stored row is still pending, returning ErrNotPending otherwise.
	ApplyDecision(ctx context.Context, req *LeaveRequest) error
	BalanceForUpdate(ctx context.Context, userID string, leaveType leave.Type, year int) (*leavebalance.LeaveBalance, error)
	SaveBalance(ctx context.Context, balance *leavebalance.LeaveBalance) error
}

type BalanceReader interface {
	GetByUserTypeYear(ctx context.Context, userID string, leaveType leave.Type, year int) (*leavebalance.LeaveBalance, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*coreUser.User, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      RepositoryAPI
	balances  BalanceReader
	users     UserLookup
	publisher Publisher
	policy    auth.Policy
	logger    *slog.Logger
	loc       *time.Location
	now       func() time.Time
}

func NewService(repo RepositoryAPI, balances BalanceReader, users UserLookup, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		balances:  balances,
		users:     users,
		publisher: publisher,
		logger:    logger,
		loc:       time.Local,
		now:       time.Now,
	}
}

// WithClock sets the time source and the zone whose calendar defines "today"
// and the current leave year.
func (s *Service) WithClock(now func() time.Time, loc *time.Location) *Service {
	if now != nil {
		s.now = now
	}
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *Service) today() time.Time {
	return validation.StartOfDay(s.now().In(s.loc))
}

func (s *Service) CreateLeaveRequest(ctx context.Context, userID string, dto CreateLeaveRequestDTO) (*LeaveRequest, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	start, err := validation.ParseDate(dto.StartDate, s.loc)
	if err != nil {
		return nil, internal.NewValidationError("Invalid date format provided", internal.ErrCodeInvalidDate)
	}
	end, err := validation.ParseDate(dto.EndDate, s.loc)
	if err != nil {
		return nil, internal.NewValidationError("Invalid date format provided", internal.ErrCodeInvalidDate)
	}
	if start.After(end) {
		return nil, internal.NewValidationError("Start date must be before or equal to end date", internal.ErrCodeInvalidDateRange)
	}
	today := s.today()
	if start.Before(today) {
		return nil, internal.NewValidationError("Start date cannot be in the past", internal.ErrCodeDateInPast)
	}

	leaveType := leave.Type(dto.LeaveType)
	balance, err := s.balances.GetByUserTypeYear(ctx, userID, leaveType, today.Year())
	if err != nil {
		if errors.Is(err, leavebalance.ErrBalanceNotFound) {
			return nil, internal.NewValidationError(
				fmt.Sprintf("No leave balance found for %s leave type", leaveType),
				internal.ErrCodeBalanceNotFound)
		}
		s.logger.Error("failed to load leave balance", "error", err, "user_id", userID, "leave_type", leaveType)
		return nil, internal.NewInternalError("failed to load leave balance", err)
	}
	if !balance.Covers(dto.NumberOfDays) {
		return nil, internal.NewValidationError(
			fmt.Sprintf("Insufficient leave balance. You have %d days remaining but requested %d days",
				balance.RemainingDays, dto.NumberOfDays),
			internal.ErrCodeInsufficientLeave)
	}

	req := NewLeaveRequest(userID, leaveType, start, end, dto.NumberOfDays, strings.TrimSpace(dto.Reason))
	if err := s.repo.Create(ctx, req); err != nil {
		s.logger.Error("failed to create leave request", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to create leave request", err)
	}

	s.logger.Info("leave request created",
		"request_id", req.ID,
		"user_id", userID,
		"leave_type", leaveType,
		"days", req.NumberOfDays)
	s.publish(ctx, events.EventTypeLeaveRequestCreated, userID, req)

	return req, nil
}

func (s *Service) GetMyLeaveRequests(ctx context.Context, userID string) ([]*LeaveRequest, error) {
	requests, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list leave requests", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to load leave requests", err)
	}
	return requests, nil
}

func (s *Service) GetAllLeaveRequests(ctx context.Context, managerID string, filter ListFilter) ([]*LeaveRequest, error) {
	caller, err := s.lookupCaller(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if caller == nil || !s.policy.CanViewAllRequests(caller.Role) {
		s.logger.Warn("list all leave requests denied", "user_id", managerID)
		return nil, internal.NewForbiddenError("Only managers can view all leave requests", internal.ErrCodeManagerRequired)
	}

	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list all leave requests", "error", err)
		return nil, internal.NewInternalError("failed to load leave requests", err)
	}
	return requests, nil
}

func (s *Service) GetLeaveRequestByID(ctx context.Context, requestID, callerID string) (*LeaveRequest, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.UserID == callerID {
		return req, nil
	}

	caller, err := s.lookupCaller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller == nil || !s.policy.CanViewRequest(caller.Role, callerID, req.UserID) {
		s.logger.Warn("leave request access denied", "request_id", requestID, "user_id", callerID)
		return nil, internal.NewForbiddenError("You are not authorized to view this leave request", internal.ErrCodeUnauthorizedAccess)
	}
	return req, nil
}

// UpdateLeaveRequestStatus approves or rejects a pending request. Approval
// deducts the request's days from the owner's balance of the current year in
// the same transaction; a missing balance is logged and skipped.
func (s *Service) UpdateLeaveRequestStatus(ctx context.Context, requestID, managerID string, dto UpdateLeaveRequestStatusDTO) (*LeaveRequest, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	status := leave.Status(dto.Status)

	caller, err := s.lookupCaller(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if caller == nil || !s.policy.CanDecide(caller.Role) {
		s.logger.Warn("leave request decision denied", "request_id", requestID, "user_id", managerID)
		return nil, internal.NewForbiddenError("Only managers can approve/reject leave requests", internal.ErrCodeManagerRequired)
	}

	year := s.today().Year()
	var decided *LeaveRequest
	balanceSkipped := false

	err = s.repo.WithinTx(ctx, func(tx TxAPI) error {
		req, err := tx.GetForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return internal.ErrLeaveRequestNotFound
			}
			return fmt.Errorf("lock leave request: %w", err)
		}
		if !req.IsPending() {
			return internal.ErrAlreadyProcessed
		}
		reason := strings.TrimSpace(dto.reason())
		if status == leave.StatusRejected && reason == "" {
			return internal.ErrReasonRequired
		}

		req.Decide(status, managerID, reason)
		if err := tx.ApplyDecision(ctx, req); err != nil {
			if errors.Is(err, ErrNotPending) {
				return internal.ErrAlreadyProcessed
			}
			return fmt.Errorf("apply decision: %w", err)
		}

		if status == leave.StatusApproved {
			balance, err := tx.BalanceForUpdate(ctx, req.UserID, req.LeaveType, year)
			switch {
			case errors.Is(err, leavebalance.ErrBalanceNotFound):
				balanceSkipped = true
			case err != nil:
				return fmt.Errorf("lock leave balance: %w", err)
			default:
				balance.Consume(req.NumberOfDays)
				if err := tx.SaveBalance(ctx, balance); err != nil {
					return fmt.Errorf("save leave balance: %w", err)
				}
			}
		}

		decided = req
		return nil
	})
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		s.logger.Error("failed to decide leave request", "error", err, "request_id", requestID)
		return nil, internal.NewInternalError("failed to update leave request", err)
	}

	if balanceSkipped {
		metrics.RecordBalanceSkipped()
		s.logger.Warn("approved leave request without a matching balance",
			"request_id", decided.ID,
			"user_id", decided.UserID,
			"leave_type", decided.LeaveType,
			"year", year,
			"balance_skipped", true)
	}

	s.logger.Info("leave request decided",
		"request_id", decided.ID,
		"status", decided.Status,
		"manager_id", managerID)

	eventType := events.EventTypeLeaveRequestApproved
	if status == leave.StatusRejected {
		eventType = events.EventTypeLeaveRequestRejected
	}
	s.publish(ctx, eventType, managerID, decided)

	// reload to include requester and approver
	if fresh, err := s.repo.GetByID(ctx, decided.ID); err == nil {
		return fresh, nil
	}
	return decided, nil
}

func (s *Service) DeleteLeaveRequest(ctx context.Context, callerID, requestID string) (*MessageResponse, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	caller, err := s.lookupCaller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, internal.NewForbiddenError("User not found", internal.ErrCodeUnauthorizedAccess)
	}

	if !s.policy.CanDeleteRequest(caller.Role, callerID, req.UserID, req.IsPending()) {
		s.logger.Warn("leave request delete denied", "request_id", requestID, "user_id", callerID, "status", req.Status)
		if req.UserID != callerID {
			return nil, internal.NewForbiddenError("You are not authorized to delete this leave request", internal.ErrCodeUnauthorizedAccess)
		}
		return nil, internal.NewForbiddenError("You can only delete leave requests that are pending", internal.ErrCodeCannotDeleteProcessed)
	}

	if err := s.repo.Delete(ctx, requestID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrLeaveRequestNotFound
		}
		s.logger.Error("failed to delete leave request", "error", err, "request_id", requestID)
		return nil, internal.NewInternalError("failed to delete leave request", err)
	}

	s.logger.Info("leave request deleted", "request_id", requestID, "user_id", callerID)
	s.publish(ctx, events.EventTypeLeaveRequestDeleted, callerID, req)

	return &MessageResponse{Message: "Leave request deleted successfully"}, nil
}

func (s *Service) load(ctx context.Context, requestID string) (*LeaveRequest, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrLeaveRequestNotFound
		}
		s.logger.Error("failed to load leave request", "error", err, "request_id", requestID)
		return nil, internal.NewInternalError("failed to load leave request", err)
	}
	return req, nil
}

// lookupCaller returns nil without error when the user does not exist or
// has been deactivated.
func (s *Service) lookupCaller(ctx context.Context, id string) (*coreUser.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, coreUser.ErrNotFound) {
			return nil, nil
		}
		s.logger.Error("failed to load user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if !u.IsActive {
		return nil, nil
	}
	return u, nil
}

func (s *Service) publish(ctx context.Context, eventType, actorID string, req *LeaveRequest) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewLeaveRequestEvent(eventType, actorID, req.Snapshot())); err != nil {
		s.logger.Error("failed to publish leave request event", "error", err, "event_type", eventType, "request_id", req.ID)
	}
}
