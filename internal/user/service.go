package user

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/auth"
	"github.com/frahmantamala/leave-management/internal/core/common/validation"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
)

// ErrDuplicateEmail is returned by Create when the unique email index rejects
// the row.
var ErrDuplicateEmail = errors.New("duplicate email")

type RepositoryAPI interface {
	GetByID(ctx context.Context, id string) (*coreUser.User, error)
	GetByEmail(ctx context.Context, email string) (*coreUser.User, error)
	List(ctx context.Context) ([]*coreUser.User, error)
	Create(ctx context.Context, u *coreUser.User) error
	UpdateProfile(ctx context.Context, u *coreUser.User) error
	Deactivate(ctx context.Context, id string) error
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}

type BalanceInitializer interface {
	EnsureDefaultLeaveBalances(ctx context.Context, userID string, year int) (int, error)
}

type Service struct {
	repo       RepositoryAPI
	balances   BalanceInitializer
	policy     auth.Policy
	bcryptCost int
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repo RepositoryAPI, balances BalanceInitializer, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		balances:   balances,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, coreUser.ErrNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("Failed to load user", err)
	}
	return NewProfile(u), nil
}

// GetUser returns the profile of userID to the user themselves or a manager.
func (s *Service) GetUser(ctx context.Context, caller *internal.Principal, userID string) (*Profile, error) {
	if err := s.authorizeUserAccess(caller, userID); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// UpdateUser edits the names and phone number of userID.
func (s *Service) UpdateUser(ctx context.Context, caller *internal.Principal, userID string, dto UpdateUserDTO) (*Profile, error) {
	if err := s.authorizeUserAccess(caller, userID); err != nil {
		return nil, err
	}

	dto.normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u := &coreUser.User{
		ID:          userID,
		FirstName:   dto.FirstName,
		LastName:    dto.LastName,
		PhoneNumber: dto.PhoneNumber,
	}
	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		if errors.Is(err, coreUser.ErrNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("Failed to update user", err)
	}

	s.logger.Info("user updated", "user_id", userID, "by", caller.ID)
	return s.GetProfile(ctx, userID)
}

func (s *Service) authorizeUserAccess(caller *internal.Principal, userID string) error {
	if !validation.IsUUID(userID) {
		return internal.NewValidationError("Invalid UUID format for user ID", internal.ErrCodeInvalidID)
	}
	if !s.policy.CanAccessUser(caller.Role, caller.ID, userID) {
		return internal.NewForbiddenError("You are not authorized to access this user", internal.ErrCodeUnauthorizedAccess)
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context, callerRole coreUser.Role) ([]*Profile, error) {
	if !s.policy.CanManageUsers(callerRole) {
		return nil, internal.NewForbiddenError("Only managers can manage users", internal.ErrCodeManagerRequired)
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal.NewInternalError("Failed to list users", err)
	}
	return NewProfiles(users), nil
}

// CreateUser stores a new account and seeds its balances for the current
// year. A failed seeding is logged; the account still exists.
func (s *Service) CreateUser(ctx context.Context, callerRole coreUser.Role, dto CreateUserDTO) (*Profile, error) {
	if !s.policy.CanManageUsers(callerRole) {
		return nil, internal.NewForbiddenError("Only managers can manage users", internal.ErrCodeManagerRequired)
	}

	dto.normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, dto.Email); err == nil {
		return nil, internal.ErrEmailTaken
	} else if !errors.Is(err, coreUser.ErrNotFound) {
		return nil, internal.NewInternalError("Failed to check email", err)
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("Failed to hash password", err)
	}

	role, _ := coreUser.ParseRole(dto.Role)
	u := &coreUser.User{
		Email:        dto.Email,
		PasswordHash: hash,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		PhoneNumber:  dto.PhoneNumber,
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, internal.ErrEmailTaken
		}
		return nil, internal.NewInternalError("Failed to create user", err)
	}

	if s.balances != nil {
		if _, err := s.balances.EnsureDefaultLeaveBalances(ctx, u.ID, s.now().Year()); err != nil {
			s.logger.Warn("failed to initialize leave balances", "user_id", u.ID, "error", err)
		}
	}

	s.logger.Info("user created", "user_id", u.ID, "role", u.Role)
	return NewProfile(u), nil
}

func (s *Service) DeactivateUser(ctx context.Context, caller *internal.Principal, userID string) (*MessageResponse, error) {
	if !s.policy.CanManageUsers(caller.Role) {
		return nil, internal.NewForbiddenError("Only managers can manage users", internal.ErrCodeManagerRequired)
	}
	if !validation.IsUUID(userID) {
		return nil, internal.NewValidationError("Invalid UUID format for user ID", internal.ErrCodeInvalidID)
	}
	if userID == caller.ID {
		return nil, internal.NewValidationError("You cannot deactivate your own account", internal.ErrCodeValidationFailed)
	}

	if err := s.repo.Deactivate(ctx, userID); err != nil {
		if errors.Is(err, coreUser.ErrNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("Failed to deactivate user", err)
	}

	s.logger.Info("user deactivated", "user_id", userID, "by", caller.ID)
	return &MessageResponse{Message: "User deactivated successfully"}, nil
}

// ListActiveUserIDs feeds the yearly rollover.
func (s *Service) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	return s.repo.ListActiveUserIDs(ctx)
}
