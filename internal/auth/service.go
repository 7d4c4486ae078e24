package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/leave-management/internal"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/metrics"
	"golang.org/x/crypto/bcrypt"
)

// Service is the main auth service with dependencies
type Service struct {
	userRepo       RepositoryAPI
	tokenGenerator TokenGeneratorAPI
	denylist       Denylist
	logger         *slog.Logger
}

func NewService(userRepo RepositoryAPI, tokenGen TokenGeneratorAPI, denylist Denylist, logger *slog.Logger) *Service {
	if denylist == nil {
		denylist = NewMemoryDenylist()
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		denylist:       denylist,
		logger:         logger,
	}
}

// Login checks the credentials and issues an access token. Unknown users and
// wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	dto.normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, coreUser.ErrNotFound) {
			metrics.RecordLogin("invalid_credentials")
			return nil, internal.ErrInvalidCredentials
		}
		return nil, internal.NewInternalError("Failed to load user", err)
	}

	if err := VerifyPassword(user.PasswordHash, dto.Password); err != nil {
		metrics.RecordLogin("invalid_credentials")
		return nil, internal.ErrInvalidCredentials
	}

	if !user.IsActive {
		metrics.RecordLogin("inactive")
		return nil, internal.ErrUserInactive
	}

	token, _, err := s.tokenGenerator.GenerateAccessToken(user)
	if err != nil {
		return nil, internal.NewInternalError("Failed to issue access token", err)
	}

	metrics.RecordLogin("success")
	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)

	return &LoginResponse{
		AccessToken: token,
		User:        NewUserView(user),
	}, nil
}

// ValidateAccessToken verifies the token, rejects revoked token ids and
// checks the subject still exists and is active.
func (s *Service) ValidateAccessToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.tokenGenerator.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, internal.NewInternalError("Failed to check token status", err)
	}
	if revoked {
		return nil, internal.ErrTokenRevoked
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, coreUser.ErrNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, internal.NewInternalError("Failed to load user", err)
	}
	if !user.IsActive {
		s.logger.Info("token rejected for deactivated user", "user_id", user.ID)
		return nil, internal.ErrUserInactive
	}
	return claims, nil
}

func (s *Service) Logout(ctx context.Context, claims *Claims) (*MessageResponse, error) {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, internal.ErrInvalidToken
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, internal.NewInternalError("Failed to revoke token", err)
	}
	s.logger.Info("user logged out", "user_id", claims.UserID())
	return &MessageResponse{Message: "Successfully logged out"}, nil
}

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func VerifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
