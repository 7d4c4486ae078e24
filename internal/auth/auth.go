package auth

import (
	"context"
	"time"

	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims. Subject carries the user id and ID
// carries the token id used for revocation.
type Claims struct {
	Email string        `json:"email"`
	Role  coreUser.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string {
	return c.Subject
}

// UserView is the public shape of the logged-in user.
type UserView struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	FirstName   string        `json:"firstName"`
	LastName    string        `json:"lastName"`
	PhoneNumber *string       `json:"phoneNumber,omitempty"`
	Role        coreUser.Role `json:"role"`
}

func NewUserView(u *coreUser.User) UserView {
	return UserView{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
	}
}

type LoginResponse struct {
	AccessToken string   `json:"accessToken"`
	User        UserView `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RepositoryAPI interface {
	GetByEmail(ctx context.Context, email string) (*coreUser.User, error)
	GetByID(ctx context.Context, id string) (*coreUser.User, error)
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(u *coreUser.User) (token string, claims *Claims, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Denylist records revoked token ids until the token would have expired.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*LoginResponse, error)
	ValidateAccessToken(ctx context.Context, tokenString string) (*Claims, error)
	Logout(ctx context.Context, claims *Claims) (*MessageResponse, error)
}
