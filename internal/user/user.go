package user

import (
	"time"

	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
)

// Profile is the public view of a user. The password hash never leaves the
// service.
type Profile struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	FirstName   string        `json:"firstName"`
	LastName    string        `json:"lastName"`
	PhoneNumber *string       `json:"phoneNumber,omitempty"`
	Role        coreUser.Role `json:"role"`
	IsActive    bool          `json:"isActive"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func NewProfile(u *coreUser.User) *Profile {
	return &Profile{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func NewProfiles(users []*coreUser.User) []*Profile {
	out := make([]*Profile, 0, len(users))
	for _, u := range users {
		out = append(out, NewProfile(u))
	}
	return out
}
