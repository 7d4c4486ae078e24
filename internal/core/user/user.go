package user

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by user stores when no row matches.
var ErrNotFound = errors.New("user not found")

// Role is closed: every switch over it must handle both values.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleEmployee:
		return RoleEmployee, true
	case RoleManager:
		return RoleManager, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  *string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) IsManager() bool {
	return u != nil && u.Role == RoleManager
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
