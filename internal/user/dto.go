package user

import (
	"strings"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/core/common/validation"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
)

type CreateUserDTO struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Role        string  `json:"role"`
}

func (d *CreateUserDTO) normalize() {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Role = strings.ToLower(strings.TrimSpace(d.Role))
	if d.PhoneNumber != nil && strings.TrimSpace(*d.PhoneNumber) == "" {
		d.PhoneNumber = nil
	}
}

func (d CreateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email().MaxLength(255)
	v.Field("password", d.Password).Required().MinLength(6)
	v.Field("firstName", d.FirstName).Required().MaxLength(100)
	v.Field("lastName", d.LastName).Required().MaxLength(100)
	v.Field("role", d.Role).Required().OneOf([]string{string(coreUser.RoleEmployee), string(coreUser.RoleManager)}, internal.ErrCodeValidationFailed)
	if d.PhoneNumber != nil {
		v.Field("phoneNumber", *d.PhoneNumber).MaxLength(32)
	}
	return v.Validate()
}

// UpdateUserDTO carries the editable profile fields. Email, role and
// password are not changed here.
type UpdateUserDTO struct {
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

func (d *UpdateUserDTO) normalize() {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	if d.PhoneNumber != nil && strings.TrimSpace(*d.PhoneNumber) == "" {
		d.PhoneNumber = nil
	}
}

func (d UpdateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("firstName", d.FirstName).Required().MaxLength(100)
	v.Field("lastName", d.LastName).Required().MaxLength(100)
	if d.PhoneNumber != nil {
		v.Field("phoneNumber", *d.PhoneNumber).MaxLength(32)
	}
	return v.Validate()
}

type MessageResponse struct {
	Message string `json:"message"`
}
