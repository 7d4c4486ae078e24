package postgres

import (
	"context"
	"errors"
	"fmt"

	userDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"gorm.io/gorm"
)

// Repository resolves login identities from the users table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// GetByEmail returns inactive users too so the caller can report the
// deactivated account distinctly.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*coreUser.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, coreUser.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return toUser(&row), nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*coreUser.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, coreUser.ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return toUser(&row), nil
}

func toUser(row *userDatamodel.User) *coreUser.User {
	return &coreUser.User{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		PhoneNumber:  row.PhoneNumber,
		Role:         coreUser.Role(row.Role),
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
