package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone_number, role, is_active, created_at, updated_at`

type userRow struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	PhoneNumber  sql.NullString `db:"phone_number"`
	Role         string         `db:"role"`
	IsActive     bool           `db:"is_active"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r userRow) toDomain() *coreUser.User {
	u := &coreUser.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Role:         coreUser.Role(r.Role),
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.PhoneNumber.Valid {
		phone := r.PhoneNumber.String
		u.PhoneNumber = &phone
	}
	return u
}

// UserRepository reads and writes the users table with plain SQL. Queries
// are written with ? and rebound for the driver.
type UserRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

func (r *UserRepository) get(ctx context.Context, where string, arg interface{}) (*coreUser.User, error) {
	var row userRow
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + where)
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, coreUser.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*coreUser.User, error) {
	u, err := r.get(ctx, "id = ?", id)
	if err != nil && !errors.Is(err, coreUser.ErrNotFound) {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*coreUser.User, error) {
	u, err := r.get(ctx, "email = ?", email)
	if err != nil && !errors.Is(err, coreUser.ErrNotFound) {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, err
}

func (r *UserRepository) List(ctx context.Context) ([]*coreUser.User, error) {
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*coreUser.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *UserRepository) Create(ctx context.Context, u *coreUser.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := r.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	var phone sql.NullString
	if u.PhoneNumber != nil {
		phone = sql.NullString{String: *u.PhoneNumber, Valid: true}
	}

	query := r.db.Rebind(`INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, phone, string(u.Role), u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateProfile writes the names and phone number of u.ID.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *coreUser.User) error {
	var phone sql.NullString
	if u.PhoneNumber != nil {
		phone = sql.NullString{String: *u.PhoneNumber, Valid: true}
	}
	u.UpdatedAt = r.now().UTC()

	query := r.db.Rebind(`UPDATE users SET first_name = ?, last_name = ?, phone_number = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, u.FirstName, u.LastName, phone, u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return coreUser.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	query := r.db.Rebind(`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, false, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if n == 0 {
		return coreUser.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	query := r.db.Rebind(`SELECT id FROM users WHERE is_active = ? ORDER BY created_at ASC`)
	if err := r.db.SelectContext(ctx, &ids, query, true); err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return ids, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
