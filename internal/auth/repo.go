package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-erp/aegis-erp/internal/shared"
	"github.com/aegis-erp/aegis-erp/internal/users"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	FindByID(ctx context.Context, id int64) (*users.User, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL. User lookups are
// delegated to the users repository so overrides are loaded the same way
// everywhere.
type PGRepository struct {
	pool  *pgxpool.Pool
	users *users.Repository
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, users: users.NewRepository(pool)}
}

// FindByEmail fetches a user by email with their permission overrides.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.users.FindByEmail(ctx, email)
}

// FindByID fetches a user by id with their permission overrides.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*users.User, error) {
	return r.users.FindByID(ctx, id)
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
		VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))
		ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		id, userID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)

// notFound reports whether err is the module's missing-row sentinel.
func notFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
