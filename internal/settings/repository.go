package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-erp/aegis-erp/internal/shared"
)

// RepositoryPort defines persistence for the security settings singleton.
type RepositoryPort interface {
	Load(ctx context.Context) (SecuritySettings, error)
	Save(ctx context.Context, s SecuritySettings) error
}

// Repository provides PostgreSQL backed persistence. Settings live in a
// single-row table keyed by id=1.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Load reads the stored settings. Returns shared.ErrNotFound when no row
// has been stored yet.
func (r *Repository) Load(ctx context.Context) (SecuritySettings, error) {
	var s SecuritySettings
	err := r.pool.QueryRow(ctx, `SELECT min_length, require_numbers, require_special_chars, threshold, lockout_duration_minutes FROM security_settings WHERE id = 1`).
		Scan(&s.MinLength, &s.RequireNumbers, &s.RequireSpecialChars, &s.Threshold, &s.LockoutDurationMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SecuritySettings{}, shared.ErrNotFound
		}
		return SecuritySettings{}, err
	}
	return s, nil
}

// Save upserts the settings row.
func (r *Repository) Save(ctx context.Context, s SecuritySettings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO security_settings (id, min_length, require_numbers, require_special_chars, threshold, lockout_duration_minutes, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			min_length = EXCLUDED.min_length,
			require_numbers = EXCLUDED.require_numbers,
			require_special_chars = EXCLUDED.require_special_chars,
			threshold = EXCLUDED.threshold,
			lockout_duration_minutes = EXCLUDED.lockout_duration_minutes,
			updated_at = NOW()`,
		s.MinLength, s.RequireNumbers, s.RequireSpecialChars, s.Threshold, s.LockoutDurationMinutes)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
