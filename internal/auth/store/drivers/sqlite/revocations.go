package sqlite

import (
	"context"
	"time"
)

type revocationsRepo struct {
	db querier
}

func (r *revocationsRepo) Record(ctx context.Context, jti string, expiresAt time.Time) error {
	// ON CONFLICT makes recording idempotent; revoking twice is fine.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES (?, ?)
		ON CONFLICT (jti) DO NOTHING`,
		jti, expiresAt)
	return err
}

func (r *revocationsRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM revoked_tokens WHERE jti = ?`, jti)

	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *revocationsRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < CURRENT_TIMESTAMP`)
	return err
}
