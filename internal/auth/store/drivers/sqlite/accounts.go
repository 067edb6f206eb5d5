package sqlite

import (
	"context"
	"time"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/domain"
	"github.com/ltphongssvn/autoloan-auth/internal/auth/store"
)

type accountsRepo struct {
	db querier
}

func (r *accountsRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func (r *accountsRepo) GetByUnlockToken(ctx context.Context, token string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE unlock_token = ?`, token)
	return scanAccount(row)
}

func (r *accountsRepo) GetByConfirmationToken(ctx context.Context, token string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE confirmation_token = ?`, token)
	return scanAccount(row)
}

func (r *accountsRepo) GetByResetToken(ctx context.Context, token string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE reset_token = ?`, token)
	return scanAccount(row)
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, email, full_name, password_hash, role_id,
			confirmation_token, confirmation_sent_at,
			mfa_required, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.FullName, a.PasswordHash, a.RoleID,
		mapOptionalString(a.ConfirmationToken), mapOptionalTime(a.ConfirmationSentAt),
		a.MFARequired, a.CreatedAt, a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		newHash, accountID)
}

// RecordFailedAttempt increments the counter inside the database so two
// concurrent failures each see a distinct post-increment value.
func (r *accountsRepo) RecordFailedAttempt(ctx context.Context, accountID string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET failed_attempts = failed_attempts + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING failed_attempts`,
		accountID)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, mapNotFound(err)
	}
	return count, nil
}

func (r *accountsRepo) Lock(ctx context.Context, accountID string, lockedAt time.Time, unlockToken string) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET locked_at = ?, unlock_token = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		lockedAt, unlockToken, accountID)
}

func (r *accountsRepo) Unlock(ctx context.Context, accountID string) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET locked_at = NULL, unlock_token = NULL, failed_attempts = 0,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		accountID)
}

func (r *accountsRepo) RecordSignIn(ctx context.Context, accountID string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET failed_attempts = 0,
		    sign_in_count = sign_in_count + 1,
		    last_sign_in_at = current_sign_in_at,
		    current_sign_in_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		at, accountID)
}

func (r *accountsRepo) SetConfirmationToken(ctx context.Context, accountID, token string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET confirmation_token = ?, confirmation_sent_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		token, at, accountID)
}

func (r *accountsRepo) ConfirmEmail(ctx context.Context, accountID string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET confirmed_at = ?, confirmation_token = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		at, accountID)
}

func (r *accountsRepo) SetResetToken(ctx context.Context, accountID, token string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET reset_token = ?, reset_sent_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		token, at, accountID)
}

func (r *accountsRepo) ResetPassword(ctx context.Context, accountID, newHash string) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET password_hash = ?, reset_token = NULL, reset_sent_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		newHash, accountID)
}

func (r *accountsRepo) ClearStaleResetTokens(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET reset_token = NULL, reset_sent_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE reset_token IS NOT NULL AND reset_sent_at < ?`,
		cutoff)
	return err
}

func (r *accountsRepo) UpdateMFASecret(ctx context.Context, accountID string, secret string) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET mfa_secret = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		mapStringNull(secret), accountID)
}

func (r *accountsRepo) EnableMFA(ctx context.Context, accountID string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET mfa_enabled_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		at, accountID)
}

func (r *accountsRepo) DisableMFA(ctx context.Context, accountID string) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET mfa_secret = NULL, mfa_enabled_at = NULL, mfa_required = FALSE,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		accountID)
}

func (r *accountsRepo) SetMFARequired(ctx context.Context, accountID string, required bool) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET mfa_required = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		required, accountID)
}

// exec runs an UPDATE that targets a single account and maps a zero-row
// outcome to ErrNotFound.
func (r *accountsRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
