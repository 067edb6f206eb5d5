package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/domain"
	"github.com/ltphongssvn/autoloan-auth/internal/auth/store"

	_ "modernc.org/sqlite"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the repos can run
// inside or outside a transaction without duplication.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer at a time; a single pooled connection also
	// keeps ":memory:" databases visible across queries.
	db.SetMaxOpenConns(1)

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Ensure rollback is called if we panic or return early with error
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err // rollback happens in defer
	}

	return tx.Commit()
}

func (s *Store) Accounts() store.Accounts       { return &accountsRepo{db: s.db} }
func (s *Store) Roles() store.Roles             { return &rolesRepo{db: s.db} }
func (s *Store) Revocations() store.Revocations { return &revocationsRepo{db: s.db} }
func (s *Store) BackupCodes() store.BackupCodes { return &backupCodesRepo{db: s.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite surfaces constraint failures as plain errors with
	// the sqlite message text; there is no typed error to match on.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		val := ns.String
		return &val
	}
	return nil
}

func mapOptionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

const accountColumns = `id, email, full_name, password_hash, role_id,
	failed_attempts, locked_at, unlock_token,
	confirmation_token, confirmation_sent_at, confirmed_at,
	reset_token, reset_sent_at,
	mfa_secret, mfa_enabled_at, mfa_required,
	sign_in_count, last_sign_in_at, current_sign_in_at,
	created_at, updated_at`

func scanAccount(row interface{ Scan(dest ...any) error }) (domain.Account, error) {
	var (
		a                                       domain.Account
		lockedAt, confirmationSentAt            sql.NullTime
		confirmedAt, resetSentAt                sql.NullTime
		mfaEnabledAt, lastSignIn, currentSignIn sql.NullTime
		unlockToken, confirmationToken          sql.NullString
		resetToken, mfaSecret                   sql.NullString
	)

	err := row.Scan(
		&a.ID, &a.Email, &a.FullName, &a.PasswordHash, &a.RoleID,
		&a.FailedAttempts, &lockedAt, &unlockToken,
		&confirmationToken, &confirmationSentAt, &confirmedAt,
		&resetToken, &resetSentAt,
		&mfaSecret, &mfaEnabledAt, &a.MFARequired,
		&a.SignInCount, &lastSignIn, &currentSignIn,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.LockedAt = mapNullTimePtr(lockedAt)
	a.UnlockToken = mapNullStringPtr(unlockToken)
	a.ConfirmationToken = mapNullStringPtr(confirmationToken)
	a.ConfirmationSentAt = mapNullTimePtr(confirmationSentAt)
	a.ConfirmedAt = mapNullTimePtr(confirmedAt)
	a.ResetToken = mapNullStringPtr(resetToken)
	a.ResetSentAt = mapNullTimePtr(resetSentAt)
	a.MFASecret = mapNullStringPtr(mfaSecret)
	a.MFAEnabledAt = mapNullTimePtr(mfaEnabledAt)
	a.LastSignInAt = mapNullTimePtr(lastSignIn)
	a.CurrentSignInAt = mapNullTimePtr(currentSignIn)

	return a, nil
}
