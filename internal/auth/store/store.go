package store

import (
	"context"
	"errors"
	"time"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, and
// redis for the revocation denylist) implement this. It exposes
// sub-repositories to keep concerns tidy and testable.
type Store interface {
	Accounts() Accounts
	Roles() Roles
	Revocations() Revocations
	BackupCodes() BackupCodes

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back when fn returns
	// an error, committed otherwise. This is the recommended way to handle
	// multi-step operations that must be atomic (e.g., enabling MFA and
	// writing its backup codes).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetByID returns an account by id.
	GetByID(ctx context.Context, id string) (domain.Account, error)

	// GetByEmail is used during login; email is unique.
	GetByEmail(ctx context.Context, email string) (domain.Account, error)

	// Create inserts a new account (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, a domain.Account) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error

	// RecordFailedAttempt atomically increments the failed-attempt counter
	// and returns the post-increment value. The increment happens inside
	// the database so two concurrent failures cannot both observe the
	// pre-increment count.
	RecordFailedAttempt(ctx context.Context, accountID string) (int, error)

	// Lock transitions the account to Locked and stores its single-use
	// unlock token.
	Lock(ctx context.Context, accountID string, lockedAt time.Time, unlockToken string) error

	// Unlock clears lockout state: locked_at, unlock_token, and the
	// failed-attempt counter.
	Unlock(ctx context.Context, accountID string) error

	// GetByUnlockToken resolves a pending unlock token.
	GetByUnlockToken(ctx context.Context, token string) (domain.Account, error)

	// RecordSignIn resets the failed-attempt counter and advances sign-in
	// bookkeeping (count, last/current sign-in time).
	RecordSignIn(ctx context.Context, accountID string, at time.Time) error

	// SetConfirmationToken stores a fresh confirmation token and its
	// issue timestamp.
	SetConfirmationToken(ctx context.Context, accountID, token string, at time.Time) error

	// GetByConfirmationToken resolves a pending confirmation token.
	GetByConfirmationToken(ctx context.Context, token string) (domain.Account, error)

	// ConfirmEmail stamps the confirmation time and clears the token.
	ConfirmEmail(ctx context.Context, accountID string, at time.Time) error

	// SetResetToken stores a fresh password-reset token and its issue
	// timestamp.
	SetResetToken(ctx context.Context, accountID, token string, at time.Time) error

	// GetByResetToken resolves a pending password-reset token.
	GetByResetToken(ctx context.Context, token string) (domain.Account, error)

	// ResetPassword replaces the password hash and clears the reset token.
	ResetPassword(ctx context.Context, accountID, newHash string) error

	// ClearStaleResetTokens drops reset tokens issued before the cutoff
	// (housekeeping).
	ClearStaleResetTokens(ctx context.Context, cutoff time.Time) error

	// UpdateMFASecret sets the TOTP secret (PendingEnable state).
	UpdateMFASecret(ctx context.Context, accountID string, secret string) error

	// EnableMFA marks enrollment complete (sets mfa_enabled_at).
	EnableMFA(ctx context.Context, accountID string, at time.Time) error

	// DisableMFA clears the secret, the enabled timestamp, and the
	// required flag.
	DisableMFA(ctx context.Context, accountID string) error

	// SetMFARequired flips the policy flag independently of enrollment.
	SetMFARequired(ctx context.Context, accountID string, required bool) error
}

type Roles interface {
	// GetByID fetches a role by its id.
	GetByID(ctx context.Context, id string) (domain.Role, error)

	// GetByName fetches a role by its unique name (e.g. "CUSTOMER").
	GetByName(ctx context.Context, name string) (domain.Role, error)

	// List returns all roles in the system.
	List(ctx context.Context) ([]domain.Role, error)
}

type Revocations interface {
	// Record denylists a token identifier until its natural expiry.
	// Recording an already-revoked identifier is a no-op.
	Record(ctx context.Context, jti string, expiresAt time.Time) error

	// IsRevoked reports whether the identifier is on the denylist.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// DeleteExpired purges entries whose expiry has passed (housekeeping).
	DeleteExpired(ctx context.Context) error
}

type BackupCodes interface {
	// Create stores a backup code fingerprint for an account.
	Create(ctx context.Context, accountID string, codeHash string) error

	// Consume atomically removes the code if present and reports whether
	// it was there. Two concurrent calls with the same code cannot both
	// observe true.
	Consume(ctx context.Context, accountID string, codeHash string) (bool, error)

	// DeleteAll removes every backup code for an account.
	DeleteAll(ctx context.Context, accountID string) error

	// Count returns the number of unconsumed codes for an account.
	Count(ctx context.Context, accountID string) (int, error)
}
