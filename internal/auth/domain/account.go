package domain

import "time"

type Account struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string // argon2id encoded
	RoleID       string // Foreign key to roles table

	// Lockout state. LockedAt non-nil means the account must not
	// authenticate via password until unlocked, regardless of correctness.
	FailedAttempts int
	LockedAt       *time.Time
	UnlockToken    *string // single-use, minted at lockout

	// Email confirmation state.
	ConfirmationToken  *string
	ConfirmationSentAt *time.Time
	ConfirmedAt        *time.Time

	// Password reset state.
	ResetToken  *string
	ResetSentAt *time.Time

	// MFA state. A secret with no MFAEnabledAt timestamp is pending
	// enablement; MFARequired is independent of the secret being present.
	MFASecret    *string
	MFAEnabledAt *time.Time
	MFARequired  bool

	// Sign-in bookkeeping.
	SignInCount     int
	LastSignInAt    *time.Time
	CurrentSignInAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Locked reports whether the account is in the Locked state.
func (a Account) Locked() bool { return a.LockedAt != nil }

// MFAEnabled reports whether MFA enrollment has been completed.
func (a Account) MFAEnabled() bool { return a.MFAEnabledAt != nil }

// Confirmed reports whether the account's email has been confirmed.
func (a Account) Confirmed() bool { return a.ConfirmedAt != nil }
