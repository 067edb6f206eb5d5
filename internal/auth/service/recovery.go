package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/store"
	"github.com/ltphongssvn/autoloan-auth/pkg/cryptox"
)

// GenericRecoveryMessage is returned by every instruction-sending
// operation regardless of whether the email matched an account. Varying
// the message would let callers probe which addresses are registered.
const GenericRecoveryMessage = "If your email address exists in our database, you will receive instructions shortly."

// ResetTokenMaxAge bounds how long a password-reset token stays usable.
const ResetTokenMaxAge = time.Hour

// ForgotPassword mints and stores a reset token when the email matches an
// account. The caller learns nothing either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.Store.Accounts().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.Store.Accounts().SetResetToken(ctx, account.ID, cryptox.FingerprintToken(token), now); err != nil {
		return err
	}

	s.Notifier.ResetInstructions(ctx, account.Email, token)
	return nil
}

// ResetPassword consumes a reset token younger than ResetTokenMaxAge and
// replaces the account's password hash. Existing sessions stay valid;
// only the credential changes.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return ErrInvalidToken
	}

	account, err := s.Store.Accounts().GetByResetToken(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	if account.ResetSentAt == nil || time.Since(*account.ResetSentAt) > ResetTokenMaxAge {
		return ErrInvalidToken
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.Store.Accounts().ResetPassword(ctx, account.ID, hash)
}

// ResendConfirmation mints a fresh confirmation token for unconfirmed
// accounts. Confirmed or unknown addresses are silently ignored.
func (s *AuthService) ResendConfirmation(ctx context.Context, email string) error {
	account, err := s.Store.Accounts().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if account.Confirmed() {
		return nil
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.Store.Accounts().SetConfirmationToken(ctx, account.ID, cryptox.FingerprintToken(token), now); err != nil {
		return err
	}

	s.Notifier.ConfirmationInstructions(ctx, account.Email, token)
	return nil
}

// ConfirmEmail consumes a confirmation token and stamps the account as
// confirmed.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	account, err := s.Store.Accounts().GetByConfirmationToken(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if account.Confirmed() {
		return ErrInvalidToken
	}

	return s.Store.Accounts().ConfirmEmail(ctx, account.ID, time.Now().UTC())
}

// ResendUnlock mints a fresh unlock token for locked accounts. Unlocked
// or unknown addresses are silently ignored.
func (s *AuthService) ResendUnlock(ctx context.Context, email string) error {
	account, err := s.Store.Accounts().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if !account.Locked() {
		return nil
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	lockedAt := *account.LockedAt
	if err := s.Store.Accounts().Lock(ctx, account.ID, lockedAt, cryptox.FingerprintToken(token)); err != nil {
		return err
	}

	s.Notifier.UnlockInstructions(ctx, account.Email, token)
	return nil
}

// UnlockAccount consumes an unlock token, clearing the lockout timestamp
// and resetting the failed-attempt counter to zero.
func (s *AuthService) UnlockAccount(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	account, err := s.Store.Accounts().GetByUnlockToken(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	return s.Store.Accounts().Unlock(ctx, account.ID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
