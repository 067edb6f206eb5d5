package service

import (
	"context"
	"testing"
	"time"

	"github.com/ltphongssvn/autoloan-auth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestForgotAndResetPassword(t *testing.T) {
	t.Parallel()

	svc, notifier := newTestAuth(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "reset@example.com", "Reset", "original password")
	require.NoError(t, err)

	t.Run("unknown email is silently accepted", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, "ghost@example.com"))
		require.Empty(t, notifier.resetToken)
	})

	t.Run("known email mints a token", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, "reset@example.com"))
		require.NotEmpty(t, notifier.resetToken)
	})

	t.Run("reset replaces the password", func(t *testing.T) {
		require.NoError(t, svc.ResetPassword(ctx, notifier.resetToken, "brand new password"))

		_, err := svc.Login(ctx, "reset@example.com", "original password", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		resp, err := svc.Login(ctx, "reset@example.com", "brand new password", "")
		require.NoError(t, err)
		require.NotEmpty(t, resp.AccessToken)
	})

	t.Run("reset token is single use", func(t *testing.T) {
		require.ErrorIs(t, svc.ResetPassword(ctx, notifier.resetToken, "again"), ErrInvalidToken)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		require.ErrorIs(t, svc.ResetPassword(ctx, "bogus", "whatever"), ErrInvalidToken)
	})

	t.Run("stale token is rejected", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, "reset@example.com"))

		account, err := svc.Store.Accounts().GetByEmail(ctx, "reset@example.com")
		require.NoError(t, err)

		// Age the token past its window.
		stale := time.Now().UTC().Add(-2 * ResetTokenMaxAge)
		require.NoError(t, svc.Store.Accounts().SetResetToken(
			ctx, account.ID, cryptox.FingerprintToken(notifier.resetToken), stale))

		require.ErrorIs(t, svc.ResetPassword(ctx, notifier.resetToken, "too late"), ErrInvalidToken)
	})
}

func TestConfirmationFlow(t *testing.T) {
	t.Parallel()

	svc, notifier := newTestAuth(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "confirm@example.com", "Confirm", "some password")
	require.NoError(t, err)
	firstToken := notifier.confirmationToken
	require.NotEmpty(t, firstToken)

	t.Run("resend replaces the token", func(t *testing.T) {
		require.NoError(t, svc.ResendConfirmation(ctx, "confirm@example.com"))
		require.NotEqual(t, firstToken, notifier.confirmationToken)

		// The superseded token no longer works.
		require.ErrorIs(t, svc.ConfirmEmail(ctx, firstToken), ErrInvalidToken)
	})

	t.Run("confirm stamps the account", func(t *testing.T) {
		require.NoError(t, svc.ConfirmEmail(ctx, notifier.confirmationToken))

		account, err := svc.Store.Accounts().GetByEmail(ctx, "confirm@example.com")
		require.NoError(t, err)
		require.True(t, account.Confirmed())
	})

	t.Run("confirm twice is rejected", func(t *testing.T) {
		require.ErrorIs(t, svc.ConfirmEmail(ctx, notifier.confirmationToken), ErrInvalidToken)
	})

	t.Run("resend after confirmation is silently ignored", func(t *testing.T) {
		before := notifier.confirmationToken
		require.NoError(t, svc.ResendConfirmation(ctx, "confirm@example.com"))
		require.Equal(t, before, notifier.confirmationToken)
	})

	t.Run("resend for unknown email is silently ignored", func(t *testing.T) {
		require.NoError(t, svc.ResendConfirmation(ctx, "ghost@example.com"))
	})
}

func TestResendUnlock(t *testing.T) {
	t.Parallel()

	svc, notifier := newTestAuth(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "locked@example.com", "Locked", "the real password")
	require.NoError(t, err)

	t.Run("not locked yet means nothing is sent", func(t *testing.T) {
		require.NoError(t, svc.ResendUnlock(ctx, "locked@example.com"))
		require.Empty(t, notifier.unlockToken)
	})

	for i := 0; i < 5; i++ {
		_, _ = svc.Login(ctx, "locked@example.com", "wrong", "")
	}
	firstToken := notifier.unlockToken
	require.NotEmpty(t, firstToken)

	t.Run("resend replaces the unlock token", func(t *testing.T) {
		require.NoError(t, svc.ResendUnlock(ctx, "locked@example.com"))
		require.NotEqual(t, firstToken, notifier.unlockToken)

		require.ErrorIs(t, svc.UnlockAccount(ctx, firstToken), ErrInvalidToken)
		require.NoError(t, svc.UnlockAccount(ctx, notifier.unlockToken))
	})
}
