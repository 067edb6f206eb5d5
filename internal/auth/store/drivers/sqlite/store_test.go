package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/domain"
	"github.com/ltphongssvn/autoloan-auth/internal/auth/store"
	"github.com/ltphongssvn/autoloan-auth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func seedAccount(t *testing.T, s *Store, email string) domain.Account {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	a := domain.Account{
		ID:           idx.New().String(),
		Email:        email,
		FullName:     "Test Account",
		PasswordHash: "argon2id$dummy",
		RoleID:       "role_customer",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Accounts().Create(context.Background(), a))

	return a
}

func TestAccountsCRUD(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	seeded := seedAccount(t, s, "alice@example.com")

	t.Run("get by id and email", func(t *testing.T) {
		got, err := s.Accounts().GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", got.Email)
		require.Equal(t, "role_customer", got.RoleID)
		require.False(t, got.Locked())
		require.False(t, got.Confirmed())

		got, err = s.Accounts().GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, seeded.ID, got.ID)
	})

	t.Run("missing account maps to ErrNotFound", func(t *testing.T) {
		_, err := s.Accounts().GetByID(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Accounts().GetByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate email maps to ErrAlreadyExists", func(t *testing.T) {
		dup := seeded
		dup.ID = idx.New().String()
		err := s.Accounts().Create(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("update password hash", func(t *testing.T) {
		require.NoError(t, s.Accounts().UpdatePasswordHash(ctx, seeded.ID, "argon2id$new"))

		got, err := s.Accounts().GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.Equal(t, "argon2id$new", got.PasswordHash)
	})
}

func TestAccountsLockout(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, s, "bob@example.com")

	t.Run("failed attempts increment", func(t *testing.T) {
		for want := 1; want <= 3; want++ {
			count, err := s.Accounts().RecordFailedAttempt(ctx, a.ID)
			require.NoError(t, err)
			require.Equal(t, want, count)
		}
	})

	t.Run("lock stores the unlock token", func(t *testing.T) {
		lockedAt := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, s.Accounts().Lock(ctx, a.ID, lockedAt, "unlock-token-1"))

		got, err := s.Accounts().GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.True(t, got.Locked())
		require.NotNil(t, got.UnlockToken)
		require.Equal(t, "unlock-token-1", *got.UnlockToken)

		byToken, err := s.Accounts().GetByUnlockToken(ctx, "unlock-token-1")
		require.NoError(t, err)
		require.Equal(t, a.ID, byToken.ID)
	})

	t.Run("unlock clears lockout state", func(t *testing.T) {
		require.NoError(t, s.Accounts().Unlock(ctx, a.ID))

		got, err := s.Accounts().GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.False(t, got.Locked())
		require.Nil(t, got.UnlockToken)
		require.Zero(t, got.FailedAttempts)
	})

	t.Run("sign-in resets the counter", func(t *testing.T) {
		_, err := s.Accounts().RecordFailedAttempt(ctx, a.ID)
		require.NoError(t, err)

		at := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, s.Accounts().RecordSignIn(ctx, a.ID, at))

		got, err := s.Accounts().GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Zero(t, got.FailedAttempts)
		require.Equal(t, 1, got.SignInCount)
		require.NotNil(t, got.CurrentSignInAt)
	})
}

func TestAccountsTokens(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, s, "carol@example.com")
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("confirmation round trip", func(t *testing.T) {
		require.NoError(t, s.Accounts().SetConfirmationToken(ctx, a.ID, "confirm-1", now))

		got, err := s.Accounts().GetByConfirmationToken(ctx, "confirm-1")
		require.NoError(t, err)
		require.Equal(t, a.ID, got.ID)

		require.NoError(t, s.Accounts().ConfirmEmail(ctx, a.ID, now))

		got, err = s.Accounts().GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.True(t, got.Confirmed())
		require.Nil(t, got.ConfirmationToken)
	})

	t.Run("reset round trip", func(t *testing.T) {
		require.NoError(t, s.Accounts().SetResetToken(ctx, a.ID, "reset-1", now))

		got, err := s.Accounts().GetByResetToken(ctx, "reset-1")
		require.NoError(t, err)
		require.Equal(t, a.ID, got.ID)

		require.NoError(t, s.Accounts().ResetPassword(ctx, a.ID, "argon2id$reset"))

		got, err = s.Accounts().GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, "argon2id$reset", got.PasswordHash)
		require.Nil(t, got.ResetToken)
	})

	t.Run("stale reset tokens are cleared", func(t *testing.T) {
		old := now.Add(-48 * time.Hour)
		require.NoError(t, s.Accounts().SetResetToken(ctx, a.ID, "reset-stale", old))
		require.NoError(t, s.Accounts().ClearStaleResetTokens(ctx, now.Add(-24*time.Hour)))

		_, err := s.Accounts().GetByResetToken(ctx, "reset-stale")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestAccountsMFA(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, s, "dave@example.com")
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.Accounts().UpdateMFASecret(ctx, a.ID, "JBSWY3DPEHPK3PXP"))

	got, err := s.Accounts().GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MFASecret)
	require.False(t, got.MFAEnabled())

	require.NoError(t, s.Accounts().EnableMFA(ctx, a.ID, now))
	require.NoError(t, s.Accounts().SetMFARequired(ctx, a.ID, true))

	got, err = s.Accounts().GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, got.MFAEnabled())
	require.True(t, got.MFARequired)

	require.NoError(t, s.Accounts().DisableMFA(ctx, a.ID))

	got, err = s.Accounts().GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Nil(t, got.MFASecret)
	require.False(t, got.MFAEnabled())
	require.False(t, got.MFARequired)
}

func TestRolesSeeded(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	roles, err := s.Roles().List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 3)

	customer, err := s.Roles().GetByName(ctx, domain.RoleCustomer)
	require.NoError(t, err)
	require.Equal(t, "role_customer", customer.ID)
	require.Contains(t, customer.Scopes, "application:write")
	require.NotContains(t, customer.Scopes, "admin:write")

	admin, err := s.Roles().GetByID(ctx, "role_admin")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.Name)
	require.Contains(t, admin.Scopes, "admin:write")
}

func TestRevocations(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	t.Run("record then check", func(t *testing.T) {
		revoked, err := s.Revocations().IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		require.False(t, revoked)

		require.NoError(t, s.Revocations().Record(ctx, "jti-1", time.Now().Add(time.Hour)))

		revoked, err = s.Revocations().IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		require.True(t, revoked)
	})

	t.Run("recording twice is idempotent", func(t *testing.T) {
		require.NoError(t, s.Revocations().Record(ctx, "jti-1", time.Now().Add(time.Hour)))
	})

	t.Run("expired entries are purged", func(t *testing.T) {
		require.NoError(t, s.Revocations().Record(ctx, "jti-old", time.Now().Add(-time.Hour)))
		require.NoError(t, s.Revocations().DeleteExpired(ctx))

		revoked, err := s.Revocations().IsRevoked(ctx, "jti-old")
		require.NoError(t, err)
		require.False(t, revoked)

		// Unexpired entries survive the sweep.
		revoked, err = s.Revocations().IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		require.True(t, revoked)
	})
}

func TestBackupCodes(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, s, "erin@example.com")

	for _, hash := range []string{"hash-1", "hash-2", "hash-3"} {
		require.NoError(t, s.BackupCodes().Create(ctx, a.ID, hash))
	}

	count, err := s.BackupCodes().Count(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	t.Run("consume is single use", func(t *testing.T) {
		ok, err := s.BackupCodes().Consume(ctx, a.ID, "hash-2")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.BackupCodes().Consume(ctx, a.ID, "hash-2")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("unknown code does not consume", func(t *testing.T) {
		ok, err := s.BackupCodes().Consume(ctx, a.ID, "hash-9")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("delete all", func(t *testing.T) {
		require.NoError(t, s.BackupCodes().DeleteAll(ctx, a.ID))

		count, err := s.BackupCodes().Count(ctx, a.ID)
		require.NoError(t, err)
		require.Zero(t, count)
	})
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, s, "frank@example.com")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().Create(ctx, a.ID, "tx-hash"); err != nil {
			return err
		}
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	count, err := s.BackupCodes().Count(ctx, a.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}
