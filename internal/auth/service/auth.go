package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/domain"
	"github.com/ltphongssvn/autoloan-auth/internal/auth/store"
	"github.com/ltphongssvn/autoloan-auth/pkg/cryptox"
	"github.com/ltphongssvn/autoloan-auth/pkg/idx"
	"github.com/ltphongssvn/autoloan-auth/pkg/jwtx"
	"github.com/ltphongssvn/autoloan-auth/pkg/slogx"
)

// DefaultLockoutThreshold is the number of consecutive failed password
// attempts after which an account locks.
const DefaultLockoutThreshold = 5

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountLocked      = errors.New("account_locked")
	ErrEmailTaken         = errors.New("email_taken")
	ErrMFARequired        = errors.New("mfa_required")
	ErrInvalidToken       = errors.New("invalid_token")
)

type AuthService struct {
	Store       store.Store
	Revocations store.Revocations
	Signer      *jwtx.HS256Signer
	Verifier    *jwtx.HS256Verifier
	MFA         *MFAService
	Notifier    Notifier

	Issuer           string
	AccessTTL        time.Duration
	LockoutThreshold int
}

func (s *AuthService) lockoutThreshold() int {
	if s.LockoutThreshold > 0 {
		return s.LockoutThreshold
	}
	return DefaultLockoutThreshold
}

// Signup registers a new account with the default CUSTOMER role, mints a
// confirmation token, and issues an access token immediately. The account
// can authenticate before confirming its email.
func (s *AuthService) Signup(ctx context.Context, email, fullName, password string) (*domain.TokenResponse, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role, err := s.Store.Roles().GetByName(ctx, domain.RoleCustomer)
	if err != nil {
		return nil, fmt.Errorf("load default role: %w", err)
	}

	confirmToken, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, fmt.Errorf("generate confirmation token: %w", err)
	}
	confirmHash := cryptox.FingerprintToken(confirmToken)

	account := domain.Account{
		ID:                 idx.New().String(),
		Email:              email,
		FullName:           strings.TrimSpace(fullName),
		PasswordHash:       hash,
		RoleID:             role.ID,
		ConfirmationToken:  &confirmHash,
		ConfirmationSentAt: &now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.Store.Accounts().Create(ctx, account); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.Notifier.ConfirmationInstructions(ctx, email, confirmToken)
	l.Info("account created", slog.String("account_id", account.ID))

	return s.issueToken(account, role)
}

// Login authenticates with email and password, enforcing lockout before
// any hash comparison. When the account has MFA enabled, otpCode must
// carry a valid TOTP or backup code; an empty otpCode yields
// ErrMFARequired so clients know to prompt for the second factor.
func (s *AuthService) Login(ctx context.Context, email, password, otpCode string) (*domain.TokenResponse, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// Locked accounts reject even the correct password.
	if account.Locked() {
		return nil, ErrAccountLocked
	}

	if err := cryptox.VerifyPassword(password, account.PasswordHash); err != nil {
		return nil, s.recordFailure(ctx, account)
	}

	if account.MFAEnabled() {
		if otpCode == "" {
			return nil, ErrMFARequired
		}
		if _, err := s.MFA.Verify(ctx, account, otpCode); err != nil {
			return nil, err
		}
	}

	if err := s.Store.Accounts().RecordSignIn(ctx, account.ID, now); err != nil {
		return nil, err
	}

	role, err := s.Store.Roles().GetByID(ctx, account.RoleID)
	if err != nil {
		return nil, err
	}

	l.Info("login succeeded", slog.String("account_id", account.ID))
	return s.issueToken(account, role)
}

// recordFailure bumps the failed-attempt counter and locks the account
// when the threshold is reached. The increment is atomic in the store, so
// concurrent failures cannot both observe a pre-threshold count.
func (s *AuthService) recordFailure(ctx context.Context, account domain.Account) error {
	l := slogx.FromContext(ctx)

	count, err := s.Store.Accounts().RecordFailedAttempt(ctx, account.ID)
	if err != nil {
		return err
	}

	if count >= s.lockoutThreshold() {
		unlockToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return err
		}
		unlockHash := cryptox.FingerprintToken(unlockToken)

		if err := s.Store.Accounts().Lock(ctx, account.ID, time.Now().UTC(), unlockHash); err != nil {
			return err
		}

		s.Notifier.UnlockInstructions(ctx, account.Email, unlockToken)
		l.Info("account locked after repeated failures",
			slog.String("account_id", account.ID),
			slog.Int("failed_attempts", count),
		)
		return ErrAccountLocked
	}

	return ErrInvalidCredentials
}

// Logout denylists the token's jti until the token would have expired
// anyway. Unparseable tokens are treated as already-dead sessions, so
// logout never fails from the client's point of view.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := jwtx.PeekClaims(token)
	if err != nil || claims.ID == "" {
		return nil
	}

	expiresAt := time.Now().UTC().Add(s.AccessTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return s.Revocations.Record(ctx, claims.ID, expiresAt)
}

// Refresh exchanges a token with a valid signature for a fresh one. The
// old token's revocation status is deliberately not consulted; the new
// token carries a new jti, and the account's current role and scopes.
func (s *AuthService) Refresh(ctx context.Context, token string) (*domain.TokenResponse, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	account, err := s.Store.Accounts().GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if account.Locked() {
		return nil, ErrAccountLocked
	}

	role, err := s.Store.Roles().GetByID(ctx, account.RoleID)
	if err != nil {
		return nil, err
	}

	return s.issueToken(account, role)
}

func (s *AuthService) issueToken(account domain.Account, role domain.Role) (*domain.TokenResponse, error) {
	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	claims := jwtx.NewAccessClaims(
		account.ID, account.Email, role.Name, role.Scopes,
		ttl, s.Issuer, time.Now().UTC(),
	)

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		Role:        role.Name,
	}, nil
}
