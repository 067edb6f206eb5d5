package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/domain"
	"github.com/ltphongssvn/autoloan-auth/internal/auth/store"
	"github.com/ltphongssvn/autoloan-auth/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// DefaultBackupCodeCount is how many single-use backup codes are
	// generated at enablement.
	DefaultBackupCodeCount = 10
	// DefaultBackupCodeLength is the hex length of each backup code.
	DefaultBackupCodeLength = 8

	qrImageSize = 200
)

var (
	ErrInvalidMFACode    = errors.New("invalid_mfa_code")
	ErrMFANotEnrolled    = errors.New("mfa_not_enrolled")
	ErrMFANotEnabled     = errors.New("mfa_not_enabled")
	ErrMFAAlreadyEnabled = errors.New("mfa_already_enabled")
)

type MFAService struct {
	Store  store.Store
	Issuer string // Issuer name shown in authenticator apps

	BackupCodeCount  int
	BackupCodeLength int
}

func (s *MFAService) backupCodeCount() int {
	if s.BackupCodeCount > 0 {
		return s.BackupCodeCount
	}
	return DefaultBackupCodeCount
}

func (s *MFAService) backupCodeLength() int {
	if s.BackupCodeLength > 0 {
		return s.BackupCodeLength
	}
	return DefaultBackupCodeLength
}

// totpOpts are fixed for authenticator-app compatibility.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1, // accept the adjacent 30s step either side
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Setup starts TOTP enrollment: it generates a fresh secret, stores it
// without enabling MFA, and returns the secret with its provisioning URI
// and a scannable QR image. Calling Setup again before Enable replaces
// the pending secret.
func (s *MFAService) Setup(ctx context.Context, accountID string) (*domain.MFASetupResponse, error) {
	account, err := s.Store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.MFAEnabled() {
		return nil, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: account.Email,
		Period:      30,
		SecretSize:  20, // 160-bit secret
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate TOTP key: %w", err)
	}

	if err := s.Store.Accounts().UpdateMFASecret(ctx, accountID, key.Secret()); err != nil {
		return nil, fmt.Errorf("store MFA secret: %w", err)
	}

	img, err := key.Image(qrImageSize, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("render QR code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode QR code: %w", err)
	}

	return &domain.MFASetupResponse{
		Secret:            key.Secret(),
		ProvisioningURI:   key.URL(),
		ProvisioningImage: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:            s.Issuer,
		Account:           account.Email,
	}, nil
}

// Enable completes enrollment: the caller proves possession of the
// authenticator by presenting a live code, then backup codes are minted.
// The plaintext codes are returned exactly once; only fingerprints are
// stored.
func (s *MFAService) Enable(ctx context.Context, accountID string, code string) (*domain.MFAEnableResponse, error) {
	account, err := s.Store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.MFAEnabled() {
		return nil, ErrMFAAlreadyEnabled
	}
	if account.MFASecret == nil || *account.MFASecret == "" {
		return nil, ErrMFANotEnrolled
	}

	valid, err := totp.ValidateCustom(code, *account.MFASecret, time.Now().UTC(), totpOpts)
	if err != nil || !valid {
		return nil, ErrInvalidMFACode
	}

	codes := make([]string, s.backupCodeCount())
	for i := range codes {
		c, err := cryptox.GenerateHexCode(s.backupCodeLength())
		if err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}
		codes[i] = c
	}

	now := time.Now().UTC()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, c := range codes {
			if err := tx.BackupCodes().Create(ctx, accountID, cryptox.FingerprintToken(c)); err != nil {
				return fmt.Errorf("store backup code: %w", err)
			}
		}
		if err := tx.Accounts().EnableMFA(ctx, accountID, now); err != nil {
			return err
		}
		// From here on every login must present a second factor.
		return tx.Accounts().SetMFARequired(ctx, accountID, true)
	})
	if err != nil {
		return nil, err
	}

	return &domain.MFAEnableResponse{
		MFAEnabled:  true,
		BackupCodes: codes,
	}, nil
}

// Disable turns MFA off after a successful second-factor check. The
// secret, the enabled timestamp, the required flag, and any remaining
// backup codes are all cleared.
func (s *MFAService) Disable(ctx context.Context, accountID string, code string) error {
	account, err := s.Store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.MFAEnabled() {
		return ErrMFANotEnabled
	}

	if _, err := s.Verify(ctx, account, code); err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAll(ctx, account.ID); err != nil {
			return err
		}
		return tx.Accounts().DisableMFA(ctx, account.ID)
	})
}

// Verify checks a second-factor code for an MFA-enabled account. A live
// TOTP code is tried first; otherwise the code is treated as a backup
// code and consumed atomically, so each backup code works exactly once.
func (s *MFAService) Verify(ctx context.Context, account domain.Account, code string) (*domain.MFAVerifyResult, error) {
	if !account.MFAEnabled() || account.MFASecret == nil {
		return nil, ErrMFANotEnabled
	}

	valid, err := totp.ValidateCustom(code, *account.MFASecret, time.Now().UTC(), totpOpts)
	if err == nil && valid {
		return &domain.MFAVerifyResult{Verified: true}, nil
	}

	consumed, err := s.Store.BackupCodes().Consume(ctx, account.ID, cryptox.FingerprintToken(code))
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrInvalidMFACode
	}

	return &domain.MFAVerifyResult{Verified: true, BackupCodeUsed: true}, nil
}
