package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the default lifetime for access tokens. The
// platform hands out long-lived tokens (no refresh-token table); revocation
// is handled by the denylist instead.
const DefaultAccessTokenTTL = 7 * 24 * time.Hour

// Claims are the access-token claims used across the service. We keep
// changes additive to preserve compatibility for clients that already
// decode these tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the authenticated account.
	Email string `json:"email,omitempty"`

	// Role is the account's capability tier (e.g. "CUSTOMER", "AGENT").
	Role string `json:"role,omitempty"`

	// Scopes granted to the account, resolved from its role at issue time.
	Scopes []string `json:"scopes,omitempty"`
}

// NewAccessClaims builds minimally-correct claims with a fresh jti.
func NewAccessClaims(
	subject, email, role string,
	scopes []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email:  email,
		Role:   role,
		Scopes: scopes,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
