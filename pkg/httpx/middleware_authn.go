package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/ltphongssvn/autoloan-auth/pkg/jwtx"
	"github.com/ltphongssvn/autoloan-auth/pkg/slogx"
)

// RevocationChecker is the denylist lookup consulted after signature and
// expiry checks pass. A structurally valid token whose jti is on the list
// must be treated as unauthenticated.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthnMiddleware validates the bearer token and attaches the caller's
// identity and granted scopes to the request context.
//
// All failure modes (missing header, forged, expired, revoked) produce the
// same 401 so probing clients can't tell which check failed.
func AuthnMiddleware(v jwtx.Verifier, revocations RevocationChecker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("jwt verify failed", "err", err)
				return
			}

			revoked, err := revocations.IsRevoked(ctx, claims.ID)
			if err != nil {
				// Fail closed: an unreadable denylist must not admit tokens.
				log.Error("revocation check failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}
			if revoked {
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = contextWithAuth(ctx, claims)
			ctx = slogx.WithAccountID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyAccountID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyEmail, c.Email)
	ctx = context.WithValue(ctx, CtxKeyRole, c.Role)
	ctx = context.WithValue(ctx, CtxKeyScopes, c.Scopes)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
