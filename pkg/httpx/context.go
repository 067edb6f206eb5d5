package httpx

import (
	"context"
)

type ctxKey string

const (
	CtxKeyAccountID ctxKey = "account_id"
	CtxKeyEmail     ctxKey = "email"
	CtxKeyRole      ctxKey = "role"
	CtxKeyScopes    ctxKey = "scopes"
	CtxKeyClaims    ctxKey = "claims" // full jwtx.Claims if a handler needs them
)

// AccountIDFromContext returns the authenticated account id, or "" when the
// request never passed the authn middleware.
func AccountIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyAccountID).(string); ok {
		return v
	}
	return ""
}

// ScopesFromContext returns the caller's granted scopes. It accepts either a
// []string or a space-joined string, since upstream components differ in how
// they stash the grant.
func ScopesFromContext(ctx context.Context) []string {
	switch v := ctx.Value(CtxKeyScopes).(type) {
	case []string:
		return v
	case string:
		return ParseSpaceDelimitedFields(v)
	}
	return nil
}
