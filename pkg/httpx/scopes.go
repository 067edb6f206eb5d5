package httpx

import (
	"net/http"
	"strings"
)

// ScopeTable is a static mapping from route patterns to required scope
// sets. It is populated once during route registration and treated as
// immutable afterwards; routes with no entry require no scopes.
type ScopeTable struct {
	required map[string][]string
}

func NewScopeTable() *ScopeTable {
	return &ScopeTable{required: make(map[string][]string)}
}

// Require declares the scopes a route needs. Calling it again for the same
// pattern overrides the earlier declaration, which lets a specific route
// tighten what a broader registration set up.
func (t *ScopeTable) Require(pattern string, scopes ...string) {
	t.required[pattern] = scopes
}

// Required returns the scope set declared for a route pattern, or nil.
func (t *ScopeTable) Required(pattern string) []string {
	return t.required[pattern]
}

// Middleware enforces the table against the matched route. The caller's
// granted set must be a superset of the route's requirement; otherwise the
// downstream handler is never invoked and the denial names both sets.
func (t *ScopeTable) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			required := t.required[r.Pattern]
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			granted := ScopesFromContext(r.Context())
			have := make(map[string]struct{}, len(granted))
			for _, s := range granted {
				have[s] = struct{}{}
			}

			for _, req := range required {
				if _, ok := have[req]; !ok {
					writeScopeDenial(w, required, granted)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeScopeDenial emits the RFC 6750 insufficient_scope header plus a
// structured body naming the required and available scope sets.
func writeScopeDenial(w http.ResponseWriter, required, available []string) {
	if available == nil {
		available = []string{}
	}
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]any{
		"error":     "insufficient_scope",
		"required":  required,
		"available": available,
	})
}
