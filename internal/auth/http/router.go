package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/service"
	"github.com/ltphongssvn/autoloan-auth/internal/auth/store"
	"github.com/ltphongssvn/autoloan-auth/pkg/httpx"
	"github.com/ltphongssvn/autoloan-auth/pkg/jwtx"
	"github.com/ltphongssvn/autoloan-auth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	revocations  httpx.RevocationChecker
	scopes       *httpx.ScopeTable
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	AuthService *service.AuthService
	MFAService  *service.MFAService
}

func NewRouter(
	verifier jwtx.Verifier,
	revocations httpx.RevocationChecker,
	rateWindow *httpx.RateWindowTracker,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		revocations:  revocations,
		scopes:       httpx.NewScopeTable(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Global middleware chain: every response carries the access log and
	// the advisory rate-window headers.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		rateWindow.Middleware(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerRecovery()
	r.registerMFA()
	r.registerMe()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps a handler with token verification, the revocation check,
// and the scope table. Scope requirements are registered against the
// route pattern so the table stays immutable after ApplyRoutes.
func (r *Router) secured(h http.Handler, pattern string, requiredScopes ...string) http.Handler {
	if len(requiredScopes) > 0 {
		r.scopes.Require(pattern, requiredScopes...)
	}
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier, r.revocations),
		r.scopes.Middleware(),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Credential endpoints get a hard burst limit on top of the
	// advisory window headers.
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitMiddleware(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitMiddleware(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitMiddleware(httpx.StrictLimit),
		),
	)

	// Logout accepts expired or revoked tokens, so it skips authn.
	r.Mux.Handle("POST /v1/auth/logout", http.HandlerFunc(h.HandleLogout))
}

func (r *Router) registerRecovery() {
	h := &RecoveryHandler{AuthService: r.AuthService}

	r.Mux.Handle("POST /v1/auth/password/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitMiddleware(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitMiddleware(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/confirmation/resend",
		httpx.Chain(http.HandlerFunc(h.HandleResendConfirmation),
			httpx.RateLimitMiddleware(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/confirm", http.HandlerFunc(h.HandleConfirm))
	r.Mux.Handle("POST /v1/auth/unlock/resend",
		httpx.Chain(http.HandlerFunc(h.HandleResendUnlock),
			httpx.RateLimitMiddleware(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/unlock", http.HandlerFunc(h.HandleUnlock))
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService, Store: r.store}

	r.Mux.Handle("POST /v1/mfa/totp/setup",
		r.secured(http.HandlerFunc(h.HandleSetup), "POST /v1/mfa/totp/setup"))
	r.Mux.Handle("POST /v1/mfa/totp/enable",
		r.secured(http.HandlerFunc(h.HandleEnable), "POST /v1/mfa/totp/enable"))
	r.Mux.Handle("POST /v1/mfa/totp/disable",
		r.secured(http.HandlerFunc(h.HandleDisable), "POST /v1/mfa/totp/disable"))
	r.Mux.Handle("POST /v1/mfa/totp/verify",
		r.secured(http.HandlerFunc(h.HandleVerify), "POST /v1/mfa/totp/verify"))
}

func (r *Router) registerMe() {
	h := &MeHandler{Store: r.store}

	r.Mux.Handle("GET /v1/me",
		r.secured(h, "GET /v1/me", "profile:read"))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
