package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/service"
	"github.com/ltphongssvn/autoloan-auth/pkg/httpx"
	"github.com/ltphongssvn/autoloan-auth/pkg/slogx"
)

// AuthHandler handles signup, login, logout, and token refresh.
type AuthHandler struct {
	AuthService *service.AuthService
}

type signupRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTPCode  string `json:"otp_code,omitempty"`
}

// HandleSignup handles POST /v1/auth/signup.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	resp, err := h.AuthService.Signup(ctx, req.Email, req.FullName, req.Password)
	if err != nil {
		log.Warn("signup failed", "err", err)
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

// HandleLogin handles POST /v1/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}

	resp, err := h.AuthService.Login(ctx, req.Email, req.Password, req.OTPCode)
	if err != nil {
		log.Info("login rejected", "err", err)
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleLogout handles POST /v1/auth/logout. Always succeeds; a token
// that cannot be parsed names a session that is already unusable.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := bearerToken(r)
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Authorization header with bearer token required")
		return
	}

	if err := h.AuthService.Logout(ctx, token); err != nil {
		log.Error("logout failed", "err", err)
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh handles POST /v1/auth/refresh.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := bearerToken(r)
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Authorization header with bearer token required")
		return
	}

	resp, err := h.AuthService.Refresh(ctx, token)
	if err != nil {
		log.Info("refresh rejected", "err", err)
		if err == service.ErrInvalidToken {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Token signature or expiry check failed")
			return
		}
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
