package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/service"
	"github.com/ltphongssvn/autoloan-auth/pkg/httpx"
	"github.com/ltphongssvn/autoloan-auth/pkg/slogx"
)

// RecoveryHandler covers the email-driven flows: password reset, email
// confirmation, and account unlock.
type RecoveryHandler struct {
	AuthService *service.AuthService
}

type emailRequest struct {
	Email string `json:"email"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// HandleForgotPassword handles POST /v1/auth/password/forgot. The reply
// is the same whether or not the email matched an account.
func (h *RecoveryHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.handleInstructionRequest(w, r, h.AuthService.ForgotPassword)
}

// HandleResendConfirmation handles POST /v1/auth/confirmation/resend.
func (h *RecoveryHandler) HandleResendConfirmation(w http.ResponseWriter, r *http.Request) {
	h.handleInstructionRequest(w, r, h.AuthService.ResendConfirmation)
}

// HandleResendUnlock handles POST /v1/auth/unlock/resend.
func (h *RecoveryHandler) HandleResendUnlock(w http.ResponseWriter, r *http.Request) {
	h.handleInstructionRequest(w, r, h.AuthService.ResendUnlock)
}

func (h *RecoveryHandler) handleInstructionRequest(
	w http.ResponseWriter,
	r *http.Request,
	send func(ctx context.Context, email string) error,
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := send(ctx, req.Email); err != nil {
		// The generic reply still goes out; enumeration safety beats
		// error transparency here. The failure is only logged.
		log.Error("instruction delivery failed", "err", err)
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": service.GenericRecoveryMessage,
	})
}

// HandleResetPassword handles POST /v1/auth/password/reset.
func (h *RecoveryHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token and password are required")
		return
	}

	if err := h.AuthService.ResetPassword(ctx, req.Token, req.Password); err != nil {
		writeRecoveryError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// HandleConfirm handles POST /v1/auth/confirm.
func (h *RecoveryHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	if err := h.AuthService.ConfirmEmail(ctx, req.Token); err != nil {
		writeRecoveryError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Email confirmed"})
}

// HandleUnlock handles POST /v1/auth/unlock.
func (h *RecoveryHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	if err := h.AuthService.UnlockAccount(ctx, req.Token); err != nil {
		writeRecoveryError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Account unlocked"})
}

// writeRecoveryError maps a bad recovery token to 404: from the caller's
// perspective the token simply does not name anything.
func writeRecoveryError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrInvalidToken) {
		httpx.WriteError(w, http.StatusNotFound, "token_not_found", "Unknown or expired token")
		return
	}
	writeServiceError(w, err)
}
