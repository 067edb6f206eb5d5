package http

import (
	"encoding/json"
	"net/http"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/service"
	"github.com/ltphongssvn/autoloan-auth/internal/auth/store"
	"github.com/ltphongssvn/autoloan-auth/pkg/httpx"
	"github.com/ltphongssvn/autoloan-auth/pkg/slogx"
)

// MFAHandler handles all MFA-related endpoints. Every route is behind
// the authn middleware, so the account id always comes from the context.
type MFAHandler struct {
	MFAService *service.MFAService
	Store      store.Store
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

// HandleSetup handles POST /v1/mfa/totp/setup.
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	resp, err := h.MFAService.Setup(ctx, accountID)
	if err != nil {
		log.Warn("MFA setup failed", "account_id", accountID, "err", err)
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleEnable handles POST /v1/mfa/totp/enable. Returns the backup
// codes; this is the only time they are visible in plaintext.
func (h *MFAHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	var req mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	resp, err := h.MFAService.Enable(ctx, accountID, req.Code)
	if err != nil {
		log.Warn("MFA enable failed", "account_id", accountID, "err", err)
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleDisable handles POST /v1/mfa/totp/disable.
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	var req mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	if err := h.MFAService.Disable(ctx, accountID, req.Code); err != nil {
		log.Warn("MFA disable failed", "account_id", accountID, "err", err)
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"mfa_enabled": false})
}

// HandleVerify handles POST /v1/mfa/totp/verify: a standalone check of a
// second-factor code for an already-authenticated session.
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	var req mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	account, err := h.Store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		log.Error("failed to load account", "account_id", accountID, "err", err)
		writeServiceError(w, err)
		return
	}

	result, err := h.MFAService.Verify(ctx, account, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}
