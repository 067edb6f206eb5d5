package http

import (
	"net/http"
	"time"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/store"
	"github.com/ltphongssvn/autoloan-auth/pkg/httpx"
	"github.com/ltphongssvn/autoloan-auth/pkg/slogx"
)

// MeHandler returns the authenticated account's profile.
type MeHandler struct {
	Store store.Store
}

type meResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name,omitempty"`
	Role         string     `json:"role"`
	Scopes       []string   `json:"scopes"`
	Confirmed    bool       `json:"confirmed"`
	MFAEnabled   bool       `json:"mfa_enabled"`
	SignInCount  int        `json:"sign_in_count"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	account, err := h.Store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		log.Error("failed to load account", "account_id", accountID, "err", err)
		writeServiceError(w, err)
		return
	}

	role, err := h.Store.Roles().GetByID(ctx, account.RoleID)
	if err != nil {
		log.Error("failed to load role", "account_id", accountID, "err", err)
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, meResponse{
		ID:           account.ID,
		Email:        account.Email,
		FullName:     account.FullName,
		Role:         role.Name,
		Scopes:       role.Scopes,
		Confirmed:    account.Confirmed(),
		MFAEnabled:   account.MFAEnabled(),
		SignInCount:  account.SignInCount,
		LastSignInAt: account.LastSignInAt,
		CreatedAt:    account.CreatedAt,
	})
}
