package http

import (
	"errors"
	"net/http"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/service"
	"github.com/ltphongssvn/autoloan-auth/pkg/httpx"
)

// writeServiceError maps service sentinels onto the wire. Unknown errors
// become opaque 500s; details stay in the log.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_credentials", "Invalid email or password")
	case errors.Is(err, service.ErrAccountLocked):
		httpx.WriteError(w, http.StatusLocked,
			"account_locked", "Account is locked due to repeated failed attempts")
	case errors.Is(err, service.ErrMFARequired):
		httpx.WriteError(w, http.StatusUnauthorized,
			"mfa_required", "A second factor is required to complete login")
	case errors.Is(err, service.ErrInvalidMFACode):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_mfa_code", "The provided code is not valid")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusBadRequest,
			"email_taken", "An account with this email already exists")
	case errors.Is(err, service.ErrMFAAlreadyEnabled),
		errors.Is(err, service.ErrMFANotEnrolled),
		errors.Is(err, service.ErrMFANotEnabled):
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_mfa_state", err.Error())
	default:
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "Something went wrong")
	}
}
