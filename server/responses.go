package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nexus-universe/nexus-auth/accounts"
	"github.com/nexus-universe/nexus-auth/auth"
)

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Field       string `json:"field,omitempty"`
	LockedUntil string `json:"locked_until,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to encode response body")
	}
}

// writeServiceError maps service errors to status codes. Every sentinel
// the services return has exactly one status here; anything unmapped is
// an internal error.
func writeServiceError(w http.ResponseWriter, err error) {
	var validation accounts.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:       "invalid_request",
			Description: validation.Message,
			Field:       validation.Field,
		})
		return
	}

	if locked, ok := auth.IsAccountLocked(err); ok {
		writeJSON(w, http.StatusLocked, errorResponse{
			Error:       "account_locked",
			Description: "too many failed attempts",
			LockedUntil: locked.LockedUntil.UTC().Format(time.RFC3339),
		})
		return
	}

	switch {
	case errors.Is(err, auth.ErrDuplicateAccount):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "duplicate_account", Description: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidTwoFactor):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_credentials", Description: err.Error()})
	case errors.Is(err, auth.ErrTwoFactorRequired):
		writeJSON(w, http.StatusPartialContent, map[string]any{"twoFactorRequired": true})
	case errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_token", Description: err.Error()})
	case errors.Is(err, auth.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Description: err.Error()})
	case errors.Is(err, auth.ErrTwoFactorAlreadyEnrolled):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "already_enrolled", Description: err.Error()})
	case errors.Is(err, auth.ErrInvalidClient):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_client", Description: err.Error()})
	case errors.Is(err, auth.ErrInvalidRedirectURI), errors.Is(err, auth.ErrInvalidScope),
		errors.Is(err, auth.ErrUnsupportedResponseType):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: err.Error()})
	case errors.Is(err, auth.ErrInvalidAuthorizationCode):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_grant", Description: err.Error()})
	case errors.Is(err, auth.ErrUnsupportedGrantType):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unsupported_grant_type", Description: err.Error()})
	default:
		log.Err(err).Msg("unhandled service error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
	}
}
