package server

import (
	"errors"
	"net/http"

	"github.com/nexus-universe/nexus-auth/auth"
	"github.com/nexus-universe/nexus-auth/oauth2"
)

// AuthorizeHandler runs the authorization-code flow. A valid request
// from an authenticated user 302s back to the client with a single-use
// code; an unauthenticated user gets 401 login_required.
func (s *Server) AuthorizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		result, err := s.auth.Authorize(r.Context(), auth.AuthorizeRequest{
			ResponseType: query.Get("response_type"),
			ClientID:     query.Get("client_id"),
			RedirectURI:  query.Get("redirect_uri"),
			Scope:        query.Get("scope"),
			State:        query.Get("state"),
			BearerToken:  bearerToken(r),
		})
		if err != nil {
			// This endpoint carries no client credentials, so an unknown
			// client is a malformed request rather than a failed login.
			if errors.Is(err, auth.ErrInvalidClient) {
				writeJSON(w, http.StatusBadRequest, errorResponse{
					Error:       "invalid_request",
					Description: "unknown or inactive client",
				})
				return
			}
			writeServiceError(w, err)
			return
		}

		if result.LoginRequired {
			writeJSON(w, http.StatusUnauthorized, errorResponse{
				Error:       "login_required",
				Description: "authenticate and retry the authorization request",
			})
			return
		}

		http.Redirect(w, r, result.RedirectURL, http.StatusFound)
	}
}

// TokenHandler exchanges an authorization code or a refresh token for a
// token pair. Parameters arrive form-encoded per RFC 6749.
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: "malformed form body"})
			return
		}

		response, err := s.auth.Token(r.Context(), auth.TokenRequest{
			GrantType:    oauth2.GrantType(r.PostFormValue("grant_type")),
			Code:         r.PostFormValue("code"),
			RefreshToken: r.PostFormValue("refresh_token"),
			ClientID:     r.PostFormValue("client_id"),
			ClientSecret: r.PostFormValue("client_secret"),
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, response)
	}
}
