package server

import (
	"encoding/json"
	"net/http"

	"github.com/nexus-universe/nexus-auth/accounts"
	"github.com/nexus-universe/nexus-auth/auth"
	"github.com/nexus-universe/nexus-auth/token"
)

type registerRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	InviteCode string `json:"inviteCode,omitempty"`
	Whatsapp   string `json:"whatsapp,omitempty"`
	Telegram   string `json:"telegram,omitempty"`
	Country    string `json:"country,omitempty"`
	City       string `json:"city,omitempty"`
}

type loginRequest struct {
	Identifier    string `json:"identifier"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"twoFactorCode,omitempty"`
}

type affiliateInfo struct {
	Code string `json:"code"`
	Link string `json:"link"`
}

type credentialsResponse struct {
	User      *accounts.Account `json:"user"`
	Tokens    *token.Pair       `json:"tokens"`
	Affiliate affiliateInfo     `json:"affiliate"`
}

func (s *Server) credentialsResponse(creds *auth.Credentials) credentialsResponse {
	return credentialsResponse{
		User:   creds.Account,
		Tokens: creds.Tokens,
		Affiliate: affiliateInfo{
			Code: creds.Account.AffiliateCode,
			Link: s.config.GetBaseURL() + "/register?ref=" + creds.Account.AffiliateCode,
		},
	}
}

// RegisterHandler creates an account and returns an initial token pair.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: "malformed JSON body"})
			return
		}

		creds, err := s.auth.Register(r.Context(), auth.RegisterInput{
			Username:   req.Username,
			Email:      req.Email,
			Password:   req.Password,
			InviteCode: req.InviteCode,
			Whatsapp:   req.Whatsapp,
			Telegram:   req.Telegram,
			Country:    req.Country,
			City:       req.City,
		}, requestMeta(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, s.credentialsResponse(creds))
	}
}

// LoginHandler authenticates by username or email plus password, and
// the 2FA code when the account has one enrolled.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: "malformed JSON body"})
			return
		}

		creds, err := s.auth.Login(r.Context(), req.Identifier, req.Password, req.TwoFactorCode, requestMeta(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, s.credentialsResponse(creds))
	}
}

type profileResponse struct {
	User     *accounts.Account `json:"user"`
	TeamSize int               `json:"teamSize"`
}

// MeGetHandler returns the authenticated account and its referral team
// size.
func (s *Server) MeGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())

		account, teamSize, err := s.auth.Profile(r.Context(), claims.Subject)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profileResponse{User: account, TeamSize: teamSize})
	}
}

type updateProfileRequest struct {
	Whatsapp *string `json:"whatsapp,omitempty"`
	Telegram *string `json:"telegram,omitempty"`
	Country  *string `json:"country,omitempty"`
	City     *string `json:"city,omitempty"`
}

// MePutHandler applies a partial profile update. Absent fields keep
// their stored values.
func (s *Server) MePutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())

		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: "malformed JSON body"})
			return
		}

		account, err := s.auth.UpdateProfile(r.Context(), claims.Subject, accounts.ProfileUpdate{
			Whatsapp: req.Whatsapp,
			Telegram: req.Telegram,
			Country:  req.Country,
			City:     req.City,
		}, requestMeta(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": account})
	}
}

type twoFactorEnrolmentResponse struct {
	Secret       string `json:"secret"`
	ProvisionURI string `json:"provisionUri"`
}

// TwoFactorEnrollHandler generates and stores a TOTP secret for the
// authenticated account.
func (s *Server) TwoFactorEnrollHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())

		enrolment, err := s.auth.EnrollTwoFactor(r.Context(), claims.Subject)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, twoFactorEnrolmentResponse{
			Secret:       enrolment.Secret,
			ProvisionURI: enrolment.ProvisionURI,
		})
	}
}
