package auth

import (
	"context"
	"crypto/subtle"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/nexus-universe/nexus-auth/accounts"
	"github.com/nexus-universe/nexus-auth/audit"
	"github.com/nexus-universe/nexus-auth/auth/codes"
	"github.com/nexus-universe/nexus-auth/clients"
	"github.com/nexus-universe/nexus-auth/oauth2"
	"github.com/nexus-universe/nexus-auth/token"
)

// DefaultScopes is granted when an authorization request omits scope.
const DefaultScopes = "openid profile email"

// AuthorizeRequest carries the query parameters of an authorization
// request plus the caller's bearer token, if any.
type AuthorizeRequest struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	Scope        string
	State        string
	BearerToken  string
}

// AuthorizeResult is the outcome of a valid authorization request.
// When LoginRequired is set the caller must authenticate first; no code
// was issued. Otherwise RedirectURL carries the code and echoed state.
type AuthorizeResult struct {
	LoginRequired bool
	RedirectURL   string
}

// TokenRequest carries the form parameters of a token request.
type TokenRequest struct {
	GrantType    oauth2.GrantType
	Code         string
	RefreshToken string
	ClientID     string
	ClientSecret string
}

// Authorize runs the authorization-code flow up to code issuance.
// Client and redirect URI are validated before anything else; a
// redirect URI that is not registered verbatim fails the whole request
// regardless of the other parameters.
func (s *Service) Authorize(ctx context.Context, request AuthorizeRequest) (*AuthorizeResult, error) {
	client, err := s.validClient(ctx, request.ClientID)
	if err != nil {
		return nil, err
	}

	if !client.HasRedirectURI(request.RedirectURI) {
		return nil, ErrInvalidRedirectURI
	}

	if oauth2.ResponseType(request.ResponseType) != oauth2.CodeResponseType {
		return nil, ErrUnsupportedResponseType
	}

	scope := strings.TrimSpace(request.Scope)
	if scope == "" {
		scope = s.scopes
	}
	requested := clients.SplitScopes(scope)
	if !client.AllowsScopes(requested) {
		return nil, ErrInvalidScope
	}

	// Authentication is resolved after validation so that a bad request
	// is reported as such even to anonymous callers.
	claims, err := s.Authenticate(ctx, request.BearerToken)
	if err != nil {
		return &AuthorizeResult{LoginRequired: true}, nil
	}

	now := s.nowTime()
	code, err := codes.New(client.ClientID, claims.Subject, requested, now)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Authorize] codes.New")
	}
	if err := s.codes.Save(ctx, code); err != nil {
		return nil, errors.Wrap(err, "[Service.Authorize] codes.Save")
	}

	s.record(ctx, audit.ActionCodeIssued, claims.Subject, RequestMeta{}, now)

	redirectURL, err := buildRedirectURL(request.RedirectURI, code.Code, request.State)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Authorize] buildRedirectURL")
	}
	return &AuthorizeResult{RedirectURL: redirectURL}, nil
}

// Token handles the OAuth 2.0 token request. Supported grants are
// authorization_code and refresh_token.
func (s *Service) Token(ctx context.Context, request TokenRequest) (*oauth2.TokenResponse, error) {
	client, err := s.validClient(ctx, request.ClientID)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(client.ClientSecret), []byte(request.ClientSecret)) != 1 {
		return nil, ErrInvalidClient
	}

	switch request.GrantType {
	case oauth2.AuthorizationCodeGrant:
		return s.redeemAuthorizationCode(ctx, client, request.Code)
	case oauth2.RefreshTokenGrant:
		return s.rotateRefreshToken(ctx, request.RefreshToken)
	default:
		return nil, ErrUnsupportedGrantType
	}
}

// redeemAuthorizationCode exchanges a single-use code for a token pair.
// Consume is atomic at the store, so a replayed or concurrently redeemed
// code fails here for every caller but one.
func (s *Service) redeemAuthorizationCode(ctx context.Context, client *clients.Client, rawCode string) (*oauth2.TokenResponse, error) {
	code, err := s.codes.Consume(ctx, rawCode)
	if errors.Is(err, codes.ErrNotFound) {
		return nil, ErrInvalidAuthorizationCode
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Token] codes.Consume")
	}
	if code.Expired(s.nowTime()) || code.ClientID != client.ClientID {
		return nil, ErrInvalidAuthorizationCode
	}

	account, err := s.repos.Accounts.GetByID(ctx, code.AccountID)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, ErrInvalidAuthorizationCode
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Token] GetByID")
	}

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Token] IssuePair")
	}

	s.record(ctx, audit.ActionCodeRedeemed, account.ID, RequestMeta{}, s.nowTime())
	return tokenResponse(pair, strings.Join(code.Scopes, " ")), nil
}

// rotateRefreshToken verifies a refresh token, revokes it and mints a
// fresh pair. The presented token cannot be replayed afterwards.
func (s *Service) rotateRefreshToken(ctx context.Context, rawToken string) (*oauth2.TokenResponse, error) {
	claims, err := s.tokens.Verify(rawToken, token.KindRefresh)
	if err != nil {
		return nil, ErrInvalidToken
	}

	account, err := s.repos.Accounts.GetByID(ctx, claims.Subject)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Token] GetByID")
	}
	if !account.IsActive {
		return nil, ErrInvalidToken
	}

	if err := s.tokens.Revoke(claims); err != nil {
		return nil, errors.Wrap(err, "[Service.Token] Revoke")
	}

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Token] IssuePair")
	}

	s.record(ctx, audit.ActionTokenRefresh, account.ID, RequestMeta{}, s.nowTime())
	return tokenResponse(pair, ""), nil
}

func (s *Service) validClient(ctx context.Context, clientID string) (*clients.Client, error) {
	if clientID == "" {
		return nil, ErrInvalidClient
	}
	client, err := s.repos.Clients.Get(ctx, clientID)
	if errors.Is(err, clients.ErrNotFound) {
		return nil, ErrInvalidClient
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.validClient] Clients.Get")
	}
	if !client.IsActive {
		return nil, ErrInvalidClient
	}
	return client, nil
}

// buildRedirectURL appends code and state to the registered redirect
// URI, preserving any query parameters it already carries. State is
// echoed back byte for byte.
func buildRedirectURL(redirectURI, code, state string) (string, error) {
	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}
	q := parsed.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func tokenResponse(pair *token.Pair, scope string) *oauth2.TokenResponse {
	return &oauth2.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int64(pair.ExpiresIn),
		Scope:        scope,
	}
}
