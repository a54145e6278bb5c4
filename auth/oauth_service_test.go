package auth_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-universe/nexus-auth/auth"
	"github.com/nexus-universe/nexus-auth/oauth2"
)

const (
	testClientID     = "nexus-web"
	testClientSecret = "s3cret-client-value"
	testRedirectURI  = "https://app.example.com/callback"
)

func (fx *testFixture) authorize(t *testing.T, bearer, scope, state string) *auth.AuthorizeResult {
	t.Helper()
	result, err := fx.service.Authorize(context.Background(), auth.AuthorizeRequest{
		ResponseType: "code",
		ClientID:     testClientID,
		RedirectURI:  testRedirectURI,
		Scope:        scope,
		State:        state,
		BearerToken:  bearer,
	})
	require.NoError(t, err)
	return result
}

func codeFromRedirect(t *testing.T, redirectURL string) (code, state string) {
	t.Helper()
	parsed, err := url.Parse(redirectURL)
	require.NoError(t, err)
	return parsed.Query().Get("code"), parsed.Query().Get("state")
}

func newOAuthFixture(t *testing.T) (*testFixture, *auth.Credentials) {
	t.Helper()
	fx := newTestFixture(t)
	fx.registerClient(testClientID, testClientSecret,
		[]string{testRedirectURI},
		[]string{"openid", "profile", "email", "wallet.read"},
	)
	creds := fx.register(t, "commander")
	return fx, creds
}

func TestAuthorizeIssuesCode(t *testing.T) {
	fx, creds := newOAuthFixture(t)

	result := fx.authorize(t, creds.Tokens.AccessToken, "openid profile", "xyz-state")
	require.False(t, result.LoginRequired)

	code, state := codeFromRedirect(t, result.RedirectURL)
	assert.NotEmpty(t, code)
	assert.Equal(t, "xyz-state", state)
	assert.True(t, len(code) == 64, "expected 32 random bytes hex encoded")
}

func TestAuthorizeDefaultsScopes(t *testing.T) {
	fx, creds := newOAuthFixture(t)

	result := fx.authorize(t, creds.Tokens.AccessToken, "", "")
	code, _ := codeFromRedirect(t, result.RedirectURL)

	response, err := fx.service.Token(context.Background(), auth.TokenRequest{
		GrantType:    oauth2.AuthorizationCodeGrant,
		Code:         code,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultScopes, response.Scope)
}

func TestAuthorizeRequiresLoginWithoutBearer(t *testing.T) {
	fx, _ := newOAuthFixture(t)

	result := fx.authorize(t, "", "openid", "")
	assert.True(t, result.LoginRequired)
	assert.Empty(t, result.RedirectURL)
}

func TestAuthorizeRequiresLoginWithInvalidBearer(t *testing.T) {
	fx, _ := newOAuthFixture(t)

	result := fx.authorize(t, "not-a-token", "openid", "")
	assert.True(t, result.LoginRequired)
}

func TestAuthorizeValidation(t *testing.T) {
	fx, creds := newOAuthFixture(t)

	tests := []struct {
		name    string
		request auth.AuthorizeRequest
		wantErr error
	}{
		{
			name: "unknown client",
			request: auth.AuthorizeRequest{
				ResponseType: "code",
				ClientID:     "ghost-app",
				RedirectURI:  testRedirectURI,
			},
			wantErr: auth.ErrInvalidClient,
		},
		{
			name: "unregistered redirect",
			request: auth.AuthorizeRequest{
				ResponseType: "code",
				ClientID:     testClientID,
				RedirectURI:  "https://evil.example.com/callback",
			},
			wantErr: auth.ErrInvalidRedirectURI,
		},
		{
			name: "redirect prefix is not a match",
			request: auth.AuthorizeRequest{
				ResponseType: "code",
				ClientID:     testClientID,
				RedirectURI:  testRedirectURI + "/extra",
			},
			wantErr: auth.ErrInvalidRedirectURI,
		},
		{
			name: "unsupported response type",
			request: auth.AuthorizeRequest{
				ResponseType: "token",
				ClientID:     testClientID,
				RedirectURI:  testRedirectURI,
			},
			wantErr: auth.ErrUnsupportedResponseType,
		},
		{
			name: "scope outside allow list",
			request: auth.AuthorizeRequest{
				ResponseType: "code",
				ClientID:     testClientID,
				RedirectURI:  testRedirectURI,
				Scope:        "openid admin.write",
			},
			wantErr: auth.ErrInvalidScope,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.request.BearerToken = creds.Tokens.AccessToken
			_, err := fx.service.Authorize(context.Background(), tc.request)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestTokenExchangesAuthorizationCode(t *testing.T) {
	fx, creds := newOAuthFixture(t)

	result := fx.authorize(t, creds.Tokens.AccessToken, "openid profile", "")
	code, _ := codeFromRedirect(t, result.RedirectURL)

	response, err := fx.service.Token(context.Background(), auth.TokenRequest{
		GrantType:    oauth2.AuthorizationCodeGrant,
		Code:         code,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, response.AccessToken)
	assert.NotEmpty(t, response.RefreshToken)
	assert.Equal(t, "Bearer", response.TokenType)
	assert.Equal(t, "openid profile", response.Scope)

	claims, err := fx.service.Authenticate(context.Background(), response.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, creds.Account.ID, claims.Subject)
}

func TestTokenRejectsReplayedCode(t *testing.T) {
	fx, creds := newOAuthFixture(t)

	result := fx.authorize(t, creds.Tokens.AccessToken, "openid", "")
	code, _ := codeFromRedirect(t, result.RedirectURL)

	request := auth.TokenRequest{
		GrantType:    oauth2.AuthorizationCodeGrant,
		Code:         code,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	}
	_, err := fx.service.Token(context.Background(), request)
	require.NoError(t, err)

	_, err = fx.service.Token(context.Background(), request)
	assert.ErrorIs(t, err, auth.ErrInvalidAuthorizationCode)
}

func TestTokenConcurrentRedemptionHasOneWinner(t *testing.T) {
	fx, creds := newOAuthFixture(t)

	result := fx.authorize(t, creds.Tokens.AccessToken, "openid", "")
	code, _ := codeFromRedirect(t, result.RedirectURL)

	const redeemers = 8
	var wg sync.WaitGroup
	errs := make([]error, redeemers)
	for i := 0; i < redeemers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = fx.service.Token(context.Background(), auth.TokenRequest{
				GrantType:    oauth2.AuthorizationCodeGrant,
				Code:         code,
				ClientID:     testClientID,
				ClientSecret: testClientSecret,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, auth.ErrInvalidAuthorizationCode)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestTokenRejectsExpiredCode(t *testing.T) {
	fx, creds := newOAuthFixture(t)

	result := fx.authorize(t, creds.Tokens.AccessToken, "openid", "")
	code, _ := codeFromRedirect(t, result.RedirectURL)

	fx.now = fx.now.Add(11 * time.Minute)
	_, err := fx.service.Token(context.Background(), auth.TokenRequest{
		GrantType:    oauth2.AuthorizationCodeGrant,
		Code:         code,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	assert.ErrorIs(t, err, auth.ErrInvalidAuthorizationCode)
}

func TestTokenRejectsWrongClientSecret(t *testing.T) {
	fx, creds := newOAuthFixture(t)

	result := fx.authorize(t, creds.Tokens.AccessToken, "openid", "")
	code, _ := codeFromRedirect(t, result.RedirectURL)

	_, err := fx.service.Token(context.Background(), auth.TokenRequest{
		GrantType:    oauth2.AuthorizationCodeGrant,
		Code:         code,
		ClientID:     testClientID,
		ClientSecret: "wrong-secret",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidClient)
}

func TestTokenRejectsCodeIssuedToAnotherClient(t *testing.T) {
	fx, creds := newOAuthFixture(t)
	fx.registerClient("other-app", "other-secret",
		[]string{"https://other.example.com/cb"},
		[]string{"openid"},
	)

	result := fx.authorize(t, creds.Tokens.AccessToken, "openid", "")
	code, _ := codeFromRedirect(t, result.RedirectURL)

	_, err := fx.service.Token(context.Background(), auth.TokenRequest{
		GrantType:    oauth2.AuthorizationCodeGrant,
		Code:         code,
		ClientID:     "other-app",
		ClientSecret: "other-secret",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidAuthorizationCode)
}

func TestTokenRefreshRotates(t *testing.T) {
	fx, creds := newOAuthFixture(t)

	first, err := fx.service.Token(context.Background(), auth.TokenRequest{
		GrantType:    oauth2.RefreshTokenGrant,
		RefreshToken: creds.Tokens.RefreshToken,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.AccessToken)
	assert.NotEqual(t, creds.Tokens.RefreshToken, first.RefreshToken)

	// The redeemed refresh token is revoked and cannot be replayed.
	_, err = fx.service.Token(context.Background(), auth.TokenRequest{
		GrantType:    oauth2.RefreshTokenGrant,
		RefreshToken: creds.Tokens.RefreshToken,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// The rotated token works.
	_, err = fx.service.Token(context.Background(), auth.TokenRequest{
		GrantType:    oauth2.RefreshTokenGrant,
		RefreshToken: first.RefreshToken,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	assert.NoError(t, err)
}

func TestTokenRejectsAccessTokenAsRefresh(t *testing.T) {
	fx, creds := newOAuthFixture(t)

	_, err := fx.service.Token(context.Background(), auth.TokenRequest{
		GrantType:    oauth2.RefreshTokenGrant,
		RefreshToken: creds.Tokens.AccessToken,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenUnsupportedGrantType(t *testing.T) {
	fx, _ := newOAuthFixture(t)

	_, err := fx.service.Token(context.Background(), auth.TokenRequest{
		GrantType:    "client_credentials",
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	assert.ErrorIs(t, err, auth.ErrUnsupportedGrantType)
}
