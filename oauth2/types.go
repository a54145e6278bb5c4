package oauth2

// ResponseType represents the OAuth 2.0 response type requested at the
// authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow. The endpoint
	// issues a single-use code that must be exchanged at the token endpoint.
	CodeResponseType ResponseType = "code"
)

// GrantType represents the OAuth 2.0 grant type presented at the token
// endpoint. It determines which credentials the request must carry.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges a single-use authorization code for a
	// token pair. The request must carry code, client_id and client_secret.
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for a new token pair.
	// The presented refresh token is revoked as part of the exchange.
	RefreshTokenGrant GrantType = "refresh_token"
)
