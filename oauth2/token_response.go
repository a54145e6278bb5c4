package oauth2

// TokenResponse is the token endpoint response body as defined in RFC 6749.
// Returned from POST /oauth/token for every supported grant type.
type TokenResponse struct {
	// AccessToken is the signed JWT used to access protected resources.
	// Clients send it in the Authorization header: "Bearer <access_token>".
	AccessToken string `json:"access_token"`

	// RefreshToken is the signed JWT used to obtain a fresh token pair.
	// It rotates on every refresh_token grant; the previous one is revoked.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType indicates how the access token must be used.
	// Always "Bearer" in this implementation.
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	// A hint for clients - the authoritative expiry is the JWT "exp" claim.
	ExpiresIn int64 `json:"expires_in"`

	// Scope is the space-separated list of scopes the token was granted.
	// May be narrower than requested.
	Scope string `json:"scope,omitempty"`
}
