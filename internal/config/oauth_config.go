package config

type OAuthConfig interface {
	// GetDefaultScopes is the scope set granted when an authorize
	// request names none.
	GetDefaultScopes() string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetDefaultScopes() string {
	return GetEnv("OAUTH_DEFAULT_SCOPES", "openid profile email")
}
