package clients

import "strings"

// Client is a registered OAuth2 application. Clients are registered
// out-of-band; the authorization service only reads them.
type Client struct {
	ClientID      string   `json:"clientId"`
	ClientSecret  string   `json:"-"` // never serialize
	Name          string   `json:"name,omitempty"`
	RedirectURIs  []string `json:"redirectUris"`
	AllowedScopes []string `json:"allowedScopes"`
	IsActive      bool     `json:"isActive"`
}

// HasRedirectURI reports whether uri exactly matches one of the
// registered redirect URIs. Anything short of an exact match fails.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// HasScope checks if the client is allowed a specific scope.
func (c *Client) HasScope(scope string) bool {
	for _, s := range c.AllowedScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// AllowsScopes reports whether every requested scope is within the
// client's allowed set.
func (c *Client) AllowsScopes(requested []string) bool {
	for _, scope := range requested {
		if !c.HasScope(scope) {
			return false
		}
	}
	return true
}

// SplitScopes parses a space-separated scope parameter.
func SplitScopes(scope string) []string {
	fields := strings.Fields(scope)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
