package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Account routes
	RouteRegister = "/register"
	RouteLogin    = "/login"

	// Profile routes
	RouteMe          = "/me"
	RouteMeTwoFactor = "/me/2fa"

	// OAuth2 routes
	RouteOAuthAuthorize = "/oauth/authorize"
	RouteOAuthToken     = "/oauth/token"
)
