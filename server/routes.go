package server

func (s *Server) initRoutes() {
	// Account API
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))

	// OAuth2 API
	s.RegisterRouteHandler("GET "+RouteOAuthAuthorize, ChainMiddleware(s.AuthorizeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOAuthToken, ChainMiddleware(s.TokenHandler(), s.APIMiddleware()...))

	// Profile API (requires a bearer access token)
	s.RegisterRouteHandler("GET "+RouteMe, ChainMiddleware(s.MeGetHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteHandler("PUT "+RouteMe, ChainMiddleware(s.MePutHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteMeTwoFactor, ChainMiddleware(s.TwoFactorEnrollHandler(), s.ProtectedAPIMiddleware()...))
}
