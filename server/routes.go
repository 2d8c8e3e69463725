package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteWellKnownAuthorizationServer, ChainMiddleware(s.WellKnownAuthorizationServer(), s.APIMiddleware()...))

	s.RegisterRouteHandler("POST "+RouteOAuth2PAR, ChainMiddleware(s.PushedAuthorizationRequest(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteOAuth2PAR, ChainMiddleware(s.PushedAuthorizationRequest(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteOAuth2Authorize, ChainMiddleware(s.Authorize(), s.BrowserMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Token, ChainMiddleware(s.Token(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteOAuth2Token, ChainMiddleware(s.Token(), s.APIMiddleware()...))
}
