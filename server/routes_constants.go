package server

// Route path constants
const (
	RouteWellKnownAuthorizationServer = "/.well-known/oauth-authorization-server"

	RouteOAuth2PAR       = "/oauth2/par"
	RouteOAuth2Authorize = "/oauth2/authorize"
	RouteOAuth2Token     = "/oauth2/token"
)
