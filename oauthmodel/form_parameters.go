package oauthmodel

// Request and response parameter names used by the authorization, PAR and token endpoints.
const (
	FormParameterClientID            = "client_id"
	FormParameterClientSecret        = "client_secret"
	FormParameterResponseType        = "response_type"
	FormParameterResponseMode        = "response_mode"
	FormParameterRedirectURI         = "redirect_uri"
	FormParameterScope               = "scope"
	FormParameterState               = "state"
	FormParameterNonce               = "nonce"
	FormParameterDisplay             = "display"
	FormParameterPrompt              = "prompt"
	FormParameterMaxAge              = "max_age"
	FormParameterAcrValues           = "acr_values"
	FormParameterLoginHint           = "login_hint"
	FormParameterCodeChallenge       = "code_challenge"
	FormParameterCodeChallengeMethod = "code_challenge_method"
	FormParameterCodeVerifier        = "code_verifier"
	FormParameterRequest             = "request"
	FormParameterRequestURI          = "request_uri"
	FormParameterGrantType           = "grant_type"
	FormParameterCode                = "code"

	FormParameterError            = "error"
	FormParameterErrorDescription = "error_description"
	FormParameterErrorURI         = "error_uri"
	FormParameterReason           = "reason"
)

// ScopeOpenID must be present in the OAuth-syntax scope of every OpenID Connect request.
const ScopeOpenID = "openid"
