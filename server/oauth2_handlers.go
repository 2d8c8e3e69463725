package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-authz-core/clients"
	autherrors "github.com/jrsteele09/go-authz-core/internal/errors"
	"github.com/jrsteele09/go-authz-core/oautherr"
	"github.com/jrsteele09/go-authz-core/oauthmodel"
	"github.com/jrsteele09/go-authz-core/redirect"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
)

// WellKnownAuthorizationServer serves the authorization server metadata (RFC 8414).
func (s *Server) WellKnownAuthorizationServer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.config.GetBaseURL()

		resp := map[string]any{
			"issuer":                                baseURL,
			"authorization_endpoint":                baseURL + RouteOAuth2Authorize,
			"token_endpoint":                        baseURL + RouteOAuth2Token,
			"pushed_authorization_request_endpoint": baseURL + RouteOAuth2PAR,
			"require_pushed_authorization_requests": s.config.GetPARRequired(),

			"response_types_supported":         []string{string(oauthmodel.CodeResponseType)},
			"response_modes_supported":         []string{"query", "fragment", "form_post"},
			"grant_types_supported":            []string{string(oauthmodel.AuthorizationCodeGrant)},
			"code_challenge_methods_supported": []string{"S256", "plain"},

			"token_endpoint_auth_methods_supported": []string{
				"client_secret_basic",
				"client_secret_post",
				"none", // Public clients with PKCE
			},

			"request_parameter_supported":                 true,
			"request_object_signing_alg_values_supported": []string{"HS256", "RS256", "ES256"},
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// PushedAuthorizationRequest stores the authorization parameters of an authenticated client
// and returns the request_uri to use at the authorization endpoint (RFC 9126).
func (s *Server) PushedAuthorizationRequest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}

		clientID, secret := clientCredentials(r)
		client, err := s.authenticateClient(r.Context(), clientID, secret)
		if err != nil {
			s.writeOAuthError(w, err, "")
			return
		}

		if !s.limiter.Allow(client.ID) {
			s.logger.Warn().Str("client_id", client.ID).Msg("pushed authorization request rate limited")
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, "slow_down", "Too many pushed authorization requests", http.StatusTooManyRequests)
			return
		}

		form := r.PostForm
		if form.Get(oauthmodel.FormParameterClientID) == "" {
			form.Set(oauthmodel.FormParameterClientID, client.ID)
		}

		resp, err := s.services.Pushed.Push(r.Context(), client, form)
		if err != nil {
			// The PAR endpoint answers the client directly, never through a redirect
			s.writeOAuthError(w, err, "")
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Authorize issues an authorization code to the client for the authenticated end user
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := s.subjects.Subject(r)
		if !ok {
			writeJSONError(w, "login_required", "The end user is not authenticated", http.StatusUnauthorized)
			return
		}

		outcome, err := s.services.Auth.Authorize(r.Context(), r.URL.Query(), subject)
		if err != nil {
			if redirectErr, ok := redirect.AsError(err); ok && redirectErr.Outcome != nil {
				redirectErr.Outcome.Write(w)
				return
			}
			// Failures before the redirect_uri is trusted are shown to the user agent
			s.writeOAuthError(w, err, "")
			return
		}
		outcome.Write(w)
	}
}

// Token exchanges an authorization code for an access token
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}

		tokenReq := oauthmodel.ParseTokenRequest(r.PostForm)
		tokenReq.ClientID, tokenReq.ClientSecret = clientCredentials(r)

		tokenResponse, err := s.services.Auth.Token(r.Context(), tokenReq)
		if err != nil {
			s.writeOAuthError(w, err, "")
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		_ = json.NewEncoder(w).Encode(tokenResponse)
	}
}

// clientCredentials reads client_secret_basic, falling back to client_secret_post.
func clientCredentials(r *http.Request) (string, string) {
	if id, secret, ok := r.BasicAuth(); ok {
		return id, secret
	}
	return r.PostFormValue(oauthmodel.FormParameterClientID), r.PostFormValue(oauthmodel.FormParameterClientSecret)
}

// authenticateClient loads the client and checks its secret. Public clients only identify
// themselves.
func (s *Server) authenticateClient(ctx context.Context, clientID, secret string) (*clients.Client, error) {
	if clientID == "" {
		return nil, oautherr.Wrap(autherrors.ErrInvalidClient, oautherr.InvalidClient, "")
	}
	client, err := s.services.Clients.Get(ctx, clientID)
	if autherrors.Is(err, autherrors.ErrNotFound) {
		return nil, oautherr.Wrap(autherrors.ErrInvalidClient, oautherr.InvalidClient, "")
	}
	if err != nil {
		return nil, err
	}
	if !client.IsPublic() && !client.CheckSecret(secret) {
		return nil, oautherr.Wrap(autherrors.ErrInvalidClientSecret, oautherr.InvalidClient, "")
	}
	return client, nil
}

// writeOAuthError renders err as an OAuth error document. Errors without a protocol kind are
// logged and reported as server_error.
func (s *Server) writeOAuthError(w http.ResponseWriter, err error, state string) {
	oauthErr, ok := oautherr.From(err)
	if !ok {
		s.logger.Err(err).Msg("request failed")
		writeJSONError(w, "server_error", "", http.StatusInternalServerError)
		return
	}
	if oauthErr.Cause != nil {
		s.logger.Debug().Err(oauthErr.Cause).Str("error", oauthErr.Kind.Code()).Msg("request rejected")
	}

	body, jsonErr := s.services.Errors.JSON(oauthErr.Kind, state, oauthErr.Reason)
	if jsonErr != nil {
		s.logger.Err(jsonErr).Msg("failed to encode error response")
		writeJSONError(w, "server_error", "", http.StatusInternalServerError)
		return
	}

	status := oauthErr.Kind.StatusCode()
	if oauthErr.Kind == oautherr.InvalidClient {
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
		status = http.StatusUnauthorized
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	payload := map[string]string{"error": errorCode}
	if description != "" {
		payload["error_description"] = description
	}
	_ = json.NewEncoder(w).Encode(payload)
}
