// Package auth implements the authorization and token endpoints on top of the pushed
// authorization request store, the Request Object reconciler and the redirect builder.
package auth

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-authz-core/clients"
	autherrors "github.com/jrsteele09/go-authz-core/internal/errors"
	"github.com/jrsteele09/go-authz-core/internal/utils"
	"github.com/jrsteele09/go-authz-core/oautherr"
	"github.com/jrsteele09/go-authz-core/oauthmodel"
	"github.com/jrsteele09/go-authz-core/par"
	"github.com/jrsteele09/go-authz-core/redirect"
	"github.com/jrsteele09/go-authz-core/scope"
	"github.com/jrsteele09/go-authz-core/token"
)

const (
	DefaultAuthCodeLifetime    = 10 * time.Minute
	DefaultAccessTokenLifetime = time.Hour

	tokenTypeBearer = "Bearer"
)

// Repos holds all repository dependencies for the AuthorizationService
type Repos struct {
	Clients clients.Repo // Repository for OAuth2 client data
	Tokens  token.Repo   // Authorization codes and access tokens
}

// AuthorizationService issues authorization codes at the authorization endpoint and
// exchanges them for access tokens at the token endpoint.
type AuthorizationService struct {
	repos               Repos
	pushed              *par.Service
	reconciler          *par.Reconciler
	scopes              scope.Checker
	factory             redirect.ErrorFactory
	parRequired         bool
	fapiCompatible      bool
	customAllowed       []string
	authCodeLifetime    time.Duration
	accessTokenLifetime time.Duration
	nowTime             func() time.Time
	logger              zerolog.Logger
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// WithPARRequired rejects authorization requests that do not carry a pushed request_uri.
func WithPARRequired(required bool) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.parRequired = required
	}
}

func WithFAPICompatibility(enabled bool) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.fapiCompatible = enabled
	}
}

func WithAllowedCustomParameters(names []string) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.customAllowed = names
	}
}

func WithLifetimes(authCode, accessToken time.Duration) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.authCodeLifetime = authCode
		as.accessTokenLifetime = accessToken
	}
}

func WithLogger(logger zerolog.Logger) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.logger = logger
	}
}

// NewAuthorizationService initializes a new AuthorizationService with required dependencies.
func NewAuthorizationService(
	repos Repos,
	pushed *par.Service,
	reconciler *par.Reconciler,
	scopes scope.Checker,
	factory redirect.ErrorFactory,
	options ...AuthorizationServiceOption,
) (*AuthorizationService, error) {
	if repos.Clients == nil {
		return nil, errors.New("[NewAuthorizationService] Clients repo is required")
	}
	if repos.Tokens == nil {
		return nil, errors.New("[NewAuthorizationService] Tokens repo is required")
	}
	if pushed == nil || reconciler == nil {
		return nil, errors.New("[NewAuthorizationService] pushed authorization request service and reconciler are required")
	}
	if scopes == nil || factory == nil {
		return nil, errors.New("[NewAuthorizationService] scope policy and error factory are required")
	}

	as := &AuthorizationService{
		repos:               repos,
		pushed:              pushed,
		reconciler:          reconciler,
		scopes:              scopes,
		factory:             factory,
		authCodeLifetime:    DefaultAuthCodeLifetime,
		accessTokenLifetime: DefaultAccessTokenLifetime,
		nowTime:             time.Now,
		logger:              log.Logger.With().Str("component", "auth").Logger(),
	}
	for _, opt := range options {
		opt(as)
	}
	return as, nil
}

// Authorize handles an authorization request made by the authenticated subject.
//
// Errors found before the redirect_uri has been verified are returned as *oautherr.Error
// and must be shown to the user agent directly. Later errors are returned as *redirect.Error
// carrying the error redirect. On success the returned outcome carries the code and state.
func (as *AuthorizationService) Authorize(ctx context.Context, form url.Values, subject string) (*redirect.Outcome, error) {
	client, err := as.client(ctx, form.Get(oauthmodel.FormParameterClientID))
	if err != nil {
		return nil, err
	}

	params, fromPAR, err := as.authorizationParameters(ctx, form, client)
	if err != nil {
		return nil, err
	}

	target := redirect.NewTarget(params.RedirectURI, params.ResponseTypes(), params.ResponseMode)
	resp := redirect.NewResponse(target, params.State, as.fapiCompatible, as.factory, redirect.WithLogger(as.logger))

	if !fromPAR {
		if err := as.reconcileDirect(ctx, resp, params, client); err != nil {
			return nil, err
		}
	}

	if err := as.validateForIssuance(resp, params, client); err != nil {
		return nil, err
	}

	now := as.nowTime()
	code := &token.Token{
		Code:                uuid.New().String(),
		Type:                token.TypeAuthorizationCode,
		ClientID:            client.ID,
		Subject:             subject,
		Scope:               params.Scope,
		RedirectURI:         params.RedirectURI,
		Nonce:               params.Nonce,
		CreatedAt:           now,
		ExpiresAt:           now.Add(as.authCodeLifetime),
		CodeChallenge:       params.CodeChallenge,
		CodeChallengeMethod: params.CodeChallengeMethod,
	}
	if err := as.repos.Tokens.Upsert(ctx, code); err != nil {
		as.logger.Err(err).Str("client_id", client.ID).Msg("failed to store authorization code")
		return nil, resp.Fail(oautherr.InternalValidationFailure, "")
	}

	target.AddParameter(oauthmodel.FormParameterCode, code.Code)
	if state := resp.State(); !utils.IsBlank(state) {
		target.AddParameter(oauthmodel.FormParameterState, state)
	}
	outcome, err := target.Build()
	if err != nil {
		return nil, errors.Wrap(err, "[Authorize] build redirect")
	}

	as.logger.Debug().Str("client_id", client.ID).Bool("par", fromPAR).Msg("authorization code issued")
	return outcome, nil
}

// Token exchanges an authorization code for an access token.
func (as *AuthorizationService) Token(ctx context.Context, req *oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	if req.GrantType != oauthmodel.AuthorizationCodeGrant {
		return nil, oautherr.New(oautherr.UnsupportedGrantType, "")
	}

	client, err := as.client(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if !client.IsPublic() && !client.CheckSecret(req.ClientSecret) {
		return nil, oautherr.Wrap(ClientSecretErr, oautherr.InvalidClient, "")
	}

	code, err := as.redeemCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if err := validateCodeGrant(code, req, as.nowTime()); err != nil {
		as.logger.Debug().Err(err).Str("client_id", client.ID).Msg("authorization code rejected")
		return nil, oautherr.Wrap(err, oautherr.InvalidGrant, "")
	}

	now := as.nowTime()
	accessToken := &token.Token{
		Code:      uuid.New().String(),
		Type:      token.TypeAccessToken,
		ClientID:  client.ID,
		Subject:   code.Subject,
		Scope:     code.Scope,
		Nonce:     code.Nonce,
		CreatedAt: now,
		ExpiresAt: now.Add(as.accessTokenLifetime),
	}
	if err := as.repos.Tokens.Upsert(ctx, accessToken); err != nil {
		return nil, errors.Wrap(err, "[Token] store access token")
	}

	return &oauthmodel.TokenResponse{
		AccessToken: accessToken.Code,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int(as.accessTokenLifetime.Seconds()),
		Scope:       accessToken.Scope,
	}, nil
}

func (as *AuthorizationService) client(ctx context.Context, clientID string) (*clients.Client, error) {
	if utils.IsBlank(clientID) {
		return nil, oautherr.Wrap(InvalidClientIDErr, oautherr.InvalidClient, "")
	}
	client, err := as.repos.Clients.Get(ctx, clientID)
	if autherrors.Is(err, autherrors.ErrNotFound) {
		return nil, oautherr.Wrap(InvalidClientIDErr, oautherr.InvalidClient, "")
	}
	if err != nil {
		return nil, errors.Wrap(err, "[client] load client")
	}
	if client.IsExpired(as.nowTime()) {
		return nil, oautherr.Wrap(autherrors.ErrClientExpired, oautherr.InvalidClient, "")
	}
	return client, nil
}

// authorizationParameters resolves a pushed request_uri, or parses and checks the request
// parameters against the client registration when no request_uri is given.
func (as *AuthorizationService) authorizationParameters(ctx context.Context, form url.Values, client *clients.Client) (*oauthmodel.AuthorizationParameters, bool, error) {
	if requestURI := form.Get(oauthmodel.FormParameterRequestURI); !utils.IsBlank(requestURI) {
		params, err := as.pushed.Consume(ctx, requestURI, client.ID)
		if err != nil {
			return nil, false, err
		}
		return params, true, nil
	}

	if as.parRequired {
		return nil, false, oautherr.Wrap(PARRequiredErr, oautherr.InvalidRequest, as.reason(PARRequiredErr.Error()))
	}

	params, err := oauthmodel.ParseAuthorizationParameters(form, as.customAllowed)
	if err != nil {
		return nil, false, oautherr.Wrap(err, oautherr.InvalidRequest, as.reason(err.Error()))
	}
	if err := params.ValidateParametersWithClient(client); err != nil {
		return nil, false, oautherr.Wrap(err, oautherr.InvalidRequest, as.reason(err.Error()))
	}
	return params, false, nil
}

// reconcileDirect applies the scope policy, and any Request Object passed by value, to
// parameters that did not go through the PAR endpoint.
func (as *AuthorizationService) reconcileDirect(ctx context.Context, resp *redirect.Response, params *oauthmodel.AuthorizationParameters, client *clients.Client) error {
	granted, err := as.scopes.CheckScopesPolicy(client, params.Scope)
	if err != nil {
		as.logger.Debug().Err(err).Str("client_id", client.ID).Msg("scope rejected by policy")
		return resp.Fail(oautherr.InvalidScope, par.ReasonScopeRejected)
	}
	params.Scope = scope.Join(granted)

	record := &par.PushedAuthorizationRequest{Attributes: *params}
	if err := as.reconciler.Reconcile(ctx, resp, record, client); err != nil {
		return err
	}
	*params = record.Attributes
	return nil
}

func (as *AuthorizationService) validateForIssuance(resp *redirect.Response, params *oauthmodel.AuthorizationParameters, client *clients.Client) error {
	if !params.ResponseTypes().Equal(oauthmodel.ResponseTypes{oauthmodel.CodeResponseType}) {
		return resp.Fail(oautherr.InvalidRequest, as.reason("only the code response type is issued"))
	}
	if client.IsPublic() && utils.IsBlank(params.CodeChallenge) {
		return resp.Fail(oautherr.InvalidRequest, as.reason("PKCE is required for public clients"))
	}
	return nil
}

// redeemCode loads an authorization code and deletes it so it cannot be used twice.
func (as *AuthorizationService) redeemCode(ctx context.Context, code string) (*token.Token, error) {
	if utils.IsBlank(code) {
		return nil, oautherr.Wrap(AuthCodeInvalidErr, oautherr.InvalidGrant, "")
	}
	t, err := as.repos.Tokens.GetByCode(ctx, code)
	if autherrors.Is(err, autherrors.ErrNotFound) {
		return nil, oautherr.Wrap(AuthCodeInvalidErr, oautherr.InvalidGrant, "")
	}
	if err != nil {
		return nil, errors.Wrap(err, "[redeemCode] load code")
	}
	if t.Type != token.TypeAuthorizationCode {
		return nil, oautherr.Wrap(AuthCodeInvalidErr, oautherr.InvalidGrant, "")
	}

	err = as.repos.Tokens.Delete(ctx, code)
	if autherrors.Is(err, autherrors.ErrNotFound) {
		// Redeemed concurrently
		return nil, oautherr.Wrap(AuthCodeInvalidErr, oautherr.InvalidGrant, "")
	}
	if err != nil {
		return nil, errors.Wrap(err, "[redeemCode] delete code")
	}
	return t, nil
}

func (as *AuthorizationService) reason(reason string) string {
	if as.fapiCompatible {
		return ""
	}
	return reason
}
