package par

import (
	"context"
	"net/url"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-authz-core/clients"
	autherrors "github.com/jrsteele09/go-authz-core/internal/errors"
	"github.com/jrsteele09/go-authz-core/internal/utils"
	"github.com/jrsteele09/go-authz-core/oautherr"
	"github.com/jrsteele09/go-authz-core/oauthmodel"
	"github.com/jrsteele09/go-authz-core/redirect"
	"github.com/jrsteele09/go-authz-core/scope"
)

const (
	DefaultLifetime = 60 * time.Second

	requestURIIDLength = 32
)

// Service implements the pushed authorization request endpoint and the lookup the
// authorization endpoint makes with the request_uri it returns.
type Service struct {
	repo           Repo
	reconciler     *Reconciler
	scopes         scope.Checker
	factory        redirect.ErrorFactory
	lifetime       time.Duration
	fapiCompatible bool
	customAllowed  []string
	nowFunc        func() time.Time
	logger         zerolog.Logger
}

type ServiceOption func(*Service)

// WithLifetime sets how long a pushed request can be used.
func WithLifetime(lifetime time.Duration) ServiceOption {
	return func(s *Service) {
		s.lifetime = lifetime
	}
}

// WithFAPICompatibility drops error reasons and untrusted state as FAPI requires.
func WithFAPICompatibility(enabled bool) ServiceOption {
	return func(s *Service) {
		s.fapiCompatible = enabled
	}
}

// WithAllowedCustomParameters names the custom parameters a push may carry.
func WithAllowedCustomParameters(names []string) ServiceOption {
	return func(s *Service) {
		s.customAllowed = names
	}
}

func WithNowFunc(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = nowFunc
	}
}

func WithServiceLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(repo Repo, reconciler *Reconciler, scopes scope.Checker, factory redirect.ErrorFactory, options ...ServiceOption) *Service {
	s := &Service{
		repo:       repo,
		reconciler: reconciler,
		scopes:     scopes,
		factory:    factory,
		lifetime:   DefaultLifetime,
		nowFunc:    time.Now,
		logger:     log.Logger.With().Str("component", "par").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Push validates the pushed parameters of an authenticated client, reconciles any Request
// Object and stores the result. Failures are *oautherr.Error or *redirect.Error values.
func (s *Service) Push(ctx context.Context, client *clients.Client, form url.Values) (*oauthmodel.PushedAuthorizationResponse, error) {
	if requestURI := form.Get(oauthmodel.FormParameterRequestURI); !utils.IsBlank(requestURI) {
		resp := s.newResponse(form.Get(oauthmodel.FormParameterRedirectURI),
			oauthmodel.ParseResponseTypes(form.Get(oauthmodel.FormParameterResponseType)), "", form.Get(oauthmodel.FormParameterState))
		return nil, s.reconciler.ValidateRequestURIAbsent(resp, requestURI)
	}

	params, err := oauthmodel.ParseAuthorizationParameters(form, s.customAllowed)
	if err != nil {
		return nil, oautherr.Wrap(err, oautherr.InvalidRequest, s.reason(err.Error()))
	}
	if err := params.ValidateParametersWithClient(client); err != nil {
		return nil, oautherr.Wrap(err, oautherr.InvalidRequest, s.reason(err.Error()))
	}

	resp := s.newResponse(params.RedirectURI, params.ResponseTypes(), params.ResponseMode, params.State)

	granted, err := s.scopes.CheckScopesPolicy(client, params.Scope)
	if err != nil {
		s.logger.Debug().Err(err).Str("client_id", client.ID).Msg("pushed scope rejected by policy")
		return nil, resp.Fail(oautherr.InvalidScope, ReasonScopeRejected)
	}
	params.Scope = scope.Join(granted)

	id, err := gonanoid.New(requestURIIDLength)
	if err != nil {
		return nil, errors.Wrap(err, "[Push] generate request_uri")
	}
	now := s.nowFunc()
	record := &PushedAuthorizationRequest{
		ID:         RequestURIPrefix + id,
		Attributes: *params,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.lifetime),
		SingleUse:  true,
	}

	if err := s.reconciler.Reconcile(ctx, resp, record, client); err != nil {
		return nil, err
	}
	// The Request Object may carry the code_challenge
	if client.IsPublic() && utils.IsBlank(record.Attributes.CodeChallenge) {
		return nil, oautherr.New(oautherr.InvalidRequest, s.reason("PKCE is required for public clients"))
	}

	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, errors.Wrap(err, "[Push] store pushed authorization request")
	}

	s.logger.Debug().Str("client_id", client.ID).Time("expires_at", record.ExpiresAt).Msg("pushed authorization request stored")
	return &oauthmodel.PushedAuthorizationResponse{
		RequestURI: record.ID,
		ExpiresIn:  int(s.lifetime.Seconds()),
	}, nil
}

func (s *Service) newResponse(redirectURI string, responseTypes oauthmodel.ResponseTypes, mode oauthmodel.ResponseModeType, state string) *redirect.Response {
	target := redirect.NewTarget(redirectURI, responseTypes, mode)
	return redirect.NewResponse(target, state, s.fapiCompatible, s.factory, redirect.WithLogger(s.logger))
}

// Consume returns the parameters pushed under requestURI by clientID. Single use requests
// are deleted, so a second Consume fails.
func (s *Service) Consume(ctx context.Context, requestURI, clientID string) (*oauthmodel.AuthorizationParameters, error) {
	if !IsRequestURI(requestURI) {
		return nil, oautherr.New(oautherr.InvalidRequest, s.reason("malformed request_uri"))
	}

	record, err := s.repo.Get(ctx, requestURI)
	if autherrors.Is(err, autherrors.ErrNotFound) {
		return nil, oautherr.Wrap(autherrors.ErrRequestURIExpired, oautherr.InvalidRequest, s.reason("request_uri is unknown or has expired"))
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Consume] load pushed authorization request")
	}

	if record.IsExpired(s.nowFunc()) {
		return nil, oautherr.Wrap(autherrors.ErrRequestURIExpired, oautherr.InvalidRequest, s.reason("request_uri is unknown or has expired"))
	}
	if record.Attributes.ClientID != clientID {
		return nil, oautherr.Wrap(autherrors.ErrRequestURIMismatch, oautherr.InvalidRequest, s.reason("request_uri was issued to another client"))
	}

	if record.SingleUse {
		err := s.repo.Delete(ctx, requestURI)
		if autherrors.Is(err, autherrors.ErrNotFound) {
			// Consumed concurrently
			return nil, oautherr.Wrap(autherrors.ErrRequestURIExpired, oautherr.InvalidRequest, s.reason("request_uri is unknown or has expired"))
		}
		if err != nil {
			return nil, errors.Wrap(err, "[Consume] delete pushed authorization request")
		}
	}
	return record.Attributes.Clone(), nil
}

// FAPICompatible reports whether error reasons and untrusted state are dropped.
func (s *Service) FAPICompatible() bool {
	return s.fapiCompatible
}

func (s *Service) reason(reason string) string {
	if s.fapiCompatible {
		return ""
	}
	return reason
}
