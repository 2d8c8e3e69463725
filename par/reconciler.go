package par

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jrsteele09/go-authz-core/clients"
	"github.com/jrsteele09/go-authz-core/internal/utils"
	"github.com/jrsteele09/go-authz-core/oautherr"
	"github.com/jrsteele09/go-authz-core/oauthmodel"
	"github.com/jrsteele09/go-authz-core/redirect"
	"github.com/jrsteele09/go-authz-core/requestobject"
	"github.com/jrsteele09/go-authz-core/scope"
)

// Client visible reasons
const (
	ReasonFailedToParse        = "Failed to parse jwt."
	ReasonInvalidRequestObject = "Invalid JWT authorization request"
	ReasonResponseTypeMismatch = "The responseType parameter is not the same in the JWT"
	ReasonClientIDMismatch     = "The clientId parameter is not the same in the JWT"
	ReasonRedirectURIMismatch  = "The redirect_uri parameter is not the same in the JWT"
	ReasonScopeRejected        = "The requested scope is not allowed for the client"
	ReasonOpenIDScopeMissing   = "scope parameter does not contain openid value which is required."
	ReasonCodeChallengeMethod  = "The code_challenge_method in the JWT is not supported"
)

const (
	tracerName                   = "github.com/jrsteele09/go-authz-core/par"
	reconcileSpanName            = "par.reconcile"
	attributeClientID            = "oauth.client_id"
	attributeRequestObjectResult = "par.request_object"
)

// Reconciler merges a signed Request Object into a pushed authorization request. The
// Request Object is authoritative: its parameters must agree with the pushed ones where
// they are security relevant and replace them otherwise.
type Reconciler struct {
	validator     requestobject.Validator
	scopes        scope.Checker
	customAllowed []string
	logger        zerolog.Logger
	tracer        trace.Tracer
}

type ReconcilerOption func(*Reconciler)

// WithCustomParameters names the custom parameters a Request Object may set.
func WithCustomParameters(names []string) ReconcilerOption {
	return func(r *Reconciler) {
		r.customAllowed = names
	}
}

func WithLogger(logger zerolog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) ReconcilerOption {
	return func(r *Reconciler) {
		r.tracer = tracer
	}
}

func NewReconciler(validator requestobject.Validator, scopes scope.Checker, options ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		validator: validator,
		scopes:    scopes,
		logger:    log.Logger.With().Str("component", "par").Logger(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// ValidateRequestURIAbsent rejects a push that itself carries a request_uri.
func (r *Reconciler) ValidateRequestURIAbsent(resp *redirect.Response, requestURI string) error {
	if utils.IsBlank(requestURI) {
		return nil
	}
	r.logger.Trace().Msg("request_uri parameter is not allowed at PAR endpoint")
	return resp.Fail(oautherr.RequestURINotAllowed, "")
}

// Reconcile validates the Request Object in record and merges it into record.Attributes.
// Every check runs against a working copy; record is only updated once all have passed, so
// a failure leaves it as it was. The translator state follows the Request Object state
// straight away so that error redirects carry it. Failures are returned as *redirect.Error.
func (r *Reconciler) Reconcile(ctx context.Context, resp *redirect.Response, record *PushedAuthorizationRequest, client *clients.Client) (err error) {
	if utils.IsBlank(record.Attributes.Request) {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, reconcileSpanName,
		trace.WithAttributes(attribute.String(attributeClientID, record.Attributes.ClientID)))
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Str("panic", fmt.Sprint(p)).Str("client_id", record.Attributes.ClientID).Msg("Invalid JWT authorization request")
			err = resp.Fail(oautherr.InvalidRequestObject, ReasonInvalidRequestObject)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	jwtRequest, err := r.validator.Validate(ctx, record.Attributes.Request, client)
	if err != nil {
		r.logger.Err(err).Str("client_id", record.Attributes.ClientID).Msg("Invalid JWT authorization request")
		return resp.Fail(oautherr.InvalidRequestObject, ReasonInvalidRequestObject)
	}
	if jwtRequest == nil {
		return resp.Fail(oautherr.InvalidRequestObject, ReasonFailedToParse)
	}

	working := record.Attributes.Clone()
	if err := r.merge(resp, working, jwtRequest, client); err != nil {
		span.SetAttributes(attribute.String(attributeRequestObjectResult, "rejected"))
		return err
	}

	record.Attributes = *working
	span.SetAttributes(attribute.String(attributeRequestObjectResult, "accepted"))
	return nil
}

func (r *Reconciler) merge(resp *redirect.Response, working *oauthmodel.AuthorizationParameters, jwtRequest *requestobject.AuthorizationRequest, client *clients.Client) error {
	switch {
	case !utils.IsBlank(jwtRequest.State):
		working.State = jwtRequest.State
		resp.SetState(jwtRequest.State)
	case resp.FAPICompatible():
		// FAPI: a state outside the signed request is not trusted
		working.State = ""
		resp.SetState("")
	}

	if !jwtRequest.ResponseTypes.Equal(working.ResponseTypes()) {
		return resp.Fail(oautherr.InvalidRequestObject, ReasonResponseTypeMismatch)
	}
	if utils.IsBlank(jwtRequest.ClientID) || jwtRequest.ClientID != working.ClientID {
		return resp.Fail(oautherr.InvalidRequestObject, ReasonClientIDMismatch)
	}

	if err := r.mergeScope(resp, working, jwtRequest, client); err != nil {
		return err
	}

	if jwtRequest.RedirectURI != nil && *jwtRequest.RedirectURI != working.RedirectURI {
		return resp.Fail(oautherr.RedirectURIMismatch, ReasonRedirectURIMismatch)
	}

	r.mergePassthrough(resp, working, jwtRequest)
	if err := working.ValidateCodeChallengeMethod(); err != nil {
		return resp.Fail(oautherr.InvalidRequestObject, ReasonCodeChallengeMethod)
	}
	return nil
}

func (r *Reconciler) mergeScope(resp *redirect.Response, working *oauthmodel.AuthorizationParameters, jwtRequest *requestobject.AuthorizationRequest, client *clients.Client) error {
	if _, err := r.scopes.CheckScopesPolicy(client, working.Scope); err != nil {
		r.logger.Debug().Err(err).Str("client_id", working.ClientID).Msg("pushed scope rejected by policy")
		return resp.Fail(oautherr.InvalidScope, ReasonScopeRejected)
	}
	if len(jwtRequest.Scopes) == 0 {
		return nil
	}

	granted, err := r.scopes.CheckScopesPolicy(client, scope.Join(jwtRequest.Scopes))
	if err != nil {
		r.logger.Debug().Err(err).Str("client_id", working.ClientID).Msg("request object scope rejected by policy")
		return resp.Fail(oautherr.InvalidScope, ReasonScopeRejected)
	}
	if !utils.Contains(granted, oauthmodel.ScopeOpenID) {
		return resp.Fail(oautherr.InvalidScope, ReasonOpenIDScopeMissing)
	}
	working.Scope = scope.Join(granted)
	return nil
}

func (r *Reconciler) mergePassthrough(resp *redirect.Response, working *oauthmodel.AuthorizationParameters, jwtRequest *requestobject.AuthorizationRequest) {
	if !utils.IsBlank(jwtRequest.Nonce) {
		working.Nonce = jwtRequest.Nonce
	}
	if !utils.IsBlank(jwtRequest.CodeChallenge) {
		working.CodeChallenge = jwtRequest.CodeChallenge
	}
	if !utils.IsBlank(jwtRequest.CodeChallengeMethod) {
		working.CodeChallengeMethod = jwtRequest.CodeChallengeMethod
	}
	if !utils.IsBlank(jwtRequest.Display) {
		working.Display = jwtRequest.Display
	}
	if len(jwtRequest.Prompts) > 0 {
		working.Prompt = jwtRequest.Prompt
	}
	if jwtRequest.ResponseMode != "" {
		resp.Target().SetResponseMode(jwtRequest.ResponseMode)
		working.ResponseMode = jwtRequest.ResponseMode
	}

	if member := jwtRequest.IDTokenMember; member != nil {
		if member.MaxAge != nil {
			working.MaxAge = utils.Ptr(*member.MaxAge)
		}
		if !utils.IsBlank(member.ACR) {
			working.AcrValues = member.ACR
		}
	}

	for name, value := range jwtRequest.CustomParameters {
		if !utils.Contains(r.customAllowed, name) || utils.IsBlank(value) {
			continue
		}
		if working.CustomParameters == nil {
			working.CustomParameters = make(map[string]string)
		}
		working.CustomParameters[name] = value
	}
}
