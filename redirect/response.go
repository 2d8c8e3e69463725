package redirect

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-authz-core/oautherr"
)

// ErrorFactory renders an error kind as a query-string shaped payload.
type ErrorFactory interface {
	QueryString(kind oautherr.Kind, state, reason string) string
}

// Response pairs the in-flight Target with the request state and turns protocol errors into
// terminal redirect outcomes.
type Response struct {
	target         *Target
	state          string
	fapiCompatible bool
	factory        ErrorFactory
	logger         zerolog.Logger
}

// ResponseOption configures a Response.
type ResponseOption func(*Response)

func WithLogger(logger zerolog.Logger) ResponseOption {
	return func(r *Response) {
		r.logger = logger
	}
}

func NewResponse(target *Target, state string, fapiCompatible bool, factory ErrorFactory, options ...ResponseOption) *Response {
	r := &Response{
		target:         target,
		state:          state,
		fapiCompatible: fapiCompatible,
		factory:        factory,
		logger:         log.Logger.With().Str("component", "redirect").Logger(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Response) Target() *Target {
	return r.target
}

func (r *Response) State() string {
	return r.state
}

func (r *Response) SetState(state string) {
	r.state = state
}

func (r *Response) FAPICompatible() bool {
	return r.fapiCompatible
}

// Fail writes the error payload for kind into the target and returns the terminal error the
// caller must return. Under FAPI the reason is logged and never sent to the client.
func (r *Response) Fail(kind oautherr.Kind, reason string) *Error {
	reason = r.applyErrorParameters(kind, reason)
	outcome, err := r.target.Build()
	if err != nil {
		r.logger.Err(err).Str("error", kind.Code()).Msg("failed to serialize error redirect")
	}
	return &Error{Kind: kind, Reason: reason, Outcome: outcome, cause: err}
}

// ErrorBuilder writes the error payload for kind into the target and returns a builder for
// callers that need to add headers before the outcome is final.
func (r *Response) ErrorBuilder(kind oautherr.Kind) *Builder {
	r.applyErrorParameters(kind, "")
	return &Builder{kind: kind, target: r.target, header: make(http.Header)}
}

func (r *Response) applyErrorParameters(kind oautherr.Kind, reason string) string {
	if r.fapiCompatible && reason != "" {
		r.logger.Debug().Str("error", kind.Code()).Str("reason", reason).Msg("error reason suppressed for FAPI client")
		reason = ""
	}
	r.target.ParseQueryString(r.factory.QueryString(kind, r.state, reason))
	return reason
}

// Error is a terminal protocol failure. Outcome is the serialized error redirect and is nil
// only if the target could not be rendered.
type Error struct {
	Kind    oautherr.Kind
	Reason  string
	Outcome *Outcome
	cause   error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return e.Kind.Code() + ": " + e.Reason
	}
	return e.Kind.Code()
}

// Unwrap exposes the failure as an *oautherr.Error so transports that do not redirect can
// render it too.
func (e *Error) Unwrap() []error {
	oauthErr := oautherr.New(e.Kind, e.Reason)
	if e.cause != nil {
		return []error{oauthErr, e.cause}
	}
	return []error{oauthErr}
}

// AsError returns the terminal redirect error in err's chain.
func AsError(err error) (*Error, bool) {
	var redirectErr *Error
	if errors.As(err, &redirectErr) {
		return redirectErr, true
	}
	return nil, false
}

// Builder finalizes an error outcome after headers have been attached.
type Builder struct {
	kind   oautherr.Kind
	target *Target
	header http.Header
}

func (b *Builder) Kind() oautherr.Kind {
	return b.kind
}

func (b *Builder) WithHeader(key, value string) *Builder {
	b.header.Add(key, value)
	return b
}

func (b *Builder) Build() (*Outcome, error) {
	outcome, err := b.target.Build()
	if err != nil {
		return nil, err
	}
	outcome.Header = b.header
	return outcome, nil
}
