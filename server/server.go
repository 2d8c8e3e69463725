package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-authz-core/auth"
	"github.com/jrsteele09/go-authz-core/clients"
	"github.com/jrsteele09/go-authz-core/internal/config"
	"github.com/jrsteele09/go-authz-core/oautherr"
	"github.com/jrsteele09/go-authz-core/par"
)

// Services holds the components the HTTP handlers delegate to.
type Services struct {
	Auth    *auth.AuthorizationService
	Pushed  *par.Service
	Clients clients.Repo
	Errors  *oautherr.Factory
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	services Services
	subjects SubjectResolver
	limiter  *clientLimiter
	logger   zerolog.Logger
}

type Option func(*Server)

// WithSubjectResolver sets how the authenticated end user of an authorization request is
// found. Without one every authorization request is answered with login_required.
func WithSubjectResolver(resolver SubjectResolver) Option {
	return func(s *Server) {
		s.subjects = resolver
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(cfg config.Config, services Services, options ...Option) (*Server, error) {
	if services.Auth == nil || services.Pushed == nil || services.Clients == nil {
		return nil, errors.New("[Server New] authorization service, PAR service and clients repo are required")
	}
	if services.Errors == nil {
		services.Errors = oautherr.NewFactory()
	}

	limiter, err := newClientLimiter(cfg.GetPARRateLimit(), cfg.GetPARRateBurst(), defaultLimiterTableSize)
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to create PAR rate limiter")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		services: services,
		subjects: noSubject{},
		limiter:  limiter,
		logger:   log.Logger.With().Str("component", "server").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	s.logger.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if colour, ok := methodColors[method]; ok {
		return colour + paddedMethod + resetColor
	}
	return gray + paddedMethod + resetColor
}

// SubjectResolver finds the authenticated end user of a request.
type SubjectResolver interface {
	Subject(r *http.Request) (string, bool)
}

// HeaderSubjectResolver trusts a header set by an authenticating proxy in front of the server.
// The proxy must strip the header from client requests, or any caller can name a subject.
type HeaderSubjectResolver string

func (h HeaderSubjectResolver) Subject(r *http.Request) (string, bool) {
	subject := strings.TrimSpace(r.Header.Get(string(h)))
	return subject, subject != ""
}

type noSubject struct{}

func (noSubject) Subject(*http.Request) (string, bool) {
	return "", false
}
