package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/jrsteele09/go-authz-core/auth"
	"github.com/jrsteele09/go-authz-core/cache"
	"github.com/jrsteele09/go-authz-core/cleaner"
	"github.com/jrsteele09/go-authz-core/clients"
	fakeclientrepo "github.com/jrsteele09/go-authz-core/clients/fakerepo"
	"github.com/jrsteele09/go-authz-core/internal/config"
	"github.com/jrsteele09/go-authz-core/oautherr"
	"github.com/jrsteele09/go-authz-core/par"
	parfakerepo "github.com/jrsteele09/go-authz-core/par/repofake"
	"github.com/jrsteele09/go-authz-core/requestobject"
	"github.com/jrsteele09/go-authz-core/scope"
	"github.com/jrsteele09/go-authz-core/server"
	"github.com/jrsteele09/go-authz-core/storage/redisstore"
	"github.com/jrsteele09/go-authz-core/token"
	tokenfakerepo "github.com/jrsteele09/go-authz-core/token/repofake"
	"github.com/jrsteele09/go-authz-core/uma"
	rptfakerepo "github.com/jrsteele09/go-authz-core/uma/repofake"
)

const (
	deleteRetryBackoff = 200 * time.Millisecond
	keySetCacheSize    = 64
)

type stores struct {
	clients  clients.Repo
	tokens   token.Repo
	rpts     uma.Repo
	requests par.Repo
	close    func() error
}

type application struct {
	handler http.Handler
	cleaner *cleaner.Timer
	close   func()
}

// newStores connects to Redis when REDIS_ADDR is set and keeps everything in memory otherwise.
func newStores(ctx context.Context, c config.Config) (*stores, error) {
	if c.GetRedisAddr() == "" {
		log.Warn().Msg("REDIS_ADDR not set, using in-memory stores")
		return &stores{
			clients:  fakeclientrepo.NewFakeClientRepo(),
			tokens:   tokenfakerepo.NewFakeTokensRepo(),
			rpts:     rptfakerepo.NewFakeRPTRepo(),
			requests: parfakerepo.NewFakePARRepo(),
			close:    func() error { return nil },
		}, nil
	}

	store, err := redisstore.New(ctx, redisstore.Config{
		Addr:      c.GetRedisAddr(),
		Password:  c.GetRedisPassword(),
		DB:        c.GetRedisDB(),
		KeyPrefix: c.GetRedisKeyPrefix(),
	})
	if err != nil {
		return nil, err
	}
	return &stores{
		clients:  store.Clients(),
		tokens:   store.Tokens(),
		rpts:     store.RPTs(),
		requests: store.PushedRequests(),
		close:    store.Close,
	}, nil
}

func newApplication(ctx context.Context, c config.Config) (*application, error) {
	s, err := newStores(ctx, c)
	if err != nil {
		return nil, errors.Wrap(err, "[newApplication] stores")
	}

	clientCache, err := cache.NewLRU(c.GetClientCacheSize())
	if err != nil {
		return nil, errors.Wrap(err, "[newApplication] client cache")
	}
	keySets, err := cache.NewLRU(keySetCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "[newApplication] key set cache")
	}
	clientRepo := clients.NewCachedRepo(s.clients, clientCache)

	policy := scope.NewPolicy(scope.WithStrict(c.GetStrictScopes()))
	factory := oautherr.NewFactory()
	validator := requestobject.NewJWTValidator(
		requestobject.WithAudience(c.GetBaseURL()),
		requestobject.WithLeeway(c.GetRequestObjectLeeway()),
		requestobject.WithCustomParameters(c.GetCustomAllowedParameters()),
		requestobject.WithKeySetCache(keySets),
	)
	reconciler := par.NewReconciler(validator, policy, par.WithCustomParameters(c.GetCustomAllowedParameters()))
	pushed := par.NewService(s.requests, reconciler, policy, factory,
		par.WithLifetime(c.GetPARLifetime()),
		par.WithFAPICompatibility(c.GetFAPICompatibility()),
		par.WithAllowedCustomParameters(c.GetCustomAllowedParameters()),
	)

	authService, err := auth.NewAuthorizationService(
		auth.Repos{Clients: clientRepo, Tokens: s.tokens},
		pushed, reconciler, policy, factory,
		auth.WithPARRequired(c.GetPARRequired()),
		auth.WithFAPICompatibility(c.GetFAPICompatibility()),
		auth.WithAllowedCustomParameters(c.GetCustomAllowedParameters()),
		auth.WithLifetimes(c.GetAuthCodeLifetime(), c.GetAccessTokenLifetime()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[newApplication] authorization service")
	}

	var serverOptions []server.Option
	if header := c.GetTrustedSubjectHeader(); header != "" {
		log.Warn().Str("header", header).Msg("trusting the end user subject set by the proxy, the proxy must strip this header from client requests")
		serverOptions = append(serverOptions, server.WithSubjectResolver(server.HeaderSubjectResolver(header)))
	} else {
		log.Warn().Msg("TRUSTED_SUBJECT_HEADER not set, authorization requests will answer login_required")
	}

	handler, err := server.New(c, server.Services{
		Auth:    authService,
		Pushed:  pushed,
		Clients: clientRepo,
		Errors:  factory,
	}, serverOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "[newApplication] server")
	}

	app := &application{
		handler: handler,
		close: func() {
			if err := s.close(); err != nil {
				log.Err(err).Msg("failed to close stores")
			}
		},
	}

	if c.GetCleanerEnabled() {
		app.cleaner, err = cleaner.NewTimer(clientCache, []cleaner.Collection{
			cleaner.Clients(s.clients),
			cleaner.Tokens(s.tokens),
			cleaner.RPTs(s.rpts),
			cleaner.PushedRequests(s.requests),
		},
			cleaner.WithInterval(c.GetCleanerInterval()),
			cleaner.WithBatchSize(c.GetCleanerBatchSize()),
			cleaner.WithDeleteRetries(c.GetCleanerDeleteRetries(), deleteRetryBackoff),
			cleaner.WithMeterProvider(otel.GetMeterProvider()),
		)
		if err != nil {
			app.close()
			return nil, errors.Wrap(err, "[newApplication] cleaner")
		}
	}
	return app, nil
}
