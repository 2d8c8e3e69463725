package config

import (
	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	CleanerConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Cleaner
	Storage
}

// New reads the configuration from the process environment.
func New() (Config, error) {
	return parse(env.Options{})
}

// NewFromMap reads the configuration from environment, ignoring the process environment.
func NewFromMap(environment map[string]string) (Config, error) {
	if environment == nil {
		environment = map[string]string{}
	}
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (Config, error) {
	c := mainConfig{}
	if err := env.Parse(&c, opts); err != nil {
		return nil, errors.Wrap(err, "[config.New] parse environment")
	}
	return c, nil
}
