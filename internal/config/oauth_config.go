package config

import "time"

type OAuthConfig interface {
	GetPARLifetime() time.Duration
	GetPARRequired() bool
	GetCustomAllowedParameters() []string
	GetRequestObjectLeeway() time.Duration
	GetAuthCodeLifetime() time.Duration
	GetAccessTokenLifetime() time.Duration
	GetStrictScopes() bool
}

type OAuth struct {
	PARLifetime             time.Duration `env:"PAR_LIFETIME" envDefault:"60s"`
	PARRequired             bool          `env:"PAR_REQUIRED" envDefault:"false"`
	CustomAllowedParameters []string      `env:"CUSTOM_ALLOWED_PARAMETERS" envSeparator:","`
	RequestObjectLeeway     time.Duration `env:"REQUEST_OBJECT_LEEWAY" envDefault:"30s"`
	AuthCodeLifetime        time.Duration `env:"AUTH_CODE_LIFETIME" envDefault:"10m"`
	AccessTokenLifetime     time.Duration `env:"ACCESS_TOKEN_LIFETIME" envDefault:"1h"`
	StrictScopes            bool          `env:"STRICT_SCOPES" envDefault:"false"`
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetPARLifetime() time.Duration {
	return o.PARLifetime
}

// GetPARRequired rejects authorization requests that do not use a pushed request_uri
func (o OAuth) GetPARRequired() bool {
	return o.PARRequired
}

func (o OAuth) GetCustomAllowedParameters() []string {
	return o.CustomAllowedParameters
}

func (o OAuth) GetRequestObjectLeeway() time.Duration {
	return o.RequestObjectLeeway
}

func (o OAuth) GetAuthCodeLifetime() time.Duration {
	return o.AuthCodeLifetime
}

func (o OAuth) GetAccessTokenLifetime() time.Duration {
	return o.AccessTokenLifetime
}

func (o OAuth) GetStrictScopes() bool {
	return o.StrictScopes
}
