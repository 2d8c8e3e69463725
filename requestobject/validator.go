package requestobject

import (
	"context"
	"crypto"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/jrsteele09/go-authz-core/cache"
	"github.com/jrsteele09/go-authz-core/clients"
	"github.com/jrsteele09/go-authz-core/internal/utils"
)

const defaultKeySetCacheSize = 128

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported request object algorithm")
	ErrNoVerificationKey    = errors.New("client has no key to verify the request object")
	ErrIssuerMismatch       = errors.New("request object issuer is not the client")
)

var (
	hmacAlgorithms       = []string{"HS256", "HS384", "HS512"}
	asymmetricAlgorithms = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512", "EdDSA"}
)

// Validator verifies a raw Request Object issued by client.
type Validator interface {
	Validate(ctx context.Context, raw string, client *clients.Client) (*AuthorizationRequest, error)
}

// KeySetCache holds the remote JWKS key sets so that their keys are fetched once per URI.
type KeySetCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// JWTValidator verifies Request Objects signed with the client secret (HS*) or with a key the
// client registered, either as a PEM public key or behind its jwks_uri.
type JWTValidator struct {
	audience      string
	leeway        time.Duration
	nowFunc       func() time.Time
	customAllowed []string
	httpClient    *http.Client
	keySets       KeySetCache
}

var _ Validator = (*JWTValidator)(nil)

type Option func(*JWTValidator)

// WithAudience requires the aud claim to contain audience, usually the issuer URL.
func WithAudience(audience string) Option {
	return func(v *JWTValidator) {
		v.audience = audience
	}
}

func WithLeeway(leeway time.Duration) Option {
	return func(v *JWTValidator) {
		v.leeway = leeway
	}
}

// WithNowFunc sets the clock time based claims are checked against.
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(v *JWTValidator) {
		v.nowFunc = nowFunc
	}
}

// WithCustomParameters names the non-standard claims copied into CustomParameters.
func WithCustomParameters(names []string) Option {
	return func(v *JWTValidator) {
		v.customAllowed = names
	}
}

// WithHTTPClient sets the client used to fetch remote key sets.
func WithHTTPClient(client *http.Client) Option {
	return func(v *JWTValidator) {
		v.httpClient = client
	}
}

// WithKeySetCache shares remote key sets between validators.
func WithKeySetCache(cache KeySetCache) Option {
	return func(v *JWTValidator) {
		v.keySets = cache
	}
}

func NewJWTValidator(options ...Option) *JWTValidator {
	v := &JWTValidator{
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	if v.keySets == nil {
		if c, err := cache.NewLRU(defaultKeySetCacheSize); err == nil {
			v.keySets = c
		}
	}
	return v
}

// Validate checks the signature and the registered time and audience claims of raw, then
// returns the authorization parameters it carries.
func (v *JWTValidator) Validate(ctx context.Context, raw string, client *clients.Client) (*AuthorizationRequest, error) {
	if client == nil {
		return nil, errors.New("[Validate] no client")
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(err, "[Validate] malformed request object")
	}
	alg, _ := unverified.Header["alg"].(string)

	var payload []byte
	switch {
	case utils.Contains(hmacAlgorithms, alg):
		payload, err = v.verifyHMAC(raw, client)
	case utils.Contains(asymmetricAlgorithms, alg):
		payload, err = v.verifyAsymmetric(ctx, raw, client)
	default:
		err = errors.Wrapf(ErrUnsupportedAlgorithm, "[Validate] alg %q", alg)
	}
	if err != nil {
		return nil, err
	}

	if iss := strings.TrimSpace(gjson.GetBytes(payload, claimIssuer).String()); iss != "" && iss != client.ID {
		return nil, errors.Wrapf(ErrIssuerMismatch, "[Validate] iss %q", iss)
	}
	return parseRequest(payload, v.customAllowed), nil
}

func (v *JWTValidator) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.nowFunc),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	return opts
}

func (v *JWTValidator) verifyHMAC(raw string, client *clients.Client) ([]byte, error) {
	if client.Secret == "" {
		return nil, errors.Wrapf(ErrNoVerificationKey, "[verifyHMAC] client %s has no secret", client.ID)
	}

	opts := append(v.parserOptions(), jwt.WithValidMethods(hmacAlgorithms))
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return []byte(client.Secret), nil
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "[verifyHMAC] failed to verify request object")
	}

	payload, err := json.Marshal(token.Claims)
	if err != nil {
		return nil, errors.Wrap(err, "[verifyHMAC] failed to encode claims")
	}
	return payload, nil
}

func (v *JWTValidator) verifyAsymmetric(ctx context.Context, raw string, client *clients.Client) ([]byte, error) {
	keySet, err := v.keySet(ctx, client)
	if err != nil {
		return nil, err
	}

	payload, err := keySet.VerifySignature(ctx, raw)
	if err != nil {
		return nil, errors.Wrap(err, "[verifyAsymmetric] failed to verify signature")
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.Wrap(err, "[verifyAsymmetric] failed to decode claims")
	}
	if err := jwt.NewValidator(v.parserOptions()...).Validate(claims); err != nil {
		return nil, errors.Wrap(err, "[verifyAsymmetric] invalid claims")
	}
	return payload, nil
}

func (v *JWTValidator) keySet(ctx context.Context, client *clients.Client) (oidc.KeySet, error) {
	if client.PublicKeyPEM != "" {
		pub, err := ParsePublicKeyPEM(client.PublicKeyPEM)
		if err != nil {
			return nil, err
		}
		return &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{pub}}, nil
	}

	if client.JWKSURI == "" {
		return nil, errors.Wrapf(ErrNoVerificationKey, "[keySet] client %s", client.ID)
	}

	cacheKey := "jwks:" + client.JWKSURI
	if cached, ok := v.keySets.Get(cacheKey); ok {
		if keySet, ok := cached.(oidc.KeySet); ok {
			return keySet, nil
		}
	}

	// The key set outlives this request and refreshes itself in the background.
	remoteCtx := context.WithoutCancel(ctx)
	if v.httpClient != nil {
		remoteCtx = oidc.ClientContext(remoteCtx, v.httpClient)
	}
	keySet := oidc.NewRemoteKeySet(remoteCtx, client.JWKSURI)
	v.keySets.Set(cacheKey, keySet)
	return keySet, nil
}
