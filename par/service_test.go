package par_test

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-authz-core/clients"
	autherrors "github.com/jrsteele09/go-authz-core/internal/errors"
	"github.com/jrsteele09/go-authz-core/oautherr"
	"github.com/jrsteele09/go-authz-core/par"
	parfakerepo "github.com/jrsteele09/go-authz-core/par/repofake"
	"github.com/jrsteele09/go-authz-core/requestobject"
	"github.com/jrsteele09/go-authz-core/scope"
)

const testSecret = "a-client-secret-long-enough-for-hs256"

type serviceFixture struct {
	service *par.Service
	repo    *parfakerepo.FakePARRepo
	client  *clients.Client
	now     time.Time
}

func setupServiceFixture(t *testing.T, options ...par.ServiceOption) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		repo: parfakerepo.NewFakePARRepo(),
		client: &clients.Client{
			ID:           "C1",
			Type:         clients.ClientTypeConfidential,
			Secret:       testSecret,
			RedirectURIs: []string{testRedirectURI},
			Scopes:       []string{"openid", "profile", "email"},
		},
		now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	nowFunc := func() time.Time { return f.now }

	policy := scope.NewPolicy()
	validator := requestobject.NewJWTValidator(requestobject.WithNowFunc(nowFunc))
	reconciler := par.NewReconciler(validator, policy)
	options = append([]par.ServiceOption{par.WithNowFunc(nowFunc)}, options...)
	f.service = par.NewService(f.repo, reconciler, policy, oautherr.NewFactory(), options...)
	return f
}

func pushForm() url.Values {
	return url.Values{
		"client_id":     {"C1"},
		"response_type": {"code"},
		"redirect_uri":  {testRedirectURI},
		"scope":         {"openid profile admin"},
		"state":         {"s-push"},
	}
}

func requireOAuthError(t *testing.T, err error, kind oautherr.Kind) *oautherr.Error {
	t.Helper()
	oauthErr, ok := oautherr.From(err)
	require.True(t, ok, "expected a protocol error, got %v", err)
	require.Equal(t, kind, oauthErr.Kind)
	return oauthErr
}

func TestService_Push(t *testing.T) {
	f := setupServiceFixture(t)
	ctx := context.Background()

	resp, err := f.service.Push(ctx, f.client, pushForm())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(resp.RequestURI, par.RequestURIPrefix))
	require.True(t, par.IsRequestURI(resp.RequestURI))
	require.Equal(t, 60, resp.ExpiresIn)

	record, err := f.repo.Get(ctx, resp.RequestURI)
	require.NoError(t, err)
	require.Equal(t, "openid profile", record.Attributes.Scope)
	require.Equal(t, "s-push", record.Attributes.State)
	require.True(t, record.SingleUse)
	require.Equal(t, f.now.Add(par.DefaultLifetime), record.ExpiresAt)

	other, err := f.service.Push(ctx, f.client, pushForm())
	require.NoError(t, err)
	require.NotEqual(t, resp.RequestURI, other.RequestURI)
}

func TestService_PushRequestObject(t *testing.T) {
	f := setupServiceFixture(t, par.WithLifetime(90*time.Second))
	ctx := context.Background()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":           "C1",
		"client_id":     "C1",
		"response_type": "code",
		"scope":         "openid email",
		"state":         "s-jwt",
		"nonce":         "n-jwt",
		"exp":           f.now.Add(time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	form := pushForm()
	form.Set("request", raw)
	resp, err := f.service.Push(ctx, f.client, form)
	require.NoError(t, err)
	require.Equal(t, 90, resp.ExpiresIn)

	record, err := f.repo.Get(ctx, resp.RequestURI)
	require.NoError(t, err)
	require.Equal(t, "openid email", record.Attributes.Scope)
	require.Equal(t, "s-jwt", record.Attributes.State)
	require.Equal(t, "n-jwt", record.Attributes.Nonce)

	t.Run("invalid signature is not stored", func(t *testing.T) {
		f := setupServiceFixture(t)
		form := pushForm()
		form.Set("request", raw[:len(raw)-4]+"AAAA")
		_, err := f.service.Push(ctx, f.client, form)
		oauthErr := requireOAuthError(t, err, oautherr.InvalidRequestObject)
		require.Equal(t, par.ReasonInvalidRequestObject, oauthErr.Reason)

		expired, err := f.repo.ListExpired(ctx, f.now.Add(time.Hour), 0)
		require.NoError(t, err)
		require.Empty(t, expired)
	})
}

func TestService_PushPublicClientPKCEInRequestObject(t *testing.T) {
	ctx := context.Background()

	signed := func(t *testing.T, f *serviceFixture, method string) string {
		t.Helper()
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"iss":                   "C1",
			"client_id":             "C1",
			"response_type":         "code",
			"scope":                 "openid",
			"code_challenge":        "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
			"code_challenge_method": method,
			"exp":                   f.now.Add(time.Minute).Unix(),
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return raw
	}

	t.Run("accepted", func(t *testing.T) {
		f := setupServiceFixture(t)
		f.client.Type = clients.ClientTypePublic
		form := pushForm()
		form.Set("request", signed(t, f, "S256"))

		resp, err := f.service.Push(ctx, f.client, form)
		require.NoError(t, err)

		record, err := f.repo.Get(ctx, resp.RequestURI)
		require.NoError(t, err)
		require.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", record.Attributes.CodeChallenge)
		require.Equal(t, "S256", record.Attributes.CodeChallengeMethod)
	})

	t.Run("unsupported method is not stored", func(t *testing.T) {
		f := setupServiceFixture(t)
		form := pushForm()
		form.Set("request", signed(t, f, "MD5"))

		_, err := f.service.Push(ctx, f.client, form)
		oauthErr := requireOAuthError(t, err, oautherr.InvalidRequestObject)
		require.Equal(t, par.ReasonCodeChallengeMethod, oauthErr.Reason)

		stored, err := f.repo.ListExpired(ctx, f.now.Add(time.Hour), 0)
		require.NoError(t, err)
		require.Empty(t, stored)
	})
}

func TestService_PushNestedRequestURIReportedFirst(t *testing.T) {
	f := setupServiceFixture(t)
	form := pushForm()
	form.Set("request_uri", par.RequestURIPrefix+"x")
	form.Set("redirect_uri", "https://evil.example.com/cb")
	form.Set("response_mode", "bogus")
	form.Set("scope", "admin")

	_, err := f.service.Push(context.Background(), f.client, form)
	requireOAuthError(t, err, oautherr.RequestURINotAllowed)
}

func TestService_PushRejects(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(url.Values)
		client func(*clients.Client)
		kind   oautherr.Kind
	}{
		{
			name:   "nested request_uri",
			mutate: func(v url.Values) { v.Set("request_uri", par.RequestURIPrefix+"x") },
			kind:   oautherr.RequestURINotAllowed,
		},
		{
			name:   "unregistered redirect_uri",
			mutate: func(v url.Values) { v.Set("redirect_uri", "https://evil.example.com/cb") },
			kind:   oautherr.InvalidRequest,
		},
		{
			name:   "other client",
			mutate: func(v url.Values) { v.Set("client_id", "C2") },
			kind:   oautherr.InvalidRequest,
		},
		{
			name:   "unsupported response type",
			mutate: func(v url.Values) { v.Set("response_type", "device") },
			kind:   oautherr.InvalidRequest,
		},
		{
			name:   "bad max_age",
			mutate: func(v url.Values) { v.Set("max_age", "-1") },
			kind:   oautherr.InvalidRequest,
		},
		{
			name:   "no registered scope",
			mutate: func(v url.Values) { v.Set("scope", "admin") },
			kind:   oautherr.InvalidScope,
		},
		{
			name:   "public client without PKCE",
			client: func(c *clients.Client) { c.Type = clients.ClientTypePublic },
			kind:   oautherr.InvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupServiceFixture(t)
			form := pushForm()
			if tt.mutate != nil {
				tt.mutate(form)
			}
			if tt.client != nil {
				tt.client(f.client)
			}
			_, err := f.service.Push(ctx, f.client, form)
			requireOAuthError(t, err, tt.kind)
		})
	}
}

func TestService_PushFAPISuppressesReasons(t *testing.T) {
	f := setupServiceFixture(t, par.WithFAPICompatibility(true))
	require.True(t, f.service.FAPICompatible())

	form := pushForm()
	form.Set("redirect_uri", "https://evil.example.com/cb")
	_, err := f.service.Push(context.Background(), f.client, form)
	oauthErr := requireOAuthError(t, err, oautherr.InvalidRequest)
	require.Empty(t, oauthErr.Reason)
}

func TestService_Consume(t *testing.T) {
	ctx := context.Background()

	t.Run("single use", func(t *testing.T) {
		f := setupServiceFixture(t)
		resp, err := f.service.Push(ctx, f.client, pushForm())
		require.NoError(t, err)

		params, err := f.service.Consume(ctx, resp.RequestURI, "C1")
		require.NoError(t, err)
		require.Equal(t, "C1", params.ClientID)
		require.Equal(t, "openid profile", params.Scope)

		_, err = f.service.Consume(ctx, resp.RequestURI, "C1")
		requireOAuthError(t, err, oautherr.InvalidRequest)
		require.ErrorIs(t, err, autherrors.ErrRequestURIExpired)
	})

	t.Run("expired", func(t *testing.T) {
		f := setupServiceFixture(t)
		resp, err := f.service.Push(ctx, f.client, pushForm())
		require.NoError(t, err)

		f.now = f.now.Add(par.DefaultLifetime + time.Second)
		_, err = f.service.Consume(ctx, resp.RequestURI, "C1")
		requireOAuthError(t, err, oautherr.InvalidRequest)
		require.ErrorIs(t, err, autherrors.ErrRequestURIExpired)
	})

	t.Run("issued to another client", func(t *testing.T) {
		f := setupServiceFixture(t)
		resp, err := f.service.Push(ctx, f.client, pushForm())
		require.NoError(t, err)

		_, err = f.service.Consume(ctx, resp.RequestURI, "C2")
		require.ErrorIs(t, err, autherrors.ErrRequestURIMismatch)

		// The rightful client can still use it.
		_, err = f.service.Consume(ctx, resp.RequestURI, "C1")
		require.NoError(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		f := setupServiceFixture(t)
		_, err := f.service.Consume(ctx, "https://example.com/request", "C1")
		requireOAuthError(t, err, oautherr.InvalidRequest)
		_, err = f.service.Consume(ctx, par.RequestURIPrefix, "C1")
		requireOAuthError(t, err, oautherr.InvalidRequest)
	})

	t.Run("unknown", func(t *testing.T) {
		f := setupServiceFixture(t)
		_, err := f.service.Consume(ctx, par.RequestURIPrefix+"missing", "C1")
		require.ErrorIs(t, err, autherrors.ErrRequestURIExpired)
	})
}
