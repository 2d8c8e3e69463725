package requestobject_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-authz-core/clients"
	"github.com/jrsteele09/go-authz-core/oauthmodel"
	"github.com/jrsteele09/go-authz-core/requestobject"
)

const testSecret = "a-client-secret-long-enough-for-hs256"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func nowFunc() time.Time { return testNow }

func hmacClient() *clients.Client {
	return &clients.Client{ID: "C1", Secret: testSecret}
}

func signHS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	raw, err := token.SignedString(key)
	require.NoError(t, err)
	return raw
}

func generateRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":           "C1",
		"client_id":     "C1",
		"response_type": "code",
		"scope":         "openid profile",
		"redirect_uri":  "https://client.example.com/cb",
		"state":         "jwt-state",
		"nonce":         "n-0S6_WzA2Mj",
		"exp":           testNow.Add(5 * time.Minute).Unix(),
	}
}

func TestJWTValidator_HMAC(t *testing.T) {
	validator := requestobject.NewJWTValidator(requestobject.WithNowFunc(nowFunc))

	claims := baseClaims()
	claims["code_challenge"] = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	claims["code_challenge_method"] = "S256"
	claims["display"] = "popup"
	claims["prompt"] = "login bogus consent"
	claims["response_mode"] = "form_post"
	claims["claims"] = map[string]any{
		"id_token": map[string]any{
			"max_age": 3600,
			"acr":     map[string]any{"values": []any{"urn:acr:1", "urn:acr:2"}},
		},
	}

	req, err := validator.Validate(context.Background(), signHS256(t, claims), hmacClient())
	require.NoError(t, err)

	require.Equal(t, oauthmodel.ResponseTypes{oauthmodel.CodeResponseType}, req.ResponseTypes)
	require.Equal(t, "C1", req.ClientID)
	require.NotNil(t, req.RedirectURI)
	require.Equal(t, "https://client.example.com/cb", *req.RedirectURI)
	require.Equal(t, []string{"openid", "profile"}, req.Scopes)
	require.Equal(t, "jwt-state", req.State)
	require.Equal(t, "n-0S6_WzA2Mj", req.Nonce)
	require.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", req.CodeChallenge)
	require.Equal(t, "S256", req.CodeChallengeMethod)
	require.Equal(t, "popup", req.Display)
	require.Equal(t, "login bogus consent", req.Prompt)
	require.Equal(t, []string{"login", "consent"}, req.Prompts)
	require.Equal(t, oauthmodel.FormPostResponseMode, req.ResponseMode)

	require.NotNil(t, req.IDTokenMember)
	require.NotNil(t, req.IDTokenMember.MaxAge)
	require.Equal(t, 3600, *req.IDTokenMember.MaxAge)
	require.Equal(t, "urn:acr:1 urn:acr:2", req.IDTokenMember.ACR)
}

func TestJWTValidator_ClaimShapes(t *testing.T) {
	validator := requestobject.NewJWTValidator(
		requestobject.WithNowFunc(nowFunc),
		requestobject.WithCustomParameters([]string{"customer_id", "empty_one"}),
	)

	claims := jwt.MapClaims{
		"client_id":     "C1",
		"response_type": []any{"code", "id_token"},
		"display":       "fullscreen",
		"response_mode": "web_message",
		"customer_id":   "cust-42",
		"empty_one":     " ",
		"not_allowed":   "x",
		"claims": map[string]any{
			"id_token": map[string]any{"acr": map[string]any{"value": "urn:acr:gold"}},
		},
	}

	req, err := validator.Validate(context.Background(), signHS256(t, claims), hmacClient())
	require.NoError(t, err)

	require.True(t, req.ResponseTypes.Equal(oauthmodel.ParseResponseTypes("id_token code")))
	require.Nil(t, req.RedirectURI)
	require.Empty(t, req.Scopes)
	require.Empty(t, req.Display)
	require.Empty(t, req.ResponseMode)
	require.Empty(t, req.Prompts)
	require.Equal(t, map[string]string{"customer_id": "cust-42"}, req.CustomParameters)

	require.NotNil(t, req.IDTokenMember)
	require.Nil(t, req.IDTokenMember.MaxAge)
	require.Equal(t, "urn:acr:gold", req.IDTokenMember.ACR)
}

func TestJWTValidator_Rejects(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong secret", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims()).SignedString([]byte("another-secret-entirely-0123456789"))
		require.NoError(t, err)
		_, err = requestobject.NewJWTValidator(requestobject.WithNowFunc(nowFunc)).Validate(ctx, raw, hmacClient())
		require.Error(t, err)
	})

	t.Run("client without secret", func(t *testing.T) {
		_, err := requestobject.NewJWTValidator(requestobject.WithNowFunc(nowFunc)).Validate(ctx, signHS256(t, baseClaims()), &clients.Client{ID: "C1"})
		require.ErrorIs(t, err, requestobject.ErrNoVerificationKey)
	})

	t.Run("alg none", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, baseClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = requestobject.NewJWTValidator(requestobject.WithNowFunc(nowFunc)).Validate(ctx, raw, hmacClient())
		require.ErrorIs(t, err, requestobject.ErrUnsupportedAlgorithm)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := requestobject.NewJWTValidator().Validate(ctx, "not-a-jwt", hmacClient())
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := baseClaims()
		claims["exp"] = testNow.Add(-time.Minute).Unix()
		_, err := requestobject.NewJWTValidator(requestobject.WithNowFunc(nowFunc)).Validate(ctx, signHS256(t, claims), hmacClient())
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("expired within leeway", func(t *testing.T) {
		claims := baseClaims()
		claims["exp"] = testNow.Add(-time.Minute).Unix()
		validator := requestobject.NewJWTValidator(requestobject.WithNowFunc(nowFunc), requestobject.WithLeeway(2*time.Minute))
		_, err := validator.Validate(ctx, signHS256(t, claims), hmacClient())
		require.NoError(t, err)
	})

	t.Run("issuer is another client", func(t *testing.T) {
		claims := baseClaims()
		claims["iss"] = "C2"
		_, err := requestobject.NewJWTValidator(requestobject.WithNowFunc(nowFunc)).Validate(ctx, signHS256(t, claims), hmacClient())
		require.ErrorIs(t, err, requestobject.ErrIssuerMismatch)
	})

	t.Run("audience", func(t *testing.T) {
		validator := requestobject.NewJWTValidator(requestobject.WithNowFunc(nowFunc), requestobject.WithAudience("https://as.example.com"))

		_, err := validator.Validate(ctx, signHS256(t, baseClaims()), hmacClient())
		require.Error(t, err)

		claims := baseClaims()
		claims["aud"] = "https://as.example.com"
		_, err = validator.Validate(ctx, signHS256(t, claims), hmacClient())
		require.NoError(t, err)
	})

	t.Run("no client", func(t *testing.T) {
		_, err := requestobject.NewJWTValidator().Validate(ctx, signHS256(t, baseClaims()), nil)
		require.Error(t, err)
	})
}

func TestJWTValidator_PublicKeyPEM(t *testing.T) {
	key := generateRSAKey(t)
	pemData, err := requestobject.EncodePublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)

	client := &clients.Client{ID: "C1", PublicKeyPEM: pemData}
	validator := requestobject.NewJWTValidator(requestobject.WithNowFunc(nowFunc))

	req, err := validator.Validate(context.Background(), signRS256(t, key, "", baseClaims()), client)
	require.NoError(t, err)
	require.Equal(t, "jwt-state", req.State)

	t.Run("signed by another key", func(t *testing.T) {
		other := generateRSAKey(t)
		_, err := validator.Validate(context.Background(), signRS256(t, other, "", baseClaims()), client)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := baseClaims()
		claims["exp"] = testNow.Add(-time.Hour).Unix()
		_, err := validator.Validate(context.Background(), signRS256(t, key, "", claims), client)
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("hmac is not accepted with a registered public key only", func(t *testing.T) {
		_, err := validator.Validate(context.Background(), signHS256(t, baseClaims()), client)
		require.ErrorIs(t, err, requestobject.ErrNoVerificationKey)
	})

	t.Run("client without keys", func(t *testing.T) {
		_, err := validator.Validate(context.Background(), signRS256(t, key, "", baseClaims()), &clients.Client{ID: "C1"})
		require.ErrorIs(t, err, requestobject.ErrNoVerificationKey)
	})
}

func TestJWTValidator_JWKSURI(t *testing.T) {
	key := generateRSAKey(t)
	var hits atomic.Int32
	jwks := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"use": "sig",
			"alg": "RS256",
			"kid": "k1",
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	defer srv.Close()

	client := &clients.Client{ID: "C1", JWKSURI: srv.URL}
	validator := requestobject.NewJWTValidator(requestobject.WithNowFunc(nowFunc), requestobject.WithHTTPClient(srv.Client()))

	for i := 0; i < 2; i++ {
		req, err := validator.Validate(context.Background(), signRS256(t, key, "k1", baseClaims()), client)
		require.NoError(t, err)
		require.Equal(t, "C1", req.ClientID)
	}
	require.Equal(t, int32(1), hits.Load())
}

func TestParsePublicKeyPEM(t *testing.T) {
	key := generateRSAKey(t)
	pemData, err := requestobject.EncodePublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)

	pub, err := requestobject.ParsePublicKeyPEM(pemData)
	require.NoError(t, err)
	require.True(t, key.PublicKey.Equal(pub))

	_, err = requestobject.ParsePublicKeyPEM("not pem")
	require.Error(t, err)
}
