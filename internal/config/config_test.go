package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-authz-core/internal/config"
)

func TestNewFromMap_Defaults(t *testing.T) {
	c, err := config.NewFromMap(map[string]string{})
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "http://localhost:8080", c.GetBaseURL())
	require.Empty(t, c.GetAllowedOrigins())

	require.Equal(t, 60*time.Second, c.GetPARLifetime())
	require.False(t, c.GetPARRequired())
	require.Equal(t, 30*time.Second, c.GetRequestObjectLeeway())
	require.Equal(t, 10*time.Minute, c.GetAuthCodeLifetime())
	require.Equal(t, time.Hour, c.GetAccessTokenLifetime())

	require.False(t, c.GetFAPICompatibility())
	require.Equal(t, 10.0, c.GetPARRateLimit())
	require.Equal(t, 20, c.GetPARRateBurst())
	require.Empty(t, c.GetTrustedSubjectHeader())

	require.True(t, c.GetCleanerEnabled())
	require.Equal(t, 5*time.Minute, c.GetCleanerInterval())
	require.Equal(t, 100, c.GetCleanerBatchSize())
	require.Equal(t, uint(3), c.GetCleanerDeleteRetries())

	require.Empty(t, c.GetRedisAddr())
	require.Equal(t, "authz:", c.GetRedisKeyPrefix())
	require.Equal(t, 1024, c.GetClientCacheSize())
}

func TestNewFromMap_Overrides(t *testing.T) {
	c, err := config.NewFromMap(map[string]string{
		"PORT":                      ":9000",
		"BASE_URL":                  "https://auth.example.com/",
		"ALLOWED_ORIGINS":           "https://a.example.com, https://b.example.com",
		"PAR_LIFETIME":              "90s",
		"PAR_REQUIRED":              "true",
		"CUSTOM_ALLOWED_PARAMETERS": "tenant,locale",
		"FAPI_COMPATIBILITY":        "true",
		"TRUSTED_SUBJECT_HEADER":    "X-Forwarded-User",
		"CLEANER_INTERVAL":          "30s",
		"REDIS_ADDR":                "localhost:6379",
		"REDIS_DB":                  "2",
	})
	require.NoError(t, err)

	require.Equal(t, ":9000", c.GetPort())
	require.Equal(t, "https://auth.example.com", c.GetBaseURL())
	origins := c.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://a.example.com"))
	require.True(t, origins.IsAllowedOrigin("https://b.example.com"))
	require.Equal(t, "https://a.example.com, https://b.example.com", origins.String())

	require.Equal(t, 90*time.Second, c.GetPARLifetime())
	require.True(t, c.GetPARRequired())
	require.Equal(t, []string{"tenant", "locale"}, c.GetCustomAllowedParameters())
	require.True(t, c.GetFAPICompatibility())
	require.Equal(t, "X-Forwarded-User", c.GetTrustedSubjectHeader())
	require.Equal(t, 30*time.Second, c.GetCleanerInterval())
	require.Equal(t, "localhost:6379", c.GetRedisAddr())
	require.Equal(t, 2, c.GetRedisDB())
}

func TestNewFromMap_Invalid(t *testing.T) {
	_, err := config.NewFromMap(map[string]string{"PAR_LIFETIME": "soon"})
	require.Error(t, err)
}
