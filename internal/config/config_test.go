package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lemussistemas/salsa-hn-frontend/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("SALSA_API_URL", "")
	t.Setenv("SALSA_ENV", "")
	t.Setenv("SALSA_LOG_LEVEL", "")

	c := config.New()
	require.Equal(t, "http://127.0.0.1:8000/api", c.GetAPIURL())
	require.Equal(t, "Salsa Honduras", c.GetAppName())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "debug", c.GetLogLevel())
	require.Equal(t, time.Duration(0), c.GetHTTPTimeout())
	require.Equal(t, "salsa:", c.GetRedisPrefix())
	require.Empty(t, c.GetRedisURL())
	require.Equal(t, "tokens.json", filepath.Base(c.GetTokenFile()))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SALSA_API_URL", "https://api.salsa.hn/api/")
	t.Setenv("SALSA_ENV", "prod")
	t.Setenv("SALSA_HTTP_TIMEOUT", "15s")
	t.Setenv("SALSA_REDIS_URL", "redis://localhost:6379/0")

	c := config.New()
	require.Equal(t, "https://api.salsa.hn/api", c.GetAPIURL())
	require.Equal(t, "PROD", c.GetEnv())
	require.Equal(t, "info", c.GetLogLevel())
	require.Equal(t, 15*time.Second, c.GetHTTPTimeout())
	require.Equal(t, "redis://localhost:6379/0", c.GetRedisURL())
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("SALSA_TOKEN_FILE", "")
	os.Unsetenv("SALSA_TOKEN_FILE")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SALSA_TOKEN_FILE="+filepath.Join(dir, "t.json")+"\n"), 0o600))

	c, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "t.json"), c.GetTokenFile())

	t.Run("missing file is fine", func(t *testing.T) {
		_, err := config.Load(filepath.Join(dir, "nope.env"))
		require.NoError(t, err)
	})
}
