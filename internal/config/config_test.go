package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSONConfig(t *testing.T, content string) string {
	t.Helper()

	fileName := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(fileName, []byte(content), 0644))

	return fileName
}

func TestNewDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.RunAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DBFileName)
	assert.Empty(t, cfg.DatabaseDSN)
	assert.Equal(t, 10*time.Second, cfg.DBConnectionTimeout)
	assert.Equal(t, "access_token", cfg.AuthCookieName)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Empty(t, cfg.TrustedSubnet)
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", "localhost:9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FILE_STORAGE_PATH", filepath.Join(t.TempDir(), "db.json"))
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("TRUSTED_SUBNET", "10.0.0.0/8")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "localhost:9090", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedSubnet)
}

func TestNewFromJSONFile(t *testing.T) {
	fileName := writeTempJSONConfig(t, `{
	"server_address": "localhost:7070",
	"log_level": "warning",
	"db_connection_timeout": "3s",
	"token_ttl": "1h",
	"auth_cookie_name": "session"
}`)
	t.Setenv("CONFIG", fileName)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "localhost:7070", cfg.RunAddr)
	assert.Equal(t, "warning", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.DBConnectionTimeout)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "session", cfg.AuthCookieName)
}

func TestEnvOverridesJSONFile(t *testing.T) {
	fileName := writeTempJSONConfig(t, `{"server_address": "localhost:7070"}`)
	t.Setenv("CONFIG", fileName)
	t.Setenv("SERVER_ADDRESS", "localhost:9090")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "localhost:9090", cfg.RunAddr)
}

func TestNewValidation(t *testing.T) {
	testCases := []struct {
		name     string
		envName  string
		envValue string
	}{
		{
			name:     "invalid server address",
			envName:  "SERVER_ADDRESS",
			envValue: "not-a-host-port",
		},
		{
			name:     "invalid log level",
			envName:  "LOG_LEVEL",
			envValue: "verbose",
		},
		{
			name:     "invalid trusted subnet",
			envName:  "TRUSTED_SUBNET",
			envValue: "300.0.0.0/8",
		},
		{
			name:     "signing key is not base64url",
			envName:  "TOKEN_SIGNING_SECRET_KEY",
			envValue: "###",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Setenv(testCase.envName, testCase.envValue)

			_, err := New(WithDisableFlagsParsing(true))
			assert.Error(t, err)
		})
	}
}

func TestBadJSONConfigFile(t *testing.T) {
	fileName := writeTempJSONConfig(t, `{"token_ttl": "not a duration"}`)
	t.Setenv("CONFIG", fileName)

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}
