package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickpim/internal/db/crypto"
)

const testKey = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

var configVars = []string{
	"LISTEN_ADDR", "DB_PATH", "TLS_CERT_FILE", "TLS_KEY_FILE", "ENCRYPTION_KEY", "API_KEY",
	"LOG_LEVEL", "ENV", "GRAPH_BASE_URL", "ARM_BASE_URL", "UPSTREAM_TIMEOUT", "UPSTREAM_RPS",
	"UPSTREAM_BURST", "TOKEN_MAX_AGE", "ROLE_DEFINITION_TTL", "ACTIVATION_CONCURRENCY",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configVars {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, "https://graph.microsoft.com", cfg.Upstream.GraphBaseURL)
	assert.Equal(t, "https://management.azure.com", cfg.Upstream.ARMBaseURL)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.InDelta(t, 10.0, cfg.Upstream.RequestsPerSecond, 0.001)
	assert.Equal(t, 20, cfg.Upstream.Burst)
	assert.Equal(t, 45*time.Minute, cfg.TokenMaxAge)
	assert.Equal(t, time.Hour, cfg.RoleDefinitionTTL)
	assert.Equal(t, 4, cfg.ActivationConcurrency)
	assert.Equal(t, DefaultCORSAllowedOrigins, cfg.CORSAllowedOrigins)
	assert.Equal(t, crypto.DevelopmentKey, cfg.EncryptionKey)
	assert.False(t, cfg.TLSEnabled())
	assert.False(t, cfg.IsProduction())
	assert.Len(t, cfg.Warnings, 1, "only the encryption key warning")
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("DB_PATH", "/tmp/pim.sqlite")
	t.Setenv("GRAPH_BASE_URL", "http://localhost:1")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("UPSTREAM_RPS", "-1")
	t.Setenv("TOKEN_MAX_AGE", "30m")
	t.Setenv("ACTIVATION_CONCURRENCY", "8")
	t.Setenv("CORS_ALLOWED_ORIGINS", "chrome-extension://abc, ,http://localhost:3000")
	t.Setenv("ENCRYPTION_KEY", testKey)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, "/tmp/pim.sqlite", cfg.DBPath)
	assert.Equal(t, "http://localhost:1", cfg.Upstream.GraphBaseURL)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.InDelta(t, -1.0, cfg.Upstream.RequestsPerSecond, 0.001)
	assert.Equal(t, 30*time.Minute, cfg.TokenMaxAge)
	assert.Equal(t, 8, cfg.ActivationConcurrency)
	assert.Equal(t, []string{"chrome-extension://abc", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.Warnings)

	opts := cfg.UpstreamOptions(nil)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.InDelta(t, -1.0, opts.RequestsPerSecond, 0.001)
}

func TestLoadFromEnv_UnparsableValuesWarn(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENCRYPTION_KEY", testKey)
	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	t.Setenv("UPSTREAM_BURST", "many")
	t.Setenv("RATE_LIMIT_RPS", "fast")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultUpstreamTimeout, cfg.Upstream.Timeout)
	assert.Equal(t, DefaultUpstreamBurst, cfg.Upstream.Burst)
	assert.InDelta(t, float64(DefaultRateLimitRPS), cfg.RateLimitRPS, 0.001)
	assert.Len(t, cfg.Warnings, 3)
}

func TestLoadFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "TLS cert without key",
			env:     map[string]string{"TLS_CERT_FILE": "/tmp/cert.pem"},
			wantErr: "both TLS_CERT_FILE and TLS_KEY_FILE",
		},
		{
			name:    "malformed encryption key",
			env:     map[string]string{"ENCRYPTION_KEY": "abcd"},
			wantErr: "invalid ENCRYPTION_KEY",
		},
		{
			name:    "non-positive token age",
			env:     map[string]string{"TOKEN_MAX_AGE": "0s"},
			wantErr: "TOKEN_MAX_AGE",
		},
		{
			name:    "production without encryption key",
			env:     map[string]string{"ENV": "production"},
			wantErr: "ENCRYPTION_KEY must be set in production",
		},
		{
			name:    "production with CORS wildcard",
			env:     map[string]string{"ENV": "production", "ENCRYPTION_KEY": testKey, "CORS_ALLOWED_ORIGINS": "*"},
			wantErr: "CORS wildcard",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromEnv_ProductionWithKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "Production")
	t.Setenv("ENCRYPTION_KEY", testKey)
	t.Setenv("TLS_CERT_FILE", "/tmp/cert.pem")
	t.Setenv("TLS_KEY_FILE", "/tmp/key.pem")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.TLSEnabled())
}

func TestLoadFromEnv_NonLoopbackWithoutAPIKeyWarns(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENCRYPTION_KEY", testKey)
	t.Setenv("LISTEN_ADDR", "0.0.0.0:8765")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "API_KEY")

	t.Setenv("API_KEY", "k")
	cfg, err = LoadFromEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.Warnings)
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]string{"debug": "DEBUG", "WARN": "WARN", "warning": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"} {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel().String(), "level %q", in)
	}
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("127.0.0.1:8765"))
	assert.True(t, isLoopback("[::1]:8765"))
	assert.True(t, isLoopback("localhost:8765"))
	assert.False(t, isLoopback(":8765"))
	assert.False(t, isLoopback("192.168.1.10:8765"))
}

func writeDotEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func unsetAfter(t *testing.T, keys ...string) {
	t.Helper()
	t.Cleanup(func() {
		for _, k := range keys {
			_ = os.Unsetenv(k)
		}
	})
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadDotEnv_Parses(t *testing.T) {
	unsetAfter(t, "QP_TEST_PLAIN", "QP_TEST_QUOTED", "QP_TEST_SINGLE", "QP_TEST_EXPORT")
	path := writeDotEnv(t, "# comment\n\nQP_TEST_PLAIN=value\nQP_TEST_QUOTED=\"with spaces\"\nQP_TEST_SINGLE='x'\nexport QP_TEST_EXPORT=1\nnot a pair\n")

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "value", os.Getenv("QP_TEST_PLAIN"))
	assert.Equal(t, "with spaces", os.Getenv("QP_TEST_QUOTED"))
	assert.Equal(t, "x", os.Getenv("QP_TEST_SINGLE"))
	assert.Equal(t, "1", os.Getenv("QP_TEST_EXPORT"))
}

func TestLoadDotEnv_EnvironmentWins(t *testing.T) {
	t.Setenv("QP_TEST_PRECEDENCE", "from_env")
	path := writeDotEnv(t, "QP_TEST_PRECEDENCE=from_file\n")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from_env", os.Getenv("QP_TEST_PRECEDENCE"))
}
