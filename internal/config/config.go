// Package config handles daemon configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"quickpim/internal/db/crypto"
	"quickpim/internal/domain"
	"quickpim/internal/upstream"
)

// Defaults applied when the matching variable is unset.
const (
	DefaultListenAddr            = "127.0.0.1:8765"
	DefaultDBPath                = "quickpim.sqlite"
	DefaultUpstreamTimeout       = 30 * time.Second
	DefaultUpstreamRPS           = 10
	DefaultUpstreamBurst         = 20
	DefaultRoleDefinitionTTL     = time.Hour
	DefaultActivationConcurrency = 4
	DefaultRateLimitRPS          = 20
	DefaultRateLimitBurst        = 40
)

// DefaultCORSAllowedOrigins admits browser extension pages, which host the
// capture observer and the popup.
var DefaultCORSAllowedOrigins = []string{"chrome-extension://*", "moz-extension://*"}

// UpstreamConfig configures the Graph and ARM clients.
type UpstreamConfig struct {
	GraphBaseURL string
	ARMBaseURL   string
	Timeout      time.Duration
	// RequestsPerSecond is shared by all outbound calls; negative disables the limiter.
	RequestsPerSecond float64
	Burst             int
}

// Config holds the configuration of the PIM helper daemon.
type Config struct {
	ListenAddr    string // HTTP listen address
	DBPath        string // path to the SQLite state file
	TLSCertFile   string // TLS certificate file path (optional)
	TLSKeyFile    string // TLS private key file path (optional)
	EncryptionKey string // 64-char hex AES key for tokens at rest
	APIKey        string // shared secret for the local API (optional)
	LogLevel      string // debug, info, warn, error
	Env           string // "development" (default) or "production"

	Upstream UpstreamConfig

	TokenMaxAge           time.Duration
	RoleDefinitionTTL     time.Duration
	ActivationConcurrency int

	// Local API rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string

	// Warnings collects non-fatal problems found while loading. They are
	// logged by the caller once the logger exists.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the daemon is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// TLSEnabled reports whether both TLS files are configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// UpstreamOptions converts the upstream settings to client options.
func (c *Config) UpstreamOptions(logger *slog.Logger) upstream.Options {
	return upstream.Options{
		Timeout:           c.Upstream.Timeout,
		RequestsPerSecond: c.Upstream.RequestsPerSecond,
		Burst:             c.Upstream.Burst,
		Logger:            logger,
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		DBPath:        os.Getenv("DB_PATH"),
		TLSCertFile:   os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:    os.Getenv("TLS_KEY_FILE"),
		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),
		APIKey:        os.Getenv("API_KEY"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		Env:           os.Getenv("ENV"),
		Upstream: UpstreamConfig{
			GraphBaseURL: os.Getenv("GRAPH_BASE_URL"),
			ARMBaseURL:   os.Getenv("ARM_BASE_URL"),
		},
	}

	w := &cfg.Warnings
	cfg.Upstream.Timeout = durationEnv("UPSTREAM_TIMEOUT", DefaultUpstreamTimeout, w)
	cfg.Upstream.RequestsPerSecond = floatEnv("UPSTREAM_RPS", DefaultUpstreamRPS, w)
	cfg.Upstream.Burst = intEnv("UPSTREAM_BURST", DefaultUpstreamBurst, w)
	cfg.TokenMaxAge = durationEnv("TOKEN_MAX_AGE", domain.DefaultTokenMaxAge, w)
	cfg.RoleDefinitionTTL = durationEnv("ROLE_DEFINITION_TTL", DefaultRoleDefinitionTTL, w)
	cfg.ActivationConcurrency = intEnv("ACTIVATION_CONCURRENCY", DefaultActivationConcurrency, w)
	cfg.RateLimitRPS = floatEnv("RATE_LIMIT_RPS", DefaultRateLimitRPS, w)
	cfg.RateLimitBurst = intEnv("RATE_LIMIT_BURST", DefaultRateLimitBurst, w)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.Upstream.GraphBaseURL == "" {
		cfg.Upstream.GraphBaseURL = upstream.DefaultGraphBaseURL
	}
	if cfg.Upstream.ARMBaseURL == "" {
		cfg.Upstream.ARMBaseURL = upstream.DefaultARMBaseURL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = DefaultCORSAllowedOrigins
	}
	if cfg.ActivationConcurrency < 1 {
		*w = append(*w, fmt.Sprintf("ACTIVATION_CONCURRENCY=%d is below 1, using 1", cfg.ActivationConcurrency))
		cfg.ActivationConcurrency = 1
	}
	if cfg.TokenMaxAge <= 0 {
		return nil, fmt.Errorf("TOKEN_MAX_AGE must be positive")
	}

	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if cfg.EncryptionKey == "" {
		cfg.EncryptionKey = crypto.DevelopmentKey
		*w = append(*w, "ENCRYPTION_KEY not set, stored tokens use an insecure default key")
	} else if _, err := crypto.NewEncryptor(cfg.EncryptionKey); err != nil {
		return nil, fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
	}
	if !isLoopback(cfg.ListenAddr) && cfg.APIKey == "" {
		*w = append(*w, fmt.Sprintf("LISTEN_ADDR %s is not a loopback address and API_KEY is not set", cfg.ListenAddr))
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.EncryptionKey == crypto.DevelopmentKey {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be set in production (ENV=production)")
		}
		for _, o := range cfg.CORSAllowedOrigins {
			if o == "*" {
				return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
			}
		}
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration, warnings *[]string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s=%q is not a duration, using %s", key, v, def))
		return def
	}
	return d
}

func intEnv(key string, def int, warnings *[]string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s=%q is not an integer, using %d", key, v, def))
		return def
	}
	return n
}

func floatEnv(key string, def float64, warnings *[]string) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s=%q is not a number, using %g", key, v, def))
		return def
	}
	return f
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes matching surrounding double or single quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
