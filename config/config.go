// Package config loads the service configuration from defaults, an optional
// YAML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized by Load.
const (
	EnvVerifierAuthorizations = "VERIFIER_AUTHORIZATIONS"
	EnvVerifierPresentations  = "VERIFIER_PRESENTATIONS"
	EnvVerifierReports        = "VERIFIER_REPORTS"
	EnvVerifierRequests       = "VERIFIER_REQUESTS"
	EnvVerifierTimeout        = "VERIFIER_TIMEOUT"
	EnvEnableCORS             = "ENABLE_CORS"
	EnvAddr                   = "REGPS_ADDR"
	EnvLogLevel               = "REGPS_LOG_LEVEL"
	EnvLogFormat              = "REGPS_LOG_FORMAT"
)

// Log output formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the complete service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	CORS     CORSConfig     `yaml:"cors"`
	Verifier VerifierConfig `yaml:"verifier"`
	Log      LogConfig      `yaml:"log"`
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
}

// CORSConfig configures cross-origin access for browser clients.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxAge         int      `yaml:"max_age"`
}

// VerifierConfig points at the external verifier service. Each URL is a
// prefix the identifier or SAID is appended to.
type VerifierConfig struct {
	AuthorizationsURL string        `yaml:"authorizations_url"`
	PresentationsURL  string        `yaml:"presentations_url"`
	ReportsURL        string        `yaml:"reports_url"`
	RequestsURL       string        `yaml:"requests_url"`
	Timeout           time.Duration `yaml:"timeout"`
	PollAttempts      int           `yaml:"poll_attempts"`
	PollInterval      time.Duration `yaml:"poll_interval"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              ":8000",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxUploadBytes:    32 << 20,
		},
		CORS: CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			MaxAge:         600,
		},
		Verifier: VerifierConfig{
			AuthorizationsURL: "http://127.0.0.1:7676/authorizations/",
			PresentationsURL:  "http://127.0.0.1:7676/presentations/",
			ReportsURL:        "http://127.0.0.1:7676/reports/",
			RequestsURL:       "http://localhost:7676/request/verify/",
			Timeout:           5 * time.Second,
			PollAttempts:      10,
			PollInterval:      time.Second,
		},
		Log: LogConfig{
			Level:  zerolog.InfoLevel.String(),
			Format: LogFormatJSON,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path when
// path is not empty, and the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{EnvVerifierAuthorizations, &c.Verifier.AuthorizationsURL},
		{EnvVerifierPresentations, &c.Verifier.PresentationsURL},
		{EnvVerifierReports, &c.Verifier.ReportsURL},
		{EnvVerifierRequests, &c.Verifier.RequestsURL},
		{EnvAddr, &c.HTTP.Addr},
		{EnvLogLevel, &c.Log.Level},
		{EnvLogFormat, &c.Log.Format},
	}

	for _, s := range strs {
		if v, ok := lookup(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	if v, ok := lookup(EnvVerifierTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, EnvVerifierTimeout, err)
		}

		c.Verifier.Timeout = d
	}

	if v, ok := lookup(EnvEnableCORS); ok && v != "" {
		c.CORS.Enabled = parseBool(v)
	}

	return nil
}

// parseBool accepts the strconv.ParseBool forms; anything else is false.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}

	return false
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%w: http.addr must not be empty", ErrInvalid)
	}

	if c.HTTP.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("%w: http.read_header_timeout must be positive", ErrInvalid)
	}

	if c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: http.shutdown_timeout must be positive", ErrInvalid)
	}

	if c.HTTP.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: http.max_upload_bytes must be positive", ErrInvalid)
	}

	if c.CORS.MaxAge < 0 {
		return fmt.Errorf("%w: cors.max_age must not be negative", ErrInvalid)
	}

	if c.CORS.Enabled && len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("%w: cors.allowed_origins must not be empty when cors is enabled", ErrInvalid)
	}

	for _, u := range []struct{ name, raw string }{
		{"verifier.authorizations_url", c.Verifier.AuthorizationsURL},
		{"verifier.presentations_url", c.Verifier.PresentationsURL},
		{"verifier.reports_url", c.Verifier.ReportsURL},
		{"verifier.requests_url", c.Verifier.RequestsURL},
	} {
		if err := validateURL(u.raw); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, u.name, err)
		}
	}

	if c.Verifier.Timeout <= 0 {
		return fmt.Errorf("%w: verifier.timeout must be positive", ErrInvalid)
	}

	if c.Verifier.PollAttempts < 0 {
		return fmt.Errorf("%w: verifier.poll_attempts must not be negative", ErrInvalid)
	}

	if c.Verifier.PollAttempts > 0 && c.Verifier.PollInterval <= 0 {
		return fmt.Errorf("%w: verifier.poll_interval must be positive", ErrInvalid)
	}

	if c.Log.Level == "" {
		return fmt.Errorf("%w: log.level must not be empty", ErrInvalid)
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}

	switch c.Log.Format {
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("%w: log.format must be %q or %q", ErrInvalid, LogFormatJSON, LogFormatConsole)
	}

	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("must not be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("missing host")
	}

	return nil
}
