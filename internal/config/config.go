// Package config provides configuration loading and validation for the
// collector service. It uses koanf to merge environment variables with
// optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the collector service.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// DevMode runs the service against an in-memory store with simulated
	// signal sources. No database is required in this mode.
	DevMode bool `koanf:"dev_mode"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (optional; enables the shared dedup gate when set)
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// Collection scheduling
	CollectionInterval time.Duration `koanf:"collection_interval"`
	PacingDelay        time.Duration `koanf:"pacing_delay"`
	RetryDelay         time.Duration `koanf:"retry_delay"`
	MaxRetries         int           `koanf:"max_retries"`
	FetchTimeout       time.Duration `koanf:"fetch_timeout"`
	CooldownWindow     time.Duration `koanf:"cooldown_window"`

	// Scoring calibration file (optional JSON overrides)
	CalibrationFile string `koanf:"calibration_file"`

	// CORS origin allowlist for browser dashboards. Empty disables CORS.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Tracing
	TracingEnabled  bool    `koanf:"tracing_enabled"`
	OTLPEndpoint    string  `koanf:"otlp_endpoint"`
	OTLPProtocol    string  `koanf:"otlp_protocol"` // "http" or "grpc"
	TraceSampleRate float64 `koanf:"trace_sample_rate"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL  = errors.New("DATABASE_URL is required outside dev mode")
	ErrInvalidPort         = errors.New("PORT must be a valid integer")
	ErrInvalidInterval     = errors.New("COLLECTION_INTERVAL must be positive")
	ErrInvalidMaxRetries   = errors.New("MAX_RETRIES must not be negative")
	ErrInvalidSampleRate   = errors.New("TRACE_SAMPLE_RATE must be in [0, 1]")
	ErrInvalidOTLPProtocol = errors.New(`OTLP_PROTOCOL must be "http" or "grpc"`)
)

// Default values for non-secret configuration.
const (
	DefaultPort               = 8080
	DefaultEnv                = "development"
	DefaultCollectionInterval = 30 * time.Minute
	DefaultPacingDelay        = 2 * time.Second
	DefaultRetryDelay         = 5 * time.Second
	DefaultMaxRetries         = 3
	DefaultFetchTimeout       = 15 * time.Second
	DefaultCooldownWindow     = 5 * time.Minute
	DefaultOTLPProtocol       = "http"
	DefaultTraceSampleRate    = 1.0
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Parse port from env, collecting error if invalid
	// Try PULSE_PORT first, then PORT for container platform compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"PULSE_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	redisDB, redisDBErr := getEnvIntOrDefault("REDIS_DB", k.Int("redis_db"), 0)
	if redisDBErr != nil {
		loadErrs = append(loadErrs, redisDBErr)
	}

	maxRetries, retriesErr := getEnvIntOrDefault("MAX_RETRIES", k.Int("max_retries"), DefaultMaxRetries)
	if retriesErr != nil {
		loadErrs = append(loadErrs, retriesErr)
	}

	interval, intervalErr := getEnvDurationOrDefault("COLLECTION_INTERVAL", k.String("collection_interval"), DefaultCollectionInterval)
	if intervalErr != nil {
		loadErrs = append(loadErrs, intervalErr)
	}
	pacing, pacingErr := getEnvDurationOrDefault("PACING_DELAY", k.String("pacing_delay"), DefaultPacingDelay)
	if pacingErr != nil {
		loadErrs = append(loadErrs, pacingErr)
	}
	retryDelay, retryErr := getEnvDurationOrDefault("RETRY_DELAY", k.String("retry_delay"), DefaultRetryDelay)
	if retryErr != nil {
		loadErrs = append(loadErrs, retryErr)
	}
	fetchTimeout, fetchErr := getEnvDurationOrDefault("FETCH_TIMEOUT", k.String("fetch_timeout"), DefaultFetchTimeout)
	if fetchErr != nil {
		loadErrs = append(loadErrs, fetchErr)
	}
	cooldown, cooldownErr := getEnvDurationOrDefault("COOLDOWN_WINDOW", k.String("cooldown_window"), DefaultCooldownWindow)
	if cooldownErr != nil {
		loadErrs = append(loadErrs, cooldownErr)
	}

	sampleRate, sampleErr := getEnvFloatOrDefault("TRACE_SAMPLE_RATE", k.Float64("trace_sample_rate"), DefaultTraceSampleRate)
	if sampleErr != nil {
		loadErrs = append(loadErrs, sampleErr)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:               port,
		Env:                getEnvOrDefaultMulti([]string{"PULSE_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DevMode:            getEnvBoolOrKoanf("PULSE_DEV", k, "dev_mode", false),
		DatabaseURL:        getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisAddr:          getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		RedisPassword:      getEnvOrKoanf("REDIS_PASSWORD", k, "redis_password"),
		RedisDB:            redisDB,
		CollectionInterval: interval,
		PacingDelay:        pacing,
		RetryDelay:         retryDelay,
		MaxRetries:         maxRetries,
		FetchTimeout:       fetchTimeout,
		CooldownWindow:     cooldown,
		CalibrationFile:    getEnvOrKoanf("CALIBRATION_FILE", k, "calibration_file"),
		CORSAllowedOrigins: getEnvListOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		TracingEnabled:     getEnvBoolOrKoanf("TRACING_ENABLED", k, "tracing_enabled", false),
		OTLPEndpoint:       getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		OTLPProtocol:       getEnvOrDefault("OTLP_PROTOCOL", k.String("otlp_protocol"), DefaultOTLPProtocol),
		TraceSampleRate:    sampleRate,
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvListOrKoanf returns the environment variable split on commas if set,
// otherwise the koanf string slice.
func getEnvListOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) []string {
	if val := os.Getenv(envKey); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return k.Strings(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvBoolOrKoanf returns the environment variable parsed as a boolean if
// set, otherwise the koanf value, or default. Unrecognized env values fall
// through to the file/default.
func getEnvBoolOrKoanf(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	result := defaultVal
	if k.Exists(koanfKey) {
		result = k.Bool(koanfKey)
	}
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			result = true
		case "false", "0", "no", "off":
			result = false
		}
	}
	return result
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault returns the environment variable parsed as a
// duration if set, otherwise the koanf value, or default. Durations use Go
// syntax ("30m", "2s").
func getEnvDurationOrDefault(envKey string, koanfVal string, defaultVal time.Duration) (time.Duration, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		raw = koanfVal
	}
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", envKey, err)
	}
	return d, nil
}

// Validate checks that all required configuration values are present and
// that scheduling knobs are sane.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" && !c.DevMode {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.CollectionInterval <= 0 {
		errs = append(errs, ErrInvalidInterval)
	}
	if c.MaxRetries < 0 {
		errs = append(errs, ErrInvalidMaxRetries)
	}
	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		errs = append(errs, ErrInvalidSampleRate)
	}
	if c.OTLPProtocol != "http" && c.OTLPProtocol != "grpc" {
		errs = append(errs, ErrInvalidOTLPProtocol)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                fmt.Sprintf("%d", c.Port),
		"env":                 c.Env,
		"dev_mode":            fmt.Sprintf("%t", c.DevMode),
		"database_url":        maskDatabaseURL(c.DatabaseURL),
		"redis_addr":          valueOrNotSet(c.RedisAddr),
		"redis_password":      maskSecret(c.RedisPassword),
		"redis_db":            fmt.Sprintf("%d", c.RedisDB),
		"collection_interval": c.CollectionInterval.String(),
		"pacing_delay":        c.PacingDelay.String(),
		"retry_delay":         c.RetryDelay.String(),
		"max_retries":         fmt.Sprintf("%d", c.MaxRetries),
		"fetch_timeout":       c.FetchTimeout.String(),
		"cooldown_window":     c.CooldownWindow.String(),
		"calibration_file":    valueOrNotSet(c.CalibrationFile),
		"cors_origins":        valueOrNotSet(strings.Join(c.CORSAllowedOrigins, ",")),
		"tracing_enabled":     fmt.Sprintf("%t", c.TracingEnabled),
		"otlp_endpoint":       valueOrNotSet(c.OTLPEndpoint),
		"otlp_protocol":       c.OTLPProtocol,
		"trace_sample_rate":   fmt.Sprintf("%g", c.TraceSampleRate),
	}
}

func valueOrNotSet(s string) string {
	if s == "" {
		return "<not set>"
	}
	return s
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	// Simple approach: find :// and then mask between : and @
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
