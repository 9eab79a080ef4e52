package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/storage"
)

// Environment names recognised by WARDEN_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all application configuration
type Config struct {
	// Environment selects the runtime mode (development or production)
	Environment string

	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Token configuration
	Token TokenConfig

	// Google federated login configuration
	Google GoogleConfig

	// Mail configuration
	Mail MailConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// CORS origin of the frontend; also the base of password reset links
	Origin string
}

// TokenConfig holds access and refresh token settings
type TokenConfig struct {
	Audience    string
	Issuer      string
	SecurityKey string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
}

// GoogleConfig holds Google federated-login settings
type GoogleConfig struct {
	ClientID  string
	IssuerURL string
}

// MailConfig holds SMTP settings for outbound mail
type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	DisplayName string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	// Cron spec for the expired refresh token purge job
	RefreshPurgeSchedule string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment:   strings.ToLower(getEnv("WARDEN_ENV", EnvDevelopment)),
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Token:         loadTokenConfig(),
		Google:        loadGoogleConfig(),
		Mail:          loadMailConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("WARDEN_HOST", "0.0.0.0"),
		Port:            getEnv("WARDEN_PORT", "8080"),
		ReadTimeout:     getEnvDuration("WARDEN_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("WARDEN_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("WARDEN_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("WARDEN_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("WARDEN_HEALTH_PORT", "9090"),
		Origin:          getEnv("WARDEN_ORIGIN", "http://localhost:4200"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if pgURL := getEnv("WARDEN_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("WARDEN_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("WARDEN_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("WARDEN_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}
	if lifetime := getEnvDuration("WARDEN_POSTGRES_MAX_LIFETIME", 0); lifetime > 0 {
		cfg.MaxLifetime = lifetime
	}

	return cfg
}

// loadTokenConfig loads token options from environment. Access and refresh
// lifetimes are expressed in minutes to match operational convention.
func loadTokenConfig() TokenConfig {
	return TokenConfig{
		Audience:    getEnv("WARDEN_TOKEN_AUDIENCE", "warden-clients"),
		Issuer:      getEnv("WARDEN_TOKEN_ISSUER", "warden"),
		SecurityKey: getEnv("WARDEN_TOKEN_SECURITY_KEY", ""),
		AccessTTL:   time.Duration(getEnvInt("WARDEN_TOKEN_ACCESS_MINUTES", 10)) * time.Minute,
		RefreshTTL:  time.Duration(getEnvInt("WARDEN_TOKEN_REFRESH_MINUTES", 60)) * time.Minute,
	}
}

// loadGoogleConfig loads Google federated login configuration from environment
func loadGoogleConfig() GoogleConfig {
	return GoogleConfig{
		ClientID:  getEnv("WARDEN_GOOGLE_CLIENT_ID", ""),
		IssuerURL: getEnv("WARDEN_GOOGLE_ISSUER_URL", "https://accounts.google.com"),
	}
}

// loadMailConfig loads SMTP configuration from environment
func loadMailConfig() MailConfig {
	return MailConfig{
		Host:        getEnv("WARDEN_MAIL_HOST", ""),
		Port:        getEnvInt("WARDEN_MAIL_PORT", 587),
		Username:    getEnv("WARDEN_MAIL_USERNAME", ""),
		Password:    getEnv("WARDEN_MAIL_PASSWORD", ""),
		DisplayName: getEnv("WARDEN_MAIL_DISPLAY_NAME", "Warden"),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	defaultLevel := "info"
	if strings.ToLower(getEnv("WARDEN_ENV", EnvDevelopment)) == EnvDevelopment {
		defaultLevel = "debug"
	}
	return ObservabilityConfig{
		LogLevel:             parseLogLevel(getEnv("WARDEN_LOG_LEVEL", defaultLevel)),
		MetricsEnabled:       getEnvBool("WARDEN_METRICS_ENABLED", true),
		RefreshPurgeSchedule: getEnv("WARDEN_REFRESH_PURGE_SCHEDULE", "@hourly"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("invalid environment: %s (must be development or production)", c.Environment)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Token.SecurityKey == "" {
		return fmt.Errorf("token security key is required")
	}
	if c.Environment == EnvProduction && len(c.Token.SecurityKey) < 32 {
		return fmt.Errorf("token security key must be at least 32 bytes in production")
	}
	if c.Token.Issuer == "" || c.Token.Audience == "" {
		return fmt.Errorf("token issuer and audience are required")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
