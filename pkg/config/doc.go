// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings. WARDEN_ENV selects development or
// production defaults; production tightens validation.
//
// # Configuration Structure
//
// Server settings:
//
//	WARDEN_HOST="0.0.0.0"
//	WARDEN_PORT="8080"
//	WARDEN_HEALTH_PORT="9090"
//	WARDEN_READ_TIMEOUT="15s"
//	WARDEN_WRITE_TIMEOUT="15s"
//	WARDEN_ORIGIN="http://localhost:4200"
//
// Storage settings:
//
//	WARDEN_POSTGRES_URL="postgres://localhost/warden"
//	WARDEN_POSTGRES_MAX_CONNS="25"
//
// Token settings:
//
//	WARDEN_TOKEN_AUDIENCE="warden-clients"
//	WARDEN_TOKEN_ISSUER="warden"
//	WARDEN_TOKEN_SECURITY_KEY="<hmac key, 32+ bytes in production>"
//	WARDEN_TOKEN_ACCESS_MINUTES="10"
//	WARDEN_TOKEN_REFRESH_MINUTES="60"
//
// Federated login and mail:
//
//	WARDEN_GOOGLE_CLIENT_ID="<oauth client id>"
//	WARDEN_MAIL_HOST="smtp.example.com"
//	WARDEN_MAIL_PORT="587"
//
// Observability settings:
//
//	WARDEN_LOG_LEVEL="info"  # debug, info, warn, error
//	WARDEN_METRICS_ENABLED="true"
//	WARDEN_REFRESH_PURGE_SCHEDULE="@hourly"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/storage: Uses storage configuration
//   - pkg/observability: Uses observability configuration
package config
