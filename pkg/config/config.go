// Package config loads Sorcha's runtime configuration from environment
// variables, following the same getEnv/getEnvInt/getEnvBool helper shape and
// post-load Validate() pass used throughout this codebase.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Sorcha validator service.
type Config struct {
	// Server Configuration
	ListenAddr  string
	MetricsAddr string
	HealthAddr  string

	// Database Configuration
	DatabaseURL                string
	DatabaseMaxConns           int
	DatabaseMinConns           int
	DatabaseMaxIdleTimeSeconds int
	DatabaseMaxLifetimeSeconds int
	DatabaseRequired           bool

	// Validator Identity
	ValidatorID string
	LogLevel    string

	// System Wallet Configuration — the key the registration orchestrator
	// uses to sign/verify RegisterAttestation hashes at Initiate/Finalize.
	SystemWalletPath string
	SystemWalletAlgo string

	// Docket Sealing
	DocketInterval time.Duration
	MempoolMaxSize int

	// Registration
	PendingRegistrationTTL time.Duration

	// Bootstrap
	BootstrapFile string

	// Security
	JWTSecret   string
	CORSOrigins []string
	TLSEnabled  bool

	// Rate Limiting
	RateLimitRequests int
	RateLimitWindow   int
}

// Load reads configuration from environment variables. Required variables
// have no defaults and must be set explicitly; call Validate() after Load()
// to confirm all required configuration is present.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:  getEnv("SORCHA_LISTEN_ADDR", "0.0.0.0:8080"),
		MetricsAddr: getEnv("SORCHA_METRICS_ADDR", "0.0.0.0:9090"),
		HealthAddr:  getEnv("SORCHA_HEALTH_ADDR", "0.0.0.0:8081"),

		DatabaseURL:                getEnv("SORCHA_DATABASE_URL", ""),
		DatabaseMaxConns:           getEnvInt("SORCHA_DATABASE_MAX_CONNS", 25),
		DatabaseMinConns:           getEnvInt("SORCHA_DATABASE_MIN_CONNS", 5),
		DatabaseMaxIdleTimeSeconds: getEnvInt("SORCHA_DATABASE_MAX_IDLE_SECONDS", 300),
		DatabaseMaxLifetimeSeconds: getEnvInt("SORCHA_DATABASE_MAX_LIFETIME_SECONDS", 3600),
		DatabaseRequired:           getEnvBool("SORCHA_DATABASE_REQUIRED", false),

		ValidatorID: getEnv("SORCHA_VALIDATOR_ID", "validator-default"),
		LogLevel:    getEnv("SORCHA_LOG_LEVEL", "info"),

		SystemWalletPath: getEnv("SORCHA_SYSTEM_WALLET_PATH", ""),
		SystemWalletAlgo: getEnv("SORCHA_SYSTEM_WALLET_ALGO", "ED25519"),

		DocketInterval: getEnvDuration("SORCHA_DOCKET_INTERVAL", 2*time.Second),
		MempoolMaxSize: getEnvInt("SORCHA_MEMPOOL_MAX_SIZE", 10000),

		PendingRegistrationTTL: getEnvDuration("SORCHA_PENDING_REGISTRATION_TTL", 5*time.Minute),

		BootstrapFile: getEnv("SORCHA_BOOTSTRAP_FILE", ""),

		JWTSecret:   getEnv("SORCHA_JWT_SECRET", ""),
		CORSOrigins: strings.Split(getEnv("SORCHA_CORS_ORIGINS", "http://localhost:3000"), ","),
		TLSEnabled:  getEnvBool("SORCHA_TLS_ENABLED", true),

		RateLimitRequests: getEnvInt("SORCHA_RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvInt("SORCHA_RATE_LIMIT_WINDOW", 60),
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and secure.
// Call this after Load() before starting the service.
func (c *Config) Validate() error {
	var errs []string

	if c.DatabaseURL == "" && c.DatabaseRequired {
		errs = append(errs, "SORCHA_DATABASE_URL is required but not set")
	}
	if c.SystemWalletPath == "" {
		errs = append(errs, "SORCHA_SYSTEM_WALLET_PATH is required but not set")
	}
	if c.ValidatorID == "" {
		errs = append(errs, "SORCHA_VALIDATOR_ID must not be empty")
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errs = append(errs, "SORCHA_JWT_SECRET must be at least 32 characters for security")
	}

	switch c.SystemWalletAlgo {
	case "ED25519", "NISTP256", "RSA4096":
	default:
		errs = append(errs, fmt.Sprintf("SORCHA_SYSTEM_WALLET_ALGO %q is not a supported algorithm", c.SystemWalletAlgo))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
