// Package config loads application configuration from environment
// variables, with the deployment profile deciding store selection and
// rate-limit strictness. Per-kind rate limits can additionally be
// overridden from a YAML file that is hot-reloaded on change.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/finvault/finvault/pkg/observability"
	"github.com/finvault/finvault/pkg/ratelimit"
	"github.com/finvault/finvault/pkg/storage"
)

// Deployment profiles. The profile is selected by environment, never by
// caller input: production uses the durable shared stores and strict
// limits, development uses process-local stores and generous limits.
const (
	ProfileDevelopment = "development"
	ProfileProduction  = "production"
)

// Config holds all application configuration
type Config struct {
	Profile string

	Server        ServerConfig
	Auth          AuthConfig
	Database      DatabaseConfig
	Redis         storage.RedisConfig
	RateLimit     *ratelimit.Config
	LimitsFile    string
	Audit         AuditConfig
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

	// Ops server (separate port for probes and metrics)
	OpsPort string
}

// AuthConfig holds credential verification settings
type AuthConfig struct {
	// JWTSecret signs and verifies locally issued tokens
	JWTSecret string
	// TokenTTL is the validity window of issued tokens
	TokenTTL time.Duration

	// OIDC delegation; when IssuerURL is set the OIDC verifier is used
	OIDCIssuerURL string
	OIDCClientID  string
}

// DatabaseConfig holds relational database settings
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Enabled  bool
	FilePath string

	// S3 archival of exported audit batches
	S3Enabled   bool
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	profile := getEnv("FINVAULT_PROFILE", ProfileDevelopment)

	cfg := &Config{
		Profile: profile,
		Server: ServerConfig{
			Host:            getEnv("FINVAULT_HOST", "0.0.0.0"),
			Port:            getEnv("FINVAULT_PORT", "8080"),
			ReadTimeout:     getEnvDuration("FINVAULT_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("FINVAULT_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("FINVAULT_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("FINVAULT_SHUTDOWN_TIMEOUT", 30*time.Second),
			OpsPort:         getEnv("FINVAULT_OPS_PORT", "9090"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("FINVAULT_JWT_SECRET", ""),
			TokenTTL:      getEnvDuration("FINVAULT_TOKEN_TTL", time.Hour),
			OIDCIssuerURL: getEnv("FINVAULT_OIDC_ISSUER_URL", ""),
			OIDCClientID:  getEnv("FINVAULT_OIDC_CLIENT_ID", ""),
		},
		Database:   loadDatabaseConfig(profile),
		Redis:      loadRedisConfig(),
		RateLimit:  loadRateLimitConfig(profile),
		LimitsFile: getEnv("FINVAULT_LIMITS_FILE", ""),
		Audit: AuditConfig{
			Enabled:     getEnvBool("FINVAULT_AUDIT_ENABLED", true),
			FilePath:    getEnv("FINVAULT_AUDIT_FILE", ""),
			S3Enabled:   getEnvBool("FINVAULT_AUDIT_S3_ENABLED", false),
			S3Bucket:    getEnv("FINVAULT_AUDIT_S3_BUCKET", ""),
			S3Region:    getEnv("FINVAULT_AUDIT_S3_REGION", "us-east-1"),
			S3Endpoint:  getEnv("FINVAULT_AUDIT_S3_ENDPOINT", ""),
			S3AccessKey: getEnv("FINVAULT_AUDIT_S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("FINVAULT_AUDIT_S3_SECRET_KEY", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("FINVAULT_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("FINVAULT_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("FINVAULT_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("FINVAULT_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("FINVAULT_OTEL_SERVICE_NAME", "finvault-api"),
			OTelServiceVersion: getEnv("FINVAULT_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("FINVAULT_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadDatabaseConfig(profile string) DatabaseConfig {
	driver := getEnv("FINVAULT_DB_DRIVER", "")
	dsn := getEnv("FINVAULT_DB_DSN", "")

	if driver == "" {
		if profile == ProfileProduction {
			driver = "postgres"
		} else {
			driver = "sqlite3"
			if dsn == "" {
				dsn = "file:finvault.db?cache=shared"
			}
		}
	}

	return DatabaseConfig{Driver: driver, DSN: dsn}
}

func loadRedisConfig() storage.RedisConfig {
	return storage.RedisConfig{
		URL:        getEnv("FINVAULT_REDIS_URL", "redis://localhost:6379"),
		Password:   getEnv("FINVAULT_REDIS_PASSWORD", ""),
		DB:         getEnvInt("FINVAULT_REDIS_DB", 0),
		MaxRetries: getEnvInt("FINVAULT_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("FINVAULT_REDIS_POOL_SIZE", 10),
	}
}

func loadRateLimitConfig(profile string) *ratelimit.Config {
	var cfg *ratelimit.Config
	if profile == ProfileProduction {
		cfg = ratelimit.ProductionConfig()
	} else {
		cfg = ratelimit.DevelopmentConfig()
	}

	if window := getEnvDuration("FINVAULT_RATELIMIT_WINDOW", 0); window > 0 {
		cfg.Window = window
	}
	if max := getEnvInt("FINVAULT_RATELIMIT_DEFAULT_MAX", 0); max > 0 {
		cfg.DefaultMax = max
	}

	return cfg
}

// UseRedisCounters reports whether the rate limiter should use the
// durable shared counter store
func (c *Config) UseRedisCounters() bool {
	return c.Profile == ProfileProduction
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Profile != ProfileDevelopment && c.Profile != ProfileProduction {
		return fmt.Errorf("invalid profile: %s (must be %s or %s)",
			c.Profile, ProfileDevelopment, ProfileProduction)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.OpsPort == "" {
		return fmt.Errorf("ops port is required")
	}
	if c.Server.Port == c.Server.OpsPort {
		return fmt.Errorf("server port and ops port must be different")
	}

	if c.Auth.OIDCIssuerURL == "" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("FINVAULT_JWT_SECRET is required without OIDC delegation")
	}
	if c.Auth.OIDCIssuerURL != "" && c.Auth.OIDCClientID == "" {
		return fmt.Errorf("FINVAULT_OIDC_CLIENT_ID is required when OIDC issuer is set")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for the postgres driver")
		}
	case "sqlite3":
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for the sqlite3 driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}

	if c.UseRedisCounters() && c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required for the production profile")
	}

	if c.Audit.S3Enabled && c.Audit.S3Bucket == "" {
		return fmt.Errorf("S3 bucket is required when audit S3 archival is enabled")
	}

	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}

	return nil
}

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

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
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
