package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finvault/finvault/pkg/observability"
	"github.com/finvault/finvault/pkg/ratelimit"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FINVAULT_JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProfileDevelopment, cfg.Profile)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.OpsPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Database.DSN)
	assert.False(t, cfg.UseRedisCounters())
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)

	// Development limits are generous
	assert.Equal(t, 1000, cfg.RateLimit.MaxFor("login"))
}

func TestLoadProduction(t *testing.T) {
	t.Setenv("FINVAULT_PROFILE", ProfileProduction)
	t.Setenv("FINVAULT_JWT_SECRET", "test-secret")
	t.Setenv("FINVAULT_DB_DRIVER", "postgres")
	t.Setenv("FINVAULT_DB_DSN", "postgres://localhost/finvault?sslmode=disable")
	t.Setenv("FINVAULT_REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.UseRedisCounters())
	assert.Equal(t, 100, cfg.RateLimit.MaxFor("login"))
	assert.Equal(t, 20, cfg.RateLimit.MaxFor("signup"))
	assert.Equal(t, 300, cfg.RateLimit.MaxFor("unknown"))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FINVAULT_JWT_SECRET", "test-secret")
	t.Setenv("FINVAULT_PORT", "8888")
	t.Setenv("FINVAULT_READ_TIMEOUT", "30s")
	t.Setenv("FINVAULT_RATELIMIT_WINDOW", "2m")
	t.Setenv("FINVAULT_RATELIMIT_DEFAULT_MAX", "42")
	t.Setenv("FINVAULT_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 42, cfg.RateLimit.MaxFor("unknown"))
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Profile: ProfileDevelopment,
			Server: ServerConfig{
				Port:    "8080",
				OpsPort: "9090",
			},
			Auth: AuthConfig{JWTSecret: "secret"},
			Database: DatabaseConfig{
				Driver: "sqlite3",
				DSN:    "file:test.db",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid development",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid profile",
			mutate:  func(c *Config) { c.Profile = "staging" },
			wantErr: "invalid profile",
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
		{
			name: "port collision",
			mutate: func(c *Config) {
				c.Server.OpsPort = c.Server.Port
			},
			wantErr: "must be different",
		},
		{
			name: "missing jwt secret",
			mutate: func(c *Config) {
				c.Auth.JWTSecret = ""
			},
			wantErr: "FINVAULT_JWT_SECRET is required",
		},
		{
			name: "oidc without client id",
			mutate: func(c *Config) {
				c.Auth.OIDCIssuerURL = "https://issuer.example.com"
			},
			wantErr: "FINVAULT_OIDC_CLIENT_ID is required",
		},
		{
			name: "invalid driver",
			mutate: func(c *Config) {
				c.Database.Driver = "mysql"
			},
			wantErr: "invalid database driver",
		},
		{
			name: "postgres without dsn",
			mutate: func(c *Config) {
				c.Database.Driver = "postgres"
				c.Database.DSN = ""
			},
			wantErr: "DSN is required",
		},
		{
			name: "production without redis",
			mutate: func(c *Config) {
				c.Profile = ProfileProduction
				c.Database.Driver = "postgres"
				c.Database.DSN = "postgres://localhost/finvault"
				c.Redis.URL = ""
			},
			wantErr: "redis URL is required",
		},
		{
			name: "s3 archival without bucket",
			mutate: func(c *Config) {
				c.Audit.S3Enabled = true
			},
			wantErr: "S3 bucket is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadLimits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "limits.yaml")
	content := `
window: 30s
default: 200
kinds:
  login: 10
  transaction: 15
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := ratelimit.ProductionConfig()
	require.NoError(t, LoadLimits(path, cfg))

	assert.Equal(t, 30*time.Second, cfg.Window)
	assert.Equal(t, 10, cfg.MaxFor("login"))
	assert.Equal(t, 15, cfg.MaxFor("transaction"))
	assert.Equal(t, 200, cfg.MaxFor("unknown"))
	// Kinds absent from the file keep their profile defaults
	assert.Equal(t, 20, cfg.MaxFor("signup"))
}

func TestLoadLimitsBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window: [not a duration"), 0o644))

	cfg := ratelimit.ProductionConfig()
	assert.Error(t, LoadLimits(path, cfg))

	assert.Error(t, LoadLimits(filepath.Join(dir, "missing.yaml"), cfg))
}

func TestWatchLimitsReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kinds:\n  login: 10\n"), 0o644))

	cfg := ratelimit.ProductionConfig()
	require.NoError(t, LoadLimits(path, cfg))
	require.Equal(t, 10, cfg.MaxFor("login"))

	logger := observability.NewLogger(observability.ErrorLevel, os.Stderr)
	stop, err := WatchLimits(path, cfg, logger)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("kinds:\n  login: 25\n"), 0o644))

	assert.Eventually(t, func() bool {
		return cfg.MaxFor("login") == 25
	}, 5*time.Second, 50*time.Millisecond)
}
