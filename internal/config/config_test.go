package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadFromEnv reads so tests start from a
// known state regardless of the developer's shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DB_PATH", "LISTEN_ADDR", "LOG_LEVEL", "ENV",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "AUDIT_RETENTION_DAYS",
		"S3_KEY_ID", "S3_SECRET", "S3_ENDPOINT", "S3_REGION", "S3_BUCKET",
		"CORS_ALLOWED_ORIGINS",
		"AUTH_ISSUER_URL", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_ALLOWED_ISSUERS",
		"AUTH_DEV_LOGIN", "IDENTITY_SECRET", "CAPABILITY_SECRET",
		"IDENTITY_TOKEN_TTL", "CAPABILITY_TOKEN_TTL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "expertmarket.sqlite", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, float64(100), cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, 90, cfg.AuditRetentionDays)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Auth.IdentityTTL)
	assert.Equal(t, 600*time.Second, cfg.Auth.CapabilityTTL)

	assert.Nil(t, cfg.S3KeyID)
	assert.False(t, cfg.HasS3Config())

	// Insecure defaults produce warnings, not errors, outside production.
	assert.Equal(t, "dev-secret-change-in-production", cfg.Auth.IdentitySecret)
	assert.NotEmpty(t, cfg.Auth.CapabilitySecret)
	assert.NotEqual(t, cfg.Auth.IdentitySecret, cfg.Auth.CapabilitySecret)
	assert.NotEmpty(t, cfg.Warnings)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "/tmp/market.sqlite")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("S3_KEY_ID", "testkey")
	t.Setenv("S3_SECRET", "testsecret")
	t.Setenv("S3_ENDPOINT", "s3.example.com")
	t.Setenv("S3_REGION", "eu-central-1")
	t.Setenv("S3_BUCKET", "documents")
	t.Setenv("IDENTITY_SECRET", "top-secret")
	t.Setenv("CAPABILITY_SECRET", "other-secret")
	t.Setenv("IDENTITY_TOKEN_TTL", "2h")
	t.Setenv("CAPABILITY_TOKEN_TTL", "5m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/market.sqlite", cfg.DBPath)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	require.NotNil(t, cfg.S3KeyID)
	assert.Equal(t, "testkey", *cfg.S3KeyID)
	assert.True(t, cfg.HasS3Config())
	assert.Equal(t, "top-secret", cfg.Auth.IdentitySecret)
	assert.Equal(t, "other-secret", cfg.Auth.CapabilitySecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.IdentityTTL)
	assert.Equal(t, 5*time.Minute, cfg.Auth.CapabilityTTL)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadFromEnv_ProductionGuards(t *testing.T) {
	t.Run("default identity secret is fatal", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "production")

		_, err := LoadFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "IDENTITY_SECRET")
	})

	t.Run("dev login is fatal", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "production")
		t.Setenv("IDENTITY_SECRET", "real-secret")
		t.Setenv("AUTH_ISSUER_URL", "https://issuer.example.com")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")
		t.Setenv("AUTH_DEV_LOGIN", "true")

		_, err := LoadFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AUTH_DEV_LOGIN")
	})

	t.Run("cors wildcard is fatal", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "production")
		t.Setenv("IDENTITY_SECRET", "real-secret")
		t.Setenv("AUTH_ISSUER_URL", "https://issuer.example.com")

		_, err := LoadFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CORS")
	})

	t.Run("complete production config loads", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "production")
		t.Setenv("IDENTITY_SECRET", "real-secret")
		t.Setenv("AUTH_ISSUER_URL", "https://issuer.example.com")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")

		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nDB_PATH=/tmp/dotenv.sqlite\nLOG_LEVEL=debug\n\nLISTEN_ADDR=\":7070\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Pre-set vars win over the file.
	t.Setenv("LOG_LEVEL", "warn")

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "/tmp/dotenv.sqlite", os.Getenv("DB_PATH"))
	assert.Equal(t, "warn", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, ":7070", os.Getenv("LISTEN_ADDR"))
}

func TestLoadDotEnvMissingFileIsNotAnError(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"WARN", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
		{"garbage", "INFO"},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		assert.Equal(t, tt.want, cfg.SlogLevel().String(), "level %q", tt.in)
	}
}
