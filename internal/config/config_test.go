package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("POST_DELETE_REQUIRES_OWNER", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "5000", cfg.ServerPort)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.Equal(t, "", cfg.DatabaseURL)
	require.False(t, cfg.PostDeleteRequiresOwner)
	require.Equal(t, "pretty", cfg.LogFormat)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("POST_DELETE_REQUIRES_OWNER", "true")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://dash.example.com ,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("RATE_LIMIT_RPM", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, cfg.JWTTTL)
	require.True(t, cfg.PostDeleteRequiresOwner)
	require.Equal(t, []string{"http://localhost:5173", "https://dash.example.com"}, cfg.CORSOrigins)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, 300, cfg.RateLimitRPM)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			ServerPort:     "5000",
			JWTSecret:      "secret",
			JWTTTL:         time.Hour,
			RequestTimeout: time.Second,
			BcryptCost:     10,
			LogFormat:      "pretty",
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.JWTSecret = "  " }},
		{"zero ttl", func(c *Config) { c.JWTTTL = 0 }},
		{"bcrypt cost too low", func(c *Config) { c.BcryptCost = 2 }},
		{"bad pool sizes", func(c *Config) { c.DatabaseURL = "postgres://x"; c.DBMaxConns = 1; c.DBMinConns = 5 }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
