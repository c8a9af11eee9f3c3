package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/gauntlet/pkg/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "DATABASE_URL",
		"GAUNTLET_PLATFORM_URL", "GAUNTLET_PLATFORM_TOKEN", "GAUNTLET_SOCKET_URL",
		"GAUNTLET_CHANNEL", "GAUNTLET_MASTER_SECRET", "GAUNTLET_CATALOG",
		"GAUNTLET_PROFILES_DIR", "GAUNTLET_PROFILE", "GAUNTLET_TICK_INTERVAL",
		"GAUNTLET_SCORE_BACKEND", "GAUNTLET_SQLITE_PATH", "GAUNTLET_REDIS_ADDR",
		"GAUNTLET_REDIS_PASSWORD", "GAUNTLET_REDIS_DB", "GAUNTLET_ANNOUNCE_CHANNEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "catalog.yaml", cfg.CatalogPath)
	assert.Equal(t, "profiles", cfg.ProfilesDir)
	assert.Equal(t, 30*time.Second, cfg.TickInterval)
	assert.Equal(t, config.ScoreSQLite, cfg.ScoreBackend)
	assert.Equal(t, "data/gauntlet.db", cfg.SQLitePath)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("GAUNTLET_PLATFORM_URL", "https://chat.example.com/api")
	t.Setenv("GAUNTLET_TICK_INTERVAL", "5s")
	t.Setenv("GAUNTLET_SCORE_BACKEND", "redis")
	t.Setenv("GAUNTLET_REDIS_ADDR", "localhost:6379")
	t.Setenv("GAUNTLET_REDIS_DB", "3")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "https://chat.example.com/api", cfg.PlatformBaseURL)
	assert.Equal(t, 5*time.Second, cfg.TickInterval)
	assert.Equal(t, config.ScoreRedis, cfg.ScoreBackend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("GAUNTLET_TICK_INTERVAL", "soonish")
	t.Setenv("GAUNTLET_REDIS_DB", "three")

	cfg := config.Load()

	assert.Equal(t, 30*time.Second, cfg.TickInterval)
	assert.Equal(t, 0, cfg.RedisDB)
}

func validConfig() *config.Config {
	cfg := &config.Config{
		Port:         "8080",
		LogLevel:     "INFO",
		MasterSecret: "0123456789abcdef",
		TickInterval: 30 * time.Second,
		ScoreBackend: config.ScoreSQLite,
		SQLitePath:   "data/gauntlet.db",
	}
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"bad log level", func(c *config.Config) { c.LogLevel = "CHATTY" }, "log level"},
		{"short master secret", func(c *config.Config) { c.MasterSecret = "short" }, "MASTER_SECRET"},
		{"tiny tick", func(c *config.Config) { c.TickInterval = 100 * time.Millisecond }, "tick interval"},
		{"token without channel", func(c *config.Config) { c.PlatformToken = "xoxb-1" }, "GAUNTLET_CHANNEL"},
		{"postgres without url", func(c *config.Config) { c.ScoreBackend = config.ScorePostgres }, "DATABASE_URL"},
		{"redis without addr", func(c *config.Config) { c.ScoreBackend = config.ScoreRedis }, "REDIS_ADDR"},
		{"unknown backend", func(c *config.Config) { c.ScoreBackend = "etcd" }, "score backend"},
		{"announce without redis", func(c *config.Config) { c.AnnounceChannel = "gauntlet.changes" }, "REDIS_ADDR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	cfg := validConfig()

	cfg.LogLevel = "debug"
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	cfg.LogLevel = "WARN"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	cfg.LogLevel = "ERROR"
	assert.Equal(t, slog.LevelError, cfg.SlogLevel())
	cfg.LogLevel = "INFO"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
