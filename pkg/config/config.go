// Package config reads daemon configuration from the environment and game
// profiles from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Mindburn-Labs/gauntlet/pkg/crypto"
)

// Score backends.
const (
	ScoreSQLite   = "sqlite"
	ScorePostgres = "postgres"
	ScoreRedis    = "redis"
	ScoreNone     = "none"
)

// Config holds daemon configuration.
type Config struct {
	Port     string
	LogLevel string

	// Platform gateway. SocketURL switches intake to socket mode; otherwise
	// the webhook receiver listens on the admin port.
	PlatformBaseURL string
	PlatformToken   string
	SocketURL       string
	Channel         string

	// MasterSecret feeds the HKDF purpose keys: webhook HMAC, announcement
	// signing, admin JWT.
	MasterSecret string

	CatalogPath string
	ProfilesDir string
	Profile     string

	TickInterval time.Duration

	ScoreBackend  string
	DatabaseURL   string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AnnounceChannel, when set, publishes signed change envelopes to this
	// Redis pub/sub channel.
	AnnounceChannel string
}

// Load reads configuration from environment variables, applying defaults.
func Load() *Config {
	return &Config{
		Port:     getenv("PORT", "8080"),
		LogLevel: getenv("LOG_LEVEL", "INFO"),

		PlatformBaseURL: getenv("GAUNTLET_PLATFORM_URL", ""),
		PlatformToken:   getenv("GAUNTLET_PLATFORM_TOKEN", ""),
		SocketURL:       getenv("GAUNTLET_SOCKET_URL", ""),
		Channel:         getenv("GAUNTLET_CHANNEL", ""),

		MasterSecret: getenv("GAUNTLET_MASTER_SECRET", ""),

		CatalogPath: getenv("GAUNTLET_CATALOG", "catalog.yaml"),
		ProfilesDir: getenv("GAUNTLET_PROFILES_DIR", "profiles"),
		Profile:     getenv("GAUNTLET_PROFILE", ""),

		TickInterval: getdur("GAUNTLET_TICK_INTERVAL", 30*time.Second),

		ScoreBackend:  getenv("GAUNTLET_SCORE_BACKEND", ScoreSQLite),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		SQLitePath:    getenv("GAUNTLET_SQLITE_PATH", "data/gauntlet.db"),
		RedisAddr:     getenv("GAUNTLET_REDIS_ADDR", ""),
		RedisPassword: getenv("GAUNTLET_REDIS_PASSWORD", ""),
		RedisDB:       getint("GAUNTLET_REDIS_DB", 0),

		AnnounceChannel: getenv("GAUNTLET_ANNOUNCE_CHANNEL", ""),
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}

	if len(c.MasterSecret) < crypto.MinMasterSecretLen {
		return fmt.Errorf("config: GAUNTLET_MASTER_SECRET must be at least %d bytes", crypto.MinMasterSecretLen)
	}
	if c.TickInterval < time.Second {
		return fmt.Errorf("config: tick interval %s is below 1s", c.TickInterval)
	}
	if c.PlatformToken != "" && c.Channel == "" {
		return fmt.Errorf("config: GAUNTLET_CHANNEL is required when a platform token is set")
	}

	switch c.ScoreBackend {
	case ScoreSQLite, ScoreNone:
	case ScorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres score backend")
		}
	case ScoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: GAUNTLET_REDIS_ADDR is required for the redis score backend")
		}
	default:
		return fmt.Errorf("config: unknown score backend %q", c.ScoreBackend)
	}

	if c.AnnounceChannel != "" && c.RedisAddr == "" {
		return fmt.Errorf("config: GAUNTLET_REDIS_ADDR is required when an announce channel is set")
	}
	return nil
}

// SlogLevel maps the configured level onto slog's scale.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getdur(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
