package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Storage backends selectable through LABSCHED_STORAGE.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config captures environment driven configuration values for the lab scheduler.
type Config struct {
	HTTPPort       int
	Storage        string
	SQLiteDSN      string
	PostgresDSN    string
	TokenSecret    string
	TokenTTL       time.Duration
	Location       *time.Location
	MaxOccurrences int
	RabbitMQURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	CacheTTL       time.Duration
	LogLevel       string
}

// Load reads an optional .env file from the working directory and then parses
// the process environment. Variables already set in the environment win over
// the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses configuration values from the current process environment.
// Missing required values and malformed values are reported together.
func FromEnv() (Config, error) {
	cfg := Config{
		HTTPPort:       8080,
		Storage:        StorageSQLite,
		SQLiteDSN:      "data/labscheduler.db",
		TokenTTL:       12 * time.Hour,
		MaxOccurrences: 104,
		CacheTTL:       30 * time.Second,
		LogLevel:       "info",
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if v := env("LABSCHED_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "LABSCHED_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if v := strings.ToLower(env("LABSCHED_STORAGE")); v != "" {
		switch v {
		case StorageSQLite, StoragePostgres, StorageMemory:
			cfg.Storage = v
		default:
			invalid = append(invalid, "LABSCHED_STORAGE")
		}
	}

	if v := env("LABSCHED_SQLITE_DSN"); v != "" {
		cfg.SQLiteDSN = v
	}
	cfg.PostgresDSN = env("LABSCHED_POSTGRES_DSN")
	if cfg.Storage == StoragePostgres && cfg.PostgresDSN == "" {
		missing = append(missing, "LABSCHED_POSTGRES_DSN")
	}

	if cfg.TokenSecret = env("LABSCHED_TOKEN_SECRET"); cfg.TokenSecret == "" {
		missing = append(missing, "LABSCHED_TOKEN_SECRET")
	}

	if ttl, ok := positiveDuration("LABSCHED_TOKEN_TTL", &invalid); ok {
		cfg.TokenTTL = ttl
	}
	if ttl, ok := positiveDuration("LABSCHED_CACHE_TTL", &invalid); ok {
		cfg.CacheTTL = ttl
	}

	zone := env("LABSCHED_TIMEZONE")
	if zone == "" {
		zone = "America/Sao_Paulo"
	}
	if loc, err := time.LoadLocation(zone); err != nil {
		invalid = append(invalid, "LABSCHED_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if v := env("LABSCHED_MAX_OCCURRENCES"); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n < 1 {
			invalid = append(invalid, "LABSCHED_MAX_OCCURRENCES")
		} else {
			cfg.MaxOccurrences = n
		}
	}

	cfg.RabbitMQURL = env("LABSCHED_RABBITMQ_URL")
	cfg.RedisAddr = env("LABSCHED_REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("LABSCHED_REDIS_PASSWORD")
	if v := env("LABSCHED_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err != nil || db < 0 {
			invalid = append(invalid, "LABSCHED_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}

	if v := strings.ToLower(env("LABSCHED_LOG_LEVEL")); v != "" {
		switch v {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = v
		default:
			invalid = append(invalid, "LABSCHED_LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func positiveDuration(key string, invalid *[]string) (time.Duration, bool) {
	v := env(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, key)
		return 0, false
	}
	return d, true
}
