package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	// Storage
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"./data/cardpost.db"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"4"`

	// Batch
	ChunkSize    int           `env:"CHUNK_SIZE" envDefault:"1000"`
	RetryLimit   int           `env:"RETRY_LIMIT" envDefault:"3"`
	RetryBackoff time.Duration `env:"RETRY_BACKOFF" envDefault:"500ms"`
	SkipLimit    int           `env:"SKIP_LIMIT" envDefault:"10"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Telegram run notifications, disabled without a token
	NotifyBotToken   string `env:"NOTIFY_BOT_TOKEN"`
	NotifyChatID     int64  `env:"NOTIFY_CHAT_ID"`
	NotifyTopicRun   int    `env:"NOTIFY_TOPIC_RUN"`
	NotifyTopicError int    `env:"NOTIFY_TOPIC_ERROR"`
}

// Load reads envFile into the environment if it exists, then parses and
// validates the configuration. Variables already set take precedence.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.RetryLimit < 0 {
		errs = append(errs, fmt.Errorf("RETRY_LIMIT must not be negative, got %d", c.RetryLimit))
	}
	if c.SkipLimit < 0 {
		errs = append(errs, fmt.Errorf("SKIP_LIMIT must not be negative, got %d", c.SkipLimit))
	}
	if c.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("RETRY_BACKOFF must not be negative, got %s", c.RetryBackoff))
	}
	if c.DBMaxConns < MinPoolConns {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be at least %d, got %d", MinPoolConns, c.DBMaxConns))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) NotifyEnabled() bool {
	return c.NotifyBotToken != "" && c.NotifyChatID != 0
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
