package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/set-night/cardpost"
	"github.com/set-night/cardpost/internal/config"
	"github.com/set-night/cardpost/internal/domain"
	"github.com/set-night/cardpost/internal/repository"
	"github.com/set-night/cardpost/internal/repository/sqlite"
	"github.com/set-night/cardpost/internal/telegram"
)

// openStore connects the configured backing store, bringing its schema up to
// date first. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (domain.Store, func(), error) {
	if cfg.StoreDriver == config.DriverSQLite {
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		slog.Info("sqlite store opened", "path", s.Path())
		return s, func() { s.Close() }, nil
	}

	if err := migratePostgres(cfg); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, config.MinPoolConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return repository.NewStore(pool), pool.Close, nil
}

func migratePostgres(cfg *config.Config) error {
	migrationsFS, err := fs.Sub(cardpost.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// newNotifier returns nil when notifications are not configured.
func newNotifier(cfg *config.Config) (*telegram.RunNotifier, error) {
	if !cfg.NotifyEnabled() {
		return nil, nil
	}
	b, err := bot.New(cfg.NotifyBotToken, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create notification bot: %w", err)
	}
	return telegram.NewRunNotifier(b, cfg), nil
}
