package cmd

import (
	"fmt"
	"log/slog"

	"github.com/set-night/cardpost/internal/config"
	"github.com/set-night/cardpost/internal/repository/sqlite"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if appCfg.StoreDriver == config.DriverSQLite {
			s, err := sqlite.Open(appCfg.SQLitePath)
			if err != nil {
				return fmt.Errorf("open sqlite store: %w", err)
			}
			slog.Info("sqlite schema ready", "path", s.Path())
			return s.Close()
		}
		return migratePostgres(appCfg)
	},
}
