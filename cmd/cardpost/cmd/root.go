// Package cmd provides the cardpost CLI commands.
package cmd

import (
	"log/slog"
	"os"

	"github.com/set-night/cardpost/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool

	appCfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cardpost",
	Short: "Validate and post daily card transactions",
	Long: `cardpost reads a daily card transaction file, validates every record
against card and account state, posts the valid ones to account and
category balances, and records a rejection with a reason code for the rest.

Example:
  cardpost migrate
  cardpost run --input daily.csv
  STORE_DRIVER=sqlite cardpost run --input daily.csv --chunk-size 500`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		appCfg = cfg

		level := cfg.SlogLevel()
		if debug {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)
		return nil
	},
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".env", "env file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
}
