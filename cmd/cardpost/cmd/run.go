package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/set-night/cardpost/internal/feed"
	"github.com/set-night/cardpost/internal/service"
	"github.com/spf13/cobra"
)

var (
	inputPath string
	chunkSize int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Validate and post a daily transaction file",
	Long: `Run reads the input file in chunks. Each chunk is validated and posted
in one database transaction; failed records are written to the rejections
table with a reason code. Interrupting the run lets the current chunk commit
and stops before the next one.

Example:
  cardpost run --input daily.csv
  cat daily.csv | cardpost run --input -`,
	RunE: runPosting,
}

func init() {
	runCmd.Flags().StringVar(&inputPath, "input", "", "CSV transaction file, - for stdin (required)")
	runCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "records per commit (overrides CHUNK_SIZE)")

	runCmd.MarkFlagRequired("input")
}

func runPosting(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if chunkSize > 0 {
		appCfg.ChunkSize = chunkSize
	}

	var src io.Reader = os.Stdin
	if inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		src = f
	}

	reader, err := feed.NewCSVReader(src)
	if err != nil {
		return fmt.Errorf("open input %s: %w", inputPath, err)
	}

	store, closeStore, err := openStore(ctx, appCfg)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, err := newNotifier(appCfg)
	if err != nil {
		return err
	}

	slog.Info("starting posting run", "input", inputPath, "driver", appCfg.StoreDriver)

	controller := service.NewController(store, service.ControllerConfig{
		ChunkSize:    appCfg.ChunkSize,
		RetryLimit:   appCfg.RetryLimit,
		RetryBackoff: appCfg.RetryBackoff,
		SkipLimit:    appCfg.SkipLimit,
	})
	summary, err := controller.Run(ctx, reader)
	if err != nil {
		notifier.RunFailed(ctx, summary, err)
		return fmt.Errorf("posting run: %w", err)
	}
	notifier.RunCompleted(ctx, summary)

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: read %d, posted %d, rejected %d (skipped %d) in %s\n",
		summary.RunID, summary.Read, summary.Posted, summary.Rejected, summary.Skipped, summary.Elapsed())
	return nil
}
