package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/recall/internal/indexer"
	"github.com/jasperwreed/recall/internal/watcher"
)

func NewWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the index current as sessions are written",
		Long: `Watch the configured roots and run an incremental index pass whenever
session files change. Runs an initial pass on startup, then blocks until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period after the last change before reindexing")

	return cmd
}

func runWatch(cmd *cobra.Command, debounce time.Duration) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ix := newIndexer(cfg, store)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := ix.Run(ctx, indexer.ModeIncremental)
	if err != nil {
		return err
	}
	fmt.Printf("Initial pass: indexed %d, skipped %d, failed %d\n",
		report.Indexed, report.Skipped, report.Failed)

	w, err := watcher.New(ix, cfg.Roots)
	if err != nil {
		return err
	}
	w.SetDebounce(debounce)

	fmt.Printf("Watching %d root(s). Ctrl-C to stop.\n", len(cfg.Roots))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
