package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/recall/internal/indexer"
)

func NewIndexCommand() *cobra.Command {
	var full bool
	var sessionID string
	var workers int

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index discovered session files",
		Long: `Scan the configured roots and index session transcripts into the database.
By default only sessions whose files changed since the last pass are
reprocessed; unchanged sessions are skipped without any writes.`,
		Example: `  # Incremental pass (cheap, safe to run any time)
  recall index

  # Full backfill, ignoring fingerprints
  recall index --full

  # Reprocess one session regardless of its fingerprint
  recall index --session 3f8a2b1c`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, full, sessionID, workers)
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Reprocess every session regardless of fingerprints")
	cmd.Flags().StringVar(&sessionID, "session", "", "Reprocess a single session by id")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent sessions (default 4)")

	return cmd
}

func runIndex(cmd *cobra.Command, full bool, sessionID string, workers int) error {
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
	if workers > 0 {
		ix.SetWorkers(workers)
	}

	if sessionID != "" {
		if err := ix.IndexSession(cmd.Context(), sessionID); err != nil {
			return fmt.Errorf("failed to index session: %w", err)
		}
		fmt.Printf("Indexed session %s\n", sessionID)
		return nil
	}

	mode := indexer.ModeIncremental
	if full {
		mode = indexer.ModeFull
	}

	report, err := ix.Run(cmd.Context(), mode)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d, skipped %d, failed %d (%.1fs)\n",
		report.Indexed, report.Skipped, report.Failed, report.Elapsed.Seconds())
	for _, e := range report.Errors {
		fmt.Printf("  failed: %v\n", e)
	}
	for _, e := range report.ScanErrors {
		fmt.Printf("  scan: %v\n", e)
	}
	return nil
}
