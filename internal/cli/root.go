package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/recall/internal/config"
	"github.com/jasperwreed/recall/internal/indexer"
	"github.com/jasperwreed/recall/internal/scanner"
	"github.com/jasperwreed/recall/internal/storage"
	"github.com/jasperwreed/recall/internal/transcript"
)

var (
	cfgPath string
	dbPath  string
	verbose bool
)

// swapped out in tests
var timeNow = time.Now

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "recall",
		Short: "Index and search assistant session transcripts",
		Long: `Recall - turn your accumulated assistant sessions into a searchable index.
Full-text search, filters, conversation context, usage analytics, and
cross-session synthesis over every transcript on disk.`,
		Version: "0.1.0",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (default: ~/.recall/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to index database (default: ~/.recall/index.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(
		NewIndexCommand(),
		NewSearchCommand(),
		NewFindCommand(),
		NewRecentCommand(),
		NewContextCommand(),
		NewTopicsCommand(),
		NewStatsCommand(),
		NewToolsCommand(),
		NewSynthesizeCommand(),
		NewWatchCommand(),
	)

	return rootCmd
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	return store, nil
}

func newIndexer(cfg *config.Config, store *storage.Store) *indexer.Indexer {
	scan := scanner.New(cfg.Roots, cfg.ProjectOverrides)
	return indexer.New(store, scan, transcript.BuildConfig{Clients: cfg.Clients})
}

// resolveSession expands a short id prefix typed by the user.
func resolveSession(store *storage.Store, id string) (string, error) {
	if len(id) == 36 {
		return id, nil
	}
	full, err := store.ResolveID(id)
	if err == storage.ErrNotFound {
		return "", fmt.Errorf("no session found matching %q", id)
	}
	return full, err
}
