package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/recall/internal/indexer"
	"github.com/jasperwreed/recall/internal/retriever"
	"github.com/jasperwreed/recall/internal/synth"
)

func NewSynthesizeCommand() *cobra.Command {
	var limit int
	var noIndex bool

	cmd := &cobra.Command{
		Use:   "synthesize <question>",
		Short: "Answer a question from evidence across sessions",
		Long: `Rank sessions matching the question, pull their relevant exchanges, and ask
the configured summarizer for a prose answer. When the summarizer is
unavailable or times out, the ranked source list is returned on its own.

An incremental index pass runs first so the answer reflects current files;
--no-index skips it.`,
		Example: `  recall synthesize "how did we fix the webhook retries?"
  recall synthesize "what has been done for Connection Lab" -n 10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynthesize(cmd, strings.Join(args, " "), limit, noIndex)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum sessions to draw evidence from")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Skip the incremental index pass")

	return cmd
}

func runSynthesize(cmd *cobra.Command, query string, limit int, noIndex bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Index-if-stale, then query: idempotence makes this harmless even if a
	// background pass is already running.
	if !noIndex {
		if _, err := newIndexer(cfg, store).Run(cmd.Context(), indexer.ModeIncremental); err != nil {
			return err
		}
	}

	summ := synth.NewOpenAISummarizer("", cfg.Summarizer.BaseURL, cfg.Summarizer.Model)
	orch := synth.New(store, retriever.New(store), summ)
	orch.SetTimeout(cfg.Summarizer.Timeout())
	orch.SetBudget(cfg.Summarizer.MaxContextBytes)

	result, err := orch.Synthesize(cmd.Context(), query, limit)
	if err != nil {
		return err
	}

	if len(result.Sources) == 0 {
		fmt.Printf("No indexed material matches: %s\n", query)
		return nil
	}

	if result.Degraded {
		fmt.Println("Summarizer unavailable; showing ranked sources only.")
	} else {
		fmt.Println(result.Summary)
	}

	fmt.Printf("\nSources (%d):\n", len(result.Sources))
	for _, src := range result.Sources {
		title := src.Title
		if title == "" {
			title = "(unnamed)"
		}
		fmt.Printf("  %.8s  %s", src.SessionID, title)
		if !src.StartTime.IsZero() {
			fmt.Printf("  (%s)", src.StartTime.Format("2006-01-02"))
		}
		fmt.Printf("\n    exchanges %s -> claude --resume %s\n", intList(src.ExchangeSeqs), src.SessionID)
	}
	return nil
}

func intList(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ",")
}
