package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/recall/internal/retriever"
)

func NewContextCommand() *cobra.Command {
	var term string
	var limit int

	cmd := &cobra.Command{
		Use:   "context <session-id>",
		Short: "Show a session's conversation exchanges",
		Long: `Reconstruct a session's exchanges from its source transcript. Sequence
numbers match the ones search results cite. Accepts a short id prefix.`,
		Example: `  # Whole conversation
  recall context 3f8a2b1c

  # Only exchanges mentioning a term, keeping their original numbering
  recall context 3f8a2b1c --term webhook`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContext(args[0], term, limit)
		},
	}

	cmd.Flags().StringVar(&term, "term", "", "Only exchanges containing this term")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum exchanges to print (0 = all)")

	return cmd
}

func runContext(id, term string, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	full, err := resolveSession(store, id)
	if err != nil {
		return err
	}

	exchanges, err := retriever.New(store).Exchanges(full, term)
	if err != nil {
		return err
	}

	if len(exchanges) == 0 {
		if term != "" {
			fmt.Printf("No exchanges in %.8s contain %q\n", full, term)
		} else {
			fmt.Printf("Session %.8s has no exchanges\n", full)
		}
		return nil
	}

	if limit > 0 && len(exchanges) > limit {
		exchanges = exchanges[:limit]
	}

	for _, ex := range exchanges {
		ts := ""
		if !ex.StartTime.IsZero() {
			ts = ex.StartTime.Format("Jan 02, 15:04")
		}
		fmt.Printf("--- exchange %d  %s\n", ex.Seq, ts)
		if user := firstLine(ex.UserText(), 500); user != "" {
			fmt.Printf("  user: %s\n", user)
		}
		if asst := firstLine(ex.AssistantText(), 500); asst != "" {
			fmt.Printf("  assistant: %s\n", asst)
		}
		fmt.Println()
	}
	return nil
}
