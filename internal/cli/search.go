package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/recall/internal/models"
	"github.com/jasperwreed/recall/internal/retriever"
	"github.com/jasperwreed/recall/internal/storage"
)

func NewSearchCommand() *cobra.Command {
	var limit int
	var showContext bool
	var f filterFlags

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across all sessions",
		Long:  `Search every indexed exchange. Results are ranked by relevance with more recent sessions winning ties, and each hit cites the exchange it matched in.`,
		Example: `  # Find sessions about webhook debugging
  recall search "webhook debug"

  # Narrow to one project, show matching exchanges inline
  recall search "migration" --project backend --context

  # Sessions for a client in the last week
  recall search "invoice" --client "Connection Lab" --days 7`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(strings.Join(args, " "), limit, showContext, f)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().BoolVar(&showContext, "context", false, "Show matching exchanges inline")
	f.register(cmd)

	return cmd
}

func runSearch(query string, limit int, showContext bool, f filterFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	hits, err := store.Search(query, f.filters(), limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(hits) == 0 {
		fmt.Printf("No results for: %s\n", query)
		return nil
	}

	fmt.Printf("%d result(s) for %q\n\n", len(hits), query)

	retr := retriever.New(store)
	for _, hit := range hits {
		printSummaryLine(hit.SessionSummary)
		if hit.Snippet != "" {
			fmt.Printf("    [exchange %d] %q\n", hit.ExchangeSeq, cleanSnippet(hit.Snippet))
		}
		if showContext {
			printHitContext(retr, hit)
		}
		fmt.Printf("    -> claude --resume %s\n\n", hit.ID)
	}
	return nil
}

func printHitContext(retr *retriever.Retriever, hit models.SearchHit) {
	exchanges, err := retr.ExchangesBySeq(hit.ID, []int{hit.ExchangeSeq})
	if err != nil {
		fmt.Printf("    (context unavailable: %v)\n", err)
		return
	}
	for _, ex := range exchanges {
		if user := firstLine(ex.UserText(), 250); user != "" {
			fmt.Printf("    user: %s\n", user)
		}
		if asst := firstLine(ex.AssistantText(), 250); asst != "" {
			fmt.Printf("    assistant: %s\n", asst)
		}
	}
}

func printSummaryLine(s models.SessionSummary) {
	title := s.Title
	if title == "" {
		title = "(unnamed)"
	}
	if len(title) > 70 {
		title = title[:67] + "..."
	}
	fmt.Printf("  %.8s  %s\n", s.ID, title)

	var meta []string
	if !s.StartTime.IsZero() {
		meta = append(meta, s.StartTime.Format("2006-01-02"))
	}
	if s.Project != "" {
		meta = append(meta, s.Project)
	}
	if s.Client != "" {
		meta = append(meta, s.Client)
	}
	if s.ExchangeCount > 0 {
		meta = append(meta, fmt.Sprintf("%d exchanges", s.ExchangeCount))
	}
	if s.DurationMinutes > 0 {
		meta = append(meta, fmt.Sprintf("%dmin", s.DurationMinutes))
	}
	if s.Compacted {
		meta = append(meta, "compacted")
	}
	if len(meta) > 0 {
		fmt.Printf("    %s\n", strings.Join(meta, " · "))
	}
}

func cleanSnippet(s string) string {
	s = strings.ReplaceAll(s, ">>>", "")
	s = strings.ReplaceAll(s, "<<<", "")
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

func firstLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

// filterFlags is the shared filter set for search and find.
type filterFlags struct {
	client         string
	project        string
	excludeProject string
	tool           string
	agent          string
	date           string
	days           int
	week           bool
	compacted      bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.client, "client", "", "Filter by client tag")
	cmd.Flags().StringVar(&f.project, "project", "", "Filter by project")
	cmd.Flags().StringVar(&f.excludeProject, "exclude-project", "", "Exclude a project")
	cmd.Flags().StringVar(&f.tool, "tool", "", "Filter by tool used")
	cmd.Flags().StringVar(&f.agent, "agent", "", "Filter by agent used")
	cmd.Flags().StringVar(&f.date, "date", "", "Filter by date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.days, "days", 0, "Only sessions from the last N days")
	cmd.Flags().BoolVar(&f.week, "week", false, "Only sessions from the last 7 days")
	cmd.Flags().BoolVar(&f.compacted, "compacted", false, "Only compacted sessions")
}

func (f filterFlags) filters() storage.Filters {
	out := storage.Filters{
		Client:         f.client,
		Project:        f.project,
		ExcludeProject: f.excludeProject,
		Tool:           f.tool,
		Agent:          f.agent,
		Date:           f.date,
	}
	days := f.days
	if f.week {
		days = 7
	}
	if days > 0 {
		out.Since = timeNow().AddDate(0, 0, -days)
	}
	if f.compacted {
		t := true
		out.Compacted = &t
	}
	return out
}
