package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long:  `Display aggregate statistics over every indexed session.`,
		RunE:  runStats,
	}
	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	fmt.Println("Index overview")
	fmt.Println("==============")
	fmt.Printf("  Sessions:   %d\n", stats.TotalSessions)
	fmt.Printf("  Exchanges:  %d\n", stats.TotalExchanges)
	fmt.Printf("  Topics:     %d\n", stats.TotalTopics)
	fmt.Printf("  Tools:      %d distinct\n", stats.DistinctTools)
	fmt.Printf("  Agents:     %d distinct\n", stats.DistinctAgents)
	if !stats.Earliest.IsZero() {
		fmt.Printf("  Range:      %s -> %s\n",
			stats.Earliest.Format("2006-01-02"), stats.Latest.Format("2006-01-02"))
	}

	if len(stats.ByProject) > 0 {
		fmt.Println("\nSessions by project:")
		for project, count := range stats.ByProject {
			if project == "" {
				project = "(none)"
			}
			fmt.Printf("  %-25s %5d\n", project, count)
		}
	}

	if len(stats.TopTools) > 0 {
		fmt.Println("\nTop tools:")
		for _, tc := range stats.TopTools {
			fmt.Printf("  %-25s %5d uses (%d sessions)\n", tc.Name, tc.Uses, tc.Sessions)
		}
	}
	return nil
}

func NewToolsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "tools [name]",
		Short: "Show tool usage",
		Long:  `Without a name, show per-tool totals across all sessions. With a name, list the sessions using it, heaviest first.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runTools(name, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows")

	return cmd
}

func runTools(name string, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if name == "" {
		tools, err := store.TopTools(limit)
		if err != nil {
			return err
		}
		if len(tools) == 0 {
			fmt.Println("No tool usage recorded.")
			return nil
		}
		fmt.Println("Top tools across all sessions:")
		for _, tc := range tools {
			fmt.Printf("  %-25s %6d uses (%d sessions)\n", tc.Name, tc.Uses, tc.Sessions)
		}
		return nil
	}

	uses, err := store.SessionsUsingTool(name, limit)
	if err != nil {
		return err
	}
	if len(uses) == 0 {
		fmt.Printf("No sessions used %q.\n", name)
		return nil
	}
	fmt.Printf("Sessions using %q:\n", name)
	for _, u := range uses {
		title := u.Title
		if title == "" {
			title = "(unnamed)"
		}
		fmt.Printf("  %.8s  %s x%d  %s\n", u.SessionID, u.ToolName, u.UseCount, title)
	}
	return nil
}
