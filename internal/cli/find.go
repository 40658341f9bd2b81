package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func NewFindCommand() *cobra.Command {
	var limit int
	var f filterFlags

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Filter sessions by metadata",
		Long:  `Browse indexed sessions by client, project, tool, agent, or date. No ranking; newest first.`,
		Example: `  # Sessions for a client
  recall find --client "Connection Lab"

  # Sessions that used the Bash tool this week
  recall find --tool Bash --week

  # Compacted sessions outside a project
  recall find --compacted --exclude-project scratch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(limit, f)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions")
	f.register(cmd)

	return cmd
}

func runFind(limit int, f filterFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sums, err := store.Find(f.filters(), limit)
	if err != nil {
		return fmt.Errorf("find failed: %w", err)
	}

	if len(sums) == 0 {
		fmt.Println("No sessions match those filters.")
		return nil
	}

	fmt.Printf("%d session(s)\n\n", len(sums))
	for _, s := range sums {
		printSummaryLine(s)
		fmt.Printf("    -> claude --resume %s\n\n", s.ID)
	}
	return nil
}

func NewRecentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent [n]",
		Short: "Show the most recent sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 10
			if len(args) == 1 {
				parsed, err := strconv.Atoi(args[0])
				if err != nil || parsed <= 0 {
					return fmt.Errorf("invalid count: %s", args[0])
				}
				n = parsed
			}
			return runFind(n, filterFlags{})
		},
	}
	return cmd
}
