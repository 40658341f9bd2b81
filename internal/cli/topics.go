package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/recall/internal/topics"
)

func NewTopicsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics <session-id>",
		Short: "Show a session's topic timeline",
		Long:  `List the topic snapshots captured for a session, oldest first. Accepts a short id prefix.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopics(args[0])
		},
	}

	cmd.AddCommand(newTopicAddCommand())

	return cmd
}

// newTopicAddCommand is the entry point the external hook mechanism calls
// to deliver a topic event.
func newTopicAddCommand() *cobra.Command {
	var trigger string
	var at string

	cmd := &cobra.Command{
		Use:   "add <session-id> <text>",
		Short: "Record a topic snapshot (hook entry point)",
		Example: `  recall topics add 3f8a2b1c-... "refactoring the webhook retries" --trigger periodic
  recall topics add 3f8a2b1c-... "wrapping up" --trigger session-end`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopicAdd(args[0], args[1], trigger, at)
		},
	}

	cmd.Flags().StringVar(&trigger, "trigger", "periodic", "What prompted the snapshot (periodic, pre-compaction, session-end)")
	cmd.Flags().StringVar(&at, "at", "", "Snapshot timestamp (RFC 3339, default now)")

	return cmd
}

func runTopics(id string) error {
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

	timeline, err := topics.New(store).Timeline(full)
	if err != nil {
		return err
	}

	if len(timeline) == 0 {
		fmt.Printf("No topics recorded for session %.8s\n", full)
		return nil
	}

	if sess, err := store.GetSession(full); err == nil {
		title := sess.Title
		if title == "" {
			title = "(unnamed)"
		}
		fmt.Printf("%s\n", title)
	}

	fmt.Printf("Topic timeline (%d entries)\n\n", len(timeline))
	for _, t := range timeline {
		fmt.Printf("  [%-14s] %s\n", t.Trigger, t.CapturedAt.Format("2006-01-02 15:04"))
		fmt.Printf("                   %s\n\n", t.Topic)
	}
	return nil
}

func runTopicAdd(id, text, trigger, at string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var when time.Time
	if at != "" {
		when, err = time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("invalid --at timestamp: %w", err)
		}
	}

	return topics.New(store).Append(id, text, trigger, when)
}
