package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/filesentry/filesentry/internal/config"
	"github.com/filesentry/filesentry/internal/journal"
	"github.com/filesentry/filesentry/internal/output"
)

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the change journal",
		Long: `Inspect changes recorded by 'filesentry watch --journal'.

The journal lives at ~/.filesentry/journal.db unless journal.path is
set in the configuration. It is owned by one process at a time, stop
the running watcher before pruning.`,
	}

	cmd.AddCommand(newJournalShowCmd())
	cmd.AddCommand(newJournalPruneCmd())

	return cmd
}

func newJournalShowCmd() *cobra.Command {
	var (
		limit int
		path  string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print recent journaled changes, newest first",
		Example: `  # Last 20 changes
  filesentry journal show

  # Last 100 changes to one file
  filesentry journal show --limit 100 --path /etc/app.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jnl, err := openConfiguredJournal()
			if err != nil {
				return err
			}
			defer func() { _ = jnl.Close() }()

			ctx := context.Background()
			var entries []journal.Entry
			if path != "" {
				entries, err = jnl.ForPath(ctx, path, limit)
			} else {
				entries, err = jnl.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "journal is empty")
				return nil
			}

			out := output.NewAuto(cmd.OutOrStdout())
			for _, e := range entries {
				out.Change(e.At, e.Kind, e.Path)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to print")
	cmd.Flags().StringVar(&path, "path", "", "Only show changes to this file")

	return cmd
}

func newJournalPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete journaled changes older than a cutoff",
		Example: `  # Drop everything older than three days
  filesentry journal prune --older-than 72h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}

			jnl, err := openConfiguredJournal()
			if err != nil {
				return err
			}
			defer func() { _ = jnl.Close() }()

			removed, err := jnl.Prune(context.Background(), olderThan)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", removed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Delete entries older than this duration (e.g. 72h)")

	return cmd
}

// openConfiguredJournal opens the journal at the configured location.
func openConfiguredJournal() (*journal.Journal, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return journal.Open(cfg.JournalPath())
}
