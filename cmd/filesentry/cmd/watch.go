package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/filesentry/filesentry/internal/config"
	sentryerrors "github.com/filesentry/filesentry/internal/errors"
	"github.com/filesentry/filesentry/internal/journal"
	"github.com/filesentry/filesentry/internal/output"
	"github.com/filesentry/filesentry/pkg/filewatch"
)

func newWatchCmd() *cobra.Command {
	var (
		files       []string
		debounce    time.Duration
		journalFlag bool
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch files and print changes as they happen",
		Long: `Watch the given files and print one line per change.

Files come from --file flags and the watch.files list in
.filesentry.yaml. Changes to the same file inside the debounce window
are coalesced into a single line.

Press Ctrl+C to stop.`,
		Example: `  # Watch two files
  filesentry watch -f app.yaml -f secrets.env

  # Watch the files listed in .filesentry.yaml with a wider window
  filesentry watch --debounce 500ms

  # Record changes to the journal as well
  filesentry watch -f app.yaml --journal`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, files, debounce, journalFlag, quiet)
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "File to watch (repeatable)")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Debounce window, overrides config (e.g. 300ms)")
	cmd.Flags().BoolVar(&journalFlag, "journal", false, "Record delivered changes to the journal")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress startup and shutdown messages")

	return cmd
}

func runWatch(cmd *cobra.Command, files []string, debounce time.Duration, journalFlag, quiet bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	watchFiles := append(append([]string{}, cfg.Watch.Files...), files...)
	if len(watchFiles) == 0 {
		return fmt.Errorf("no files to watch: pass --file or set watch.files in .filesentry.yaml")
	}

	interval := cfg.DebounceDuration()
	if debounce > 0 {
		interval = debounce
	}

	out := output.NewAuto(cmd.OutOrStdout())

	var jnl *journal.Journal
	if journalFlag || cfg.Journal.Enabled {
		jnl, err = journal.Open(cfg.JournalPath())
		if err != nil {
			return err
		}
		defer func() { _ = jnl.Close() }()
	}

	w := filewatch.New(filewatch.Options{
		DebounceInterval: interval,
		Logger:           slog.Default(),
	})
	defer func() { _ = w.Close() }()

	// Subscribers must never block the dispatch path, hand events to
	// the printing goroutine through a buffered channel and drop on
	// overflow.
	events := make(chan filewatch.Event, 1024)
	cancel, err := w.Subscribe(func(ev filewatch.Event) {
		select {
		case events <- ev:
		default:
			slog.Warn("event dropped, output is too slow", slog.String("path", ev.Path))
		}
	})
	if err != nil {
		return err
	}
	defer cancel()

	if err := w.AddFiles(watchFiles...); err != nil {
		if w.Metrics().WatchedFiles == 0 {
			return err
		}
		out.Warningf("some files cannot be watched: %v", err)
	}

	if err := w.Start(); err != nil {
		return err
	}

	if !quiet {
		m := w.Metrics()
		out.Successf("Watching %d files across %d directories (debounce %s)",
			m.WatchedFiles, m.ActiveWatches, interval)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-events:
				out.Change(ev.Timestamp, ev.Kind.String(), ev.Path)
				if jnl != nil {
					if err := jnl.Append(gctx, ev.Path, ev.Kind.String(), ev.Timestamp); err != nil {
						code, msg := sentryerrors.FormatForLog(err)
						slog.Warn("journal append failed",
							slog.String("code", code),
							slog.String("error", msg))
					}
				}
			}
		}
	})

	if jnl != nil && cfg.RetentionDuration() > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if n, err := jnl.Prune(gctx, cfg.RetentionDuration()); err != nil {
						code, msg := sentryerrors.FormatForLog(err)
						slog.Warn("journal prune failed",
							slog.String("code", code),
							slog.String("error", msg))
					} else if n > 0 {
						slog.Info("journal pruned", slog.Int64("removed", n))
					}
				}
			}
		})
	}

	err = g.Wait()
	_ = w.Stop()

	if !quiet {
		out.Newline()
		out.Success("Stopped")
	}
	return err
}
