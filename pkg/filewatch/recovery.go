package filewatch

import (
	"errors"
	"log/slog"
	"strconv"

	sentryerrors "github.com/filesentry/filesentry/internal/errors"
)

// handleWatchError reacts to a native backend failure (typically an
// event buffer overflow meaning events were dropped) by rebuilding all
// watch handles from the registry's current state. Best-effort: events
// arriving during the rebuild window are lost, consistent with the
// overflow that triggered it. Never panics into the native callback
// goroutine.
func (w *FileWatcher) handleWatchError(cause error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("recovered panic in watch recovery",
				slog.Any("panic", r))
		}
	}()

	code, msg := sentryerrors.FormatForLog(sentryerrors.WatchOverflow(cause))
	w.logger.Warn("native watch failure, rebuilding handles",
		slog.String("code", code),
		slog.String("error", msg))

	err := w.rebuildBreaker.Execute(w.rebuild)
	switch {
	case err == nil:
	case errors.Is(err, sentryerrors.ErrCircuitOpen):
		w.logger.Error("rebuild skipped, too many consecutive failures",
			slog.Int("failures", w.rebuildBreaker.Failures()))
	default:
		w.logger.Error("watch rebuild failed",
			slog.String("error", err.Error()))
	}
}

// rebuild tears down and recreates every handle from a registry
// snapshot, restoring the mode that was active before the failure.
// Runs under w.mu, so it is serialized against AddFile/RemoveFile: the
// snapshot cannot miss a directory that is concurrently gaining its
// first file.
func (w *FileWatcher) rebuild() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	mode := w.running

	w.closeAllLocked()

	var failed []string
	for _, dir := range w.files.Directories() {
		handle, err := w.openWatch(dir)
		if err != nil {
			failed = append(failed, dir)
			w.logger.Warn("cannot recreate watch during rebuild",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			continue
		}
		handle.SetEnabled(mode)
		w.watches[dirKey(dir)] = handle
	}

	w.rebuilds.Add(1)
	w.logger.Info("watch handles rebuilt",
		slog.Int("active_watches", len(w.watches)),
		slog.Bool("running", mode))

	if len(failed) > 0 {
		return sentryerrors.New(sentryerrors.ErrCodeRebuildFailed,
			"some directories could not be re-watched", nil).
			WithDetail("count", strconv.Itoa(len(failed)))
	}
	return nil
}
