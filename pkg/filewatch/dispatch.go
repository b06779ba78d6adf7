package filewatch

import (
	"log/slog"
	"time"

	"github.com/filesentry/filesentry/internal/dirwatch"
	"github.com/filesentry/filesentry/internal/registry"
)

// handleChange receives raw modified/created/deleted callbacks from a
// native handle.
func (w *FileWatcher) handleChange(path string, op dirwatch.Op) {
	w.dispatchRaw(path, kindFromOp(op))
}

// handleRename receives raw rename callbacks. Each resolved side of the
// rename produces its own notification: two when both old and new path
// are watched, one when only one is, none when neither is.
func (w *FileWatcher) handleRename(oldPath, newPath string) {
	if oldPath != "" {
		w.dispatchRaw(oldPath, KindRenamed)
	}
	if newPath != "" {
		w.dispatchRaw(newPath, KindRenamed)
	}
}

// dispatchRaw normalizes a raw event, resolves it against the watched
// file set, consults the debounce tracker, and fans the event out.
// Every fault is recovered here: a malfunction while resolving or
// notifying must never terminate the native delivery goroutine.
func (w *FileWatcher) dispatchRaw(path string, kind ChangeKind) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("recovered panic in event dispatch",
				slog.String("path", path),
				slog.Any("panic", r))
		}
	}()

	entry, err := registry.Canonicalize(path)
	if err != nil {
		w.eventsDiscarded.Add(1)
		return
	}

	// Untracked siblings in a watched directory, and files removed
	// between the raw event and now, are silently discarded.
	if !w.files.Contains(entry.Dir, entry.Name) {
		w.eventsDiscarded.Add(1)
		return
	}

	now := time.Now()
	if !w.tracker.ShouldEmit(entry.Path, now) {
		w.eventsSuppressed.Add(1)
		w.logger.Debug("event suppressed by debounce",
			slog.String("path", entry.Path),
			slog.String("kind", kind.String()))
		return
	}

	w.notify(Event{Path: entry.Path, Kind: kind, Timestamp: now})
}

// notify invokes every subscriber synchronously. A panicking
// subscriber is isolated: the fault is logged and remaining
// subscribers still run.
func (w *FileWatcher) notify(ev Event) {
	w.subMu.RLock()
	subs := make([]func(Event), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.subMu.RUnlock()

	for _, fn := range subs {
		w.invoke(fn, ev)
	}
	w.eventsDelivered.Add(1)
}

func (w *FileWatcher) invoke(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Warn("recovered panic in subscriber",
				slog.String("path", ev.Path),
				slog.Any("panic", r))
		}
	}()
	fn(ev)
}

func kindFromOp(op dirwatch.Op) ChangeKind {
	switch op {
	case dirwatch.OpCreated:
		return KindCreated
	case dirwatch.OpDeleted:
		return KindDeleted
	case dirwatch.OpRenamed:
		return KindRenamed
	default:
		return KindModified
	}
}
