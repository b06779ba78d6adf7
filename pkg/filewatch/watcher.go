package filewatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/filesentry/filesentry/internal/debounce"
	"github.com/filesentry/filesentry/internal/dirwatch"
	sentryerrors "github.com/filesentry/filesentry/internal/errors"
	"github.com/filesentry/filesentry/internal/registry"
)

// ChangeKind is the kind of change reported for a watched file.
type ChangeKind int

const (
	// KindModified indicates the file's contents changed.
	KindModified ChangeKind = iota
	// KindCreated indicates the file was created.
	KindCreated
	// KindDeleted indicates the file was deleted.
	KindDeleted
	// KindRenamed indicates the file was renamed. Rename notifications
	// are emitted per resolved path: one for the old path and one for
	// the new path, when each is watched.
	KindRenamed
)

// String returns a human-readable representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case KindModified:
		return "MODIFIED"
	case KindCreated:
		return "CREATED"
	case KindDeleted:
		return "DELETED"
	case KindRenamed:
		return "RENAMED"
	default:
		return "UNKNOWN"
	}
}

// Event is a change notification for a watched file.
type Event struct {
	// Path is the canonical absolute path of the file.
	Path string
	// Kind is the kind of change.
	Kind ChangeKind
	// Timestamp is when the event was accepted for delivery.
	Timestamp time.Time
}

// Options configures a FileWatcher.
type Options struct {
	// DebounceInterval is the per-file suppression window.
	// Default: 150ms.
	DebounceInterval time.Duration

	// Logger receives diagnostics (delivery faults, rebuilds).
	// Default: slog.Default().
	Logger *slog.Logger

	// Opener creates native directory watches.
	// Default: the fsnotify-backed opener.
	Opener dirwatch.Opener

	// Retry controls backoff for native handle creation.
	// Default: errors.DefaultRetryConfig().
	Retry sentryerrors.RetryConfig
}

// Metrics reports watcher counters.
type Metrics struct {
	WatchedFiles     int
	ActiveWatches    int
	DebounceEntries  int
	EventsDelivered  uint64
	EventsSuppressed uint64
	EventsDiscarded  uint64
	Rebuilds         uint64
}

// FileWatcher watches a set of individual files, grouping them by
// parent directory so one native handle serves all watched files in a
// directory. Safe for concurrent use.
type FileWatcher struct {
	opener  dirwatch.Opener
	logger  *slog.Logger
	retry   sentryerrors.RetryConfig
	files   *registry.Registry
	tracker *debounce.Tracker

	// rebuildBreaker trips open when consecutive failure-recovery
	// rebuilds themselves fail, so a broken backend cannot cause a
	// rebuild storm.
	rebuildBreaker *sentryerrors.CircuitBreaker

	// mu guards watch topology: the handle map, the running mode, and
	// the closed flag. Failure-recovery rebuild runs entirely under it,
	// so a rebuild snapshot can never miss or duplicate a directory
	// that is concurrently gaining its first file.
	mu      sync.Mutex
	watches map[string]dirwatch.Handle
	running bool
	closed  bool

	subMu   sync.RWMutex
	subs    map[uint64]func(Event)
	nextSub uint64

	eventsDelivered  atomic.Uint64
	eventsSuppressed atomic.Uint64
	eventsDiscarded  atomic.Uint64
	rebuilds         atomic.Uint64
}

// New creates a FileWatcher in the Stopped mode with no files watched.
func New(opts Options) *FileWatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opener := opts.Opener
	if opener == nil {
		opener = dirwatch.NewOpener()
	}

	retry := opts.Retry
	if retry.MaxRetries == 0 && retry.InitialDelay == 0 {
		retry = sentryerrors.DefaultRetryConfig()
	}

	return &FileWatcher{
		opener:         opener,
		logger:         logger,
		retry:          retry,
		files:          registry.New(),
		tracker:        debounce.NewTracker(opts.DebounceInterval),
		rebuildBreaker: sentryerrors.NewCircuitBreaker("watch_rebuild"),
		watches:        make(map[string]dirwatch.Handle),
		subs:           make(map[uint64]func(Event)),
	}
}

// AddFile registers a file for change notifications. The file's parent
// directory gains a native watch handle if it did not have one; the
// handle inherits the current running mode. Re-adding a watched file is
// a no-op success.
func (w *FileWatcher) AddFile(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return sentryerrors.WatcherClosed("AddFile")
	}

	entry, first, err := w.files.Register(path)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	handle, err := w.openWatch(entry.Dir)
	if err != nil {
		// Roll back so the registry never claims a directory that has
		// no live handle.
		_, _, _, _ = w.files.Unregister(entry.Path)
		return sentryerrors.WatchError("cannot watch directory", err).
			WithDetail("dir", entry.Dir)
	}
	handle.SetEnabled(w.running)
	w.watches[entry.DirKey()] = handle

	w.logger.Debug("watch added",
		slog.String("path", entry.Path),
		slog.Int("active_watches", len(w.watches)))
	return nil
}

// AddFiles registers each path independently. A failing path does not
// stop the remaining ones; the joined errors are returned.
func (w *FileWatcher) AddFiles(paths ...string) error {
	var errs []error
	for _, path := range paths {
		if err := w.AddFile(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RemoveFile unregisters a file. Returns false when the file was not
// watched. Removing the last file of a directory releases the
// directory's native handle and clears the file's debounce entry.
func (w *FileWatcher) RemoveFile(path string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false, sentryerrors.WatcherClosed("RemoveFile")
	}

	entry, removed, last, err := w.files.Unregister(path)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	w.tracker.Forget(entry.Path)

	if last {
		if handle, ok := w.watches[entry.DirKey()]; ok {
			_ = handle.Close()
			delete(w.watches, entry.DirKey())
		}
		w.logger.Debug("watch removed",
			slog.String("dir", entry.Dir),
			slog.Int("active_watches", len(w.watches)))
	}
	return true, nil
}

// RemoveFiles unregisters each path independently.
func (w *FileWatcher) RemoveFiles(paths ...string) error {
	var errs []error
	for _, path := range paths {
		if _, err := w.RemoveFile(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RemoveAll unregisters every file and releases every native handle,
// regardless of the running mode.
func (w *FileWatcher) RemoveAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return sentryerrors.WatcherClosed("RemoveAll")
	}

	w.files.Clear()
	w.tracker.Reset()
	w.closeAllLocked()
	return nil
}

// Start enables change delivery on every handle. Idempotent.
func (w *FileWatcher) Start() error {
	return w.setRunning(true, "Start")
}

// Stop disables change delivery on every handle. Idempotent.
func (w *FileWatcher) Stop() error {
	return w.setRunning(false, "Stop")
}

func (w *FileWatcher) setRunning(target bool, operation string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return sentryerrors.WatcherClosed(operation)
	}
	if w.running == target {
		return nil
	}

	w.running = target
	for _, handle := range w.watches {
		handle.SetEnabled(target)
	}
	return nil
}

// IsRunning reports whether change delivery is enabled.
func (w *FileWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running && !w.closed
}

// DebounceInterval returns the per-file suppression window.
func (w *FileWatcher) DebounceInterval() time.Duration {
	return w.tracker.Interval()
}

// SetDebounceInterval updates the per-file suppression window at
// runtime.
func (w *FileWatcher) SetDebounceInterval(d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return sentryerrors.WatcherClosed("SetDebounceInterval")
	}
	w.tracker.SetInterval(d)
	return nil
}

// Subscribe registers a change handler and returns its cancel func.
// Handlers run synchronously on the delivery goroutine; a panicking
// handler is recovered and logged without disturbing delivery.
func (w *FileWatcher) Subscribe(fn func(Event)) (func(), error) {
	if fn == nil {
		return nil, sentryerrors.New(sentryerrors.ErrCodeInternal, "subscriber is nil", nil)
	}

	// Registration happens under w.mu so a concurrent Close cannot
	// slip between the closed check and the subs insert.
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, sentryerrors.WatcherClosed("Subscribe")
	}

	w.subMu.Lock()
	w.nextSub++
	id := w.nextSub
	w.subs[id] = fn
	w.subMu.Unlock()

	return func() {
		w.subMu.Lock()
		delete(w.subs, id)
		w.subMu.Unlock()
	}, nil
}

// Close tears the watcher down: every handle is released and all state
// cleared. Idempotent; every operation after Close fails with a
// watcher-closed error.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.running = false

	w.files.Clear()
	w.tracker.Reset()
	w.closeAllLocked()

	w.subMu.Lock()
	w.subs = make(map[uint64]func(Event))
	w.subMu.Unlock()
	return nil
}

// Metrics reports current watcher counters.
func (w *FileWatcher) Metrics() Metrics {
	w.mu.Lock()
	watchedFiles := w.files.Len()
	activeWatches := len(w.watches)
	w.mu.Unlock()

	return Metrics{
		WatchedFiles:     watchedFiles,
		ActiveWatches:    activeWatches,
		DebounceEntries:  w.tracker.Len(),
		EventsDelivered:  w.eventsDelivered.Load(),
		EventsSuppressed: w.eventsSuppressed.Load(),
		EventsDiscarded:  w.eventsDiscarded.Load(),
		Rebuilds:         w.rebuilds.Load(),
	}
}

// openWatch creates a native handle for dir with backoff. Caller holds
// w.mu; handle creation is the only I/O performed under the lock.
func (w *FileWatcher) openWatch(dir string) (dirwatch.Handle, error) {
	hooks := dirwatch.Hooks{
		OnChange: w.handleChange,
		OnRename: w.handleRename,
		OnError:  w.handleWatchError,
	}
	return sentryerrors.RetryWithResult(context.Background(), w.retry,
		func() (dirwatch.Handle, error) {
			return w.opener.Open(dir, hooks)
		})
}

// closeAllLocked releases every handle. Caller holds w.mu.
func (w *FileWatcher) closeAllLocked() {
	for _, handle := range w.watches {
		handle.SetEnabled(false)
		_ = handle.Close()
	}
	w.watches = make(map[string]dirwatch.Handle)
}

func dirKey(dir string) string {
	return strings.ToLower(dir)
}
