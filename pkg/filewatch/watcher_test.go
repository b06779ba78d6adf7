package filewatch

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filesentry/filesentry/internal/dirwatch"
	sentryerrors "github.com/filesentry/filesentry/internal/errors"
)

type sink struct {
	mu     sync.Mutex
	events []Event
}

func (s *sink) record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *sink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *sink) count() int {
	return len(s.all())
}

func newTestWatcher(t *testing.T, interval time.Duration) (*FileWatcher, *fakeOpener, *sink) {
	t.Helper()

	opener := newFakeOpener()
	w := New(Options{
		DebounceInterval: interval,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		Opener:           opener,
		Retry: sentryerrors.RetryConfig{
			MaxRetries:   0,
			InitialDelay: time.Nanosecond,
			MaxDelay:     time.Nanosecond,
			Multiplier:   1,
		},
	})
	t.Cleanup(func() { _ = w.Close() })

	events := &sink{}
	_, err := w.Subscribe(events.record)
	require.NoError(t, err)

	return w, opener, events
}

func TestAddFile_InvalidPath(t *testing.T) {
	w, _, _ := newTestWatcher(t, 0)

	err := w.AddFile("")

	require.Error(t, err)
	assert.Equal(t, sentryerrors.ErrCodeEmptyPath, sentryerrors.GetCode(err))
}

func TestAddFile_CreatesOneHandlePerDirectory(t *testing.T) {
	// Given: two files in the same directory and one elsewhere
	w, opener, _ := newTestWatcher(t, 0)

	require.NoError(t, w.AddFile("/a/x.txt"))
	require.NoError(t, w.AddFile("/a/y.txt"))
	require.NoError(t, w.AddFile("/b/z.txt"))

	// Then: one handle per directory
	m := w.Metrics()
	assert.Equal(t, 3, m.WatchedFiles)
	assert.Equal(t, 2, m.ActiveWatches)
	assert.Equal(t, 2, opener.opens())
}

func TestAddFile_Idempotent(t *testing.T) {
	w, opener, _ := newTestWatcher(t, 0)

	require.NoError(t, w.AddFile("/a/x.txt"))
	require.NoError(t, w.AddFile("/a/x.txt"))

	assert.Equal(t, 1, w.Metrics().WatchedFiles)
	assert.Equal(t, 1, opener.opens())
}

func TestAddFile_OpenFailureRollsBackRegistration(t *testing.T) {
	// Given: a backend that cannot watch /a
	w, opener, _ := newTestWatcher(t, 0)
	opener.failFor("/a")

	// When: adding a file in /a
	err := w.AddFile("/a/x.txt")

	// Then: the error surfaces and no state is left behind
	require.Error(t, err)
	assert.Equal(t, sentryerrors.ErrCodeWatchCreate, sentryerrors.GetCode(err))
	m := w.Metrics()
	assert.Zero(t, m.WatchedFiles)
	assert.Zero(t, m.ActiveWatches)
}

func TestAddRemove_LeavesNoState(t *testing.T) {
	// Given: a watched file that has produced an event
	w, opener, _ := newTestWatcher(t, 0)
	require.NoError(t, w.AddFile("/a/x.txt"))
	require.NoError(t, w.Start())
	opener.emitChange("/a/x.txt", dirwatch.OpModified)

	// When: removing it
	removed, err := w.RemoveFile("/a/x.txt")
	require.NoError(t, err)
	require.True(t, removed)

	// Then: no directory handle and no debounce entry remain
	m := w.Metrics()
	assert.Zero(t, m.ActiveWatches)
	assert.Zero(t, m.DebounceEntries)
	assert.Zero(t, opener.liveHandles())
}

func TestRemoveFile_UnknownReturnsFalse(t *testing.T) {
	w, _, _ := newTestWatcher(t, 0)

	removed, err := w.RemoveFile("/a/x.txt")

	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveFile_KeepsHandleWhileSiblingsRemain(t *testing.T) {
	// Given: /a/x.txt and /a/y.txt
	w, opener, events := newTestWatcher(t, 0)
	require.NoError(t, w.AddFile("/a/x.txt"))
	require.NoError(t, w.AddFile("/a/y.txt"))
	require.NoError(t, w.Start())

	// When: removing x.txt
	removed, err := w.RemoveFile("/a/x.txt")
	require.NoError(t, err)
	require.True(t, removed)

	// Then: exactly one handle remains and it still watches y.txt
	assert.Equal(t, 1, w.Metrics().ActiveWatches)
	opener.emitChange("/a/y.txt", dirwatch.OpModified)
	require.Equal(t, 1, events.count())
	assert.Equal(t, "/a/y.txt", events.all()[0].Path)

	// And: x.txt events are now discarded
	opener.emitChange("/a/x.txt", dirwatch.OpModified)
	assert.Equal(t, 1, events.count())
}

func TestRemoveLastFile_DestroysHandle_ReAddCreatesFresh(t *testing.T) {
	// Given: a single watched file
	w, opener, _ := newTestWatcher(t, 0)
	require.NoError(t, w.AddFile("/a/x.txt"))
	require.Equal(t, 1, opener.opens())

	// When: removing it and re-adding a file in the same directory
	_, err := w.RemoveFile("/a/x.txt")
	require.NoError(t, err)
	require.Zero(t, w.Metrics().ActiveWatches)

	require.NoError(t, w.AddFile("/a/y.txt"))

	// Then: a fresh handle was created
	assert.Equal(t, 1, w.Metrics().ActiveWatches)
	assert.Equal(t, 2, opener.opens())
}

func TestAddFiles_PartialApplication(t *testing.T) {
	// Given: /b cannot be watched
	w, opener, _ := newTestWatcher(t, 0)
	opener.failFor("/b")

	// When: adding a batch with one bad path
	err := w.AddFiles("/a/x.txt", "/b/y.txt", "/c/z.txt")

	// Then: the error is reported but the other files are watched
	require.Error(t, err)
	m := w.Metrics()
	assert.Equal(t, 2, m.WatchedFiles)
	assert.Equal(t, 2, m.ActiveWatches)
}

func TestRemoveFiles_IndependentRemoval(t *testing.T) {
	// Given: three watched files across two directories
	w, _, _ := newTestWatcher(t, 0)
	require.NoError(t, w.AddFiles("/a/x.txt", "/a/y.txt", "/b/z.txt"))

	// When: removing a batch that includes an invalid path
	err := w.RemoveFiles("/a/x.txt", "", "/b/z.txt")

	// Then: the bad path is reported but the valid ones are removed
	require.Error(t, err)
	m := w.Metrics()
	assert.Equal(t, 1, m.WatchedFiles)
	assert.Equal(t, 1, m.ActiveWatches)
}

func TestRemoveAll(t *testing.T) {
	w, opener, _ := newTestWatcher(t, 0)
	require.NoError(t, w.AddFiles("/a/x.txt", "/b/y.txt"))
	require.NoError(t, w.Start())

	require.NoError(t, w.RemoveAll())

	m := w.Metrics()
	assert.Zero(t, m.WatchedFiles)
	assert.Zero(t, m.ActiveWatches)
	assert.Zero(t, opener.liveHandles())
	// Mode survives RemoveAll
	assert.True(t, w.IsRunning())
}

func TestStartStop_GateDelivery(t *testing.T) {
	// Given: a watched file, watcher stopped
	w, opener, events := newTestWatcher(t, 0)
	require.NoError(t, w.AddFile("/a/x.txt"))
	assert.False(t, w.IsRunning())

	// Then: no delivery while stopped
	opener.emitChange("/a/x.txt", dirwatch.OpModified)
	assert.Zero(t, events.count())

	// When: starting
	require.NoError(t, w.Start())
	assert.True(t, w.IsRunning())
	opener.emitChange("/a/x.txt", dirwatch.OpModified)
	assert.Equal(t, 1, events.count())

	// When: stopping again
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	opener.emitChange("/a/x.txt", dirwatch.OpModified)
	assert.Equal(t, 1, events.count())
}

func TestStartStop_Idempotent(t *testing.T) {
	w, _, _ := newTestWatcher(t, 0)

	require.NoError(t, w.Start())
	require.NoError(t, w.Start())
	assert.True(t, w.IsRunning())

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}

func TestHandlesInheritModeAtCreation(t *testing.T) {
	// Given: a running watcher
	w, opener, events := newTestWatcher(t, 0)
	require.NoError(t, w.Start())

	// When: a file is added after Start
	require.NoError(t, w.AddFile("/a/x.txt"))

	// Then: its handle is already enabled
	opener.emitChange("/a/x.txt", dirwatch.OpModified)
	assert.Equal(t, 1, events.count())
}

func TestClose_TerminalAndIdempotent(t *testing.T) {
	// Given: a watcher with state
	w, opener, _ := newTestWatcher(t, 0)
	require.NoError(t, w.AddFile("/a/x.txt"))
	require.NoError(t, w.Start())

	// When: closing
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	// Then: all handles are released and every operation fails closed
	assert.Zero(t, opener.liveHandles())

	for name, err := range map[string]error{
		"AddFile":             w.AddFile("/a/x.txt"),
		"Start":               w.Start(),
		"Stop":                w.Stop(),
		"RemoveAll":           w.RemoveAll(),
		"SetDebounceInterval": w.SetDebounceInterval(time.Second),
	} {
		require.Error(t, err, name)
		assert.Equal(t, sentryerrors.ErrCodeWatcherClosed, sentryerrors.GetCode(err), name)
	}

	_, err := w.RemoveFile("/a/x.txt")
	assert.Equal(t, sentryerrors.ErrCodeWatcherClosed, sentryerrors.GetCode(err))

	_, err = w.Subscribe(func(Event) {})
	assert.Equal(t, sentryerrors.ErrCodeWatcherClosed, sentryerrors.GetCode(err))

	assert.False(t, w.IsRunning())
}

func TestDebounceInterval_ReadWrite(t *testing.T) {
	w, _, _ := newTestWatcher(t, 0)

	// Default applies
	assert.Equal(t, 150*time.Millisecond, w.DebounceInterval())

	require.NoError(t, w.SetDebounceInterval(50*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, w.DebounceInterval())
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	w, opener, _ := newTestWatcher(t, 0)
	require.NoError(t, w.AddFile("/a/x.txt"))
	require.NoError(t, w.Start())

	extra := &sink{}
	cancel, err := w.Subscribe(extra.record)
	require.NoError(t, err)

	opener.emitChange("/a/x.txt", dirwatch.OpModified)
	require.Equal(t, 1, extra.count())

	cancel()
	require.NoError(t, w.SetDebounceInterval(time.Nanosecond))
	time.Sleep(time.Millisecond)
	opener.emitChange("/a/x.txt", dirwatch.OpModified)
	assert.Equal(t, 1, extra.count())
}
