package filewatch

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/filesentry/filesentry/internal/dirwatch"
)

// fakeOpener drives the watcher with synthetic raw events so tests are
// deterministic and never touch the filesystem.
type fakeOpener struct {
	mu        sync.Mutex
	handles   map[string]*fakeHandle
	openCount int
	failDirs  map[string]bool
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{
		handles:  make(map[string]*fakeHandle),
		failDirs: make(map[string]bool),
	}
}

func (o *fakeOpener) Open(dir string, hooks dirwatch.Hooks) (dirwatch.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.openCount++
	if o.failDirs[strings.ToLower(dir)] {
		return nil, errors.New("synthetic open failure")
	}

	h := &fakeHandle{dir: dir, hooks: hooks}
	o.handles[strings.ToLower(dir)] = h
	return h, nil
}

// failFor makes future opens of dir fail.
func (o *fakeOpener) failFor(dir string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failDirs[strings.ToLower(dir)] = true
}

func (o *fakeOpener) opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.openCount
}

func (o *fakeOpener) handleFor(dir string) *fakeHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handles[strings.ToLower(dir)]
}

// liveHandles counts handles that were opened and not closed.
func (o *fakeOpener) liveHandles() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, h := range o.handles {
		if !h.closed.Load() {
			n++
		}
	}
	return n
}

// emitChange delivers a raw change event for path through the handle of
// its parent directory, mirroring the enabled-gating of real handles.
func (o *fakeOpener) emitChange(path string, op dirwatch.Op) {
	h := o.handleFor(filepath.Dir(path))
	if h == nil || !h.enabled.Load() || h.closed.Load() {
		return
	}
	h.hooks.OnChange(path, op)
}

// emitRename delivers a raw rename through the handle of the old
// path's directory (or the new path's when the old side is empty).
func (o *fakeOpener) emitRename(oldPath, newPath string) {
	anchor := oldPath
	if anchor == "" {
		anchor = newPath
	}
	h := o.handleFor(filepath.Dir(anchor))
	if h == nil || !h.enabled.Load() || h.closed.Load() {
		return
	}
	h.hooks.OnRename(oldPath, newPath)
}

// emitError delivers a backend failure for dir. Errors bypass the
// enabled gate, like the real implementation.
func (o *fakeOpener) emitError(dir string, err error) {
	h := o.handleFor(dir)
	if h == nil || h.closed.Load() {
		return
	}
	h.hooks.OnError(err)
}

type fakeHandle struct {
	dir     string
	hooks   dirwatch.Hooks
	enabled atomic.Bool
	closed  atomic.Bool
}

func (h *fakeHandle) SetEnabled(enabled bool) { h.enabled.Store(enabled) }
func (h *fakeHandle) Enabled() bool           { return h.enabled.Load() }
func (h *fakeHandle) Dir() string             { return h.dir }

func (h *fakeHandle) Close() error {
	h.closed.Store(true)
	h.enabled.Store(false)
	return nil
}
