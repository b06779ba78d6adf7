package dirwatch

import (
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// FsnotifyOpener opens fsnotify-backed directory watches. Each handle
// owns its own fsnotify.Watcher so that enable/destroy/rebuild of one
// directory never disturbs another.
type FsnotifyOpener struct{}

// NewOpener creates the production fsnotify-backed Opener.
func NewOpener() *FsnotifyOpener {
	return &FsnotifyOpener{}
}

// Open starts watching dir. The returned handle is disabled until
// SetEnabled(true).
func (o *FsnotifyOpener) Open(dir string, hooks Hooks) (Handle, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	h := &fsnotifyHandle{
		dir:     dir,
		hooks:   hooks,
		watcher: watcher,
	}
	go h.run()
	return h, nil
}

type fsnotifyHandle struct {
	dir     string
	hooks   Hooks
	watcher *fsnotify.Watcher

	enabled   atomic.Bool
	closeOnce sync.Once
}

func (h *fsnotifyHandle) SetEnabled(enabled bool) {
	h.enabled.Store(enabled)
}

func (h *fsnotifyHandle) Enabled() bool {
	return h.enabled.Load()
}

func (h *fsnotifyHandle) Dir() string {
	return h.dir
}

// Close releases the fsnotify watcher. The delivery goroutine exits
// when the event channels close.
func (h *fsnotifyHandle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.enabled.Store(false)
		err = h.watcher.Close()
	})
	return err
}

// run pumps fsnotify events into the hooks. Disabled handles keep
// draining the channels so the backend never blocks, but invoke no
// hooks.
func (h *fsnotifyHandle) run() {
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if !h.enabled.Load() {
				continue
			}
			h.dispatch(event)
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			// Errors are reported even while disabled: an overflow
			// means delivery is unreliable regardless of mode, and
			// recovery preserves the mode it finds.
			if h.hooks.OnError != nil {
				h.hooks.OnError(err)
			}
		}
	}
}

func (h *fsnotifyHandle) dispatch(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Rename != 0:
		// fsnotify reports a rename against the old name only; the
		// new name arrives as a separate Create in its directory.
		if h.hooks.OnRename != nil {
			h.hooks.OnRename(event.Name, "")
		}
	case event.Op&fsnotify.Create != 0:
		if h.hooks.OnChange != nil {
			h.hooks.OnChange(event.Name, OpCreated)
		}
	case event.Op&fsnotify.Write != 0:
		if h.hooks.OnChange != nil {
			h.hooks.OnChange(event.Name, OpModified)
		}
	case event.Op&fsnotify.Remove != 0:
		if h.hooks.OnChange != nil {
			h.hooks.OnChange(event.Name, OpDeleted)
		}
	default:
		// Chmod and unknown ops are dropped.
	}
}
