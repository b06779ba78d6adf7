// Package dirwatch provides the native per-directory change
// notification primitive. A handle watches a single directory,
// non-recursively, and reports raw create/modify/delete/rename events
// plus backend errors through callbacks.
//
// The production implementation is fsnotify-backed; the Opener
// interface exists so the watcher core can be driven by a fake in
// tests.
package dirwatch

// Op is the kind of raw change reported for a path.
type Op int

const (
	// OpModified indicates a file's contents changed.
	OpModified Op = iota
	// OpCreated indicates a file appeared in the directory.
	OpCreated
	// OpDeleted indicates a file was removed from the directory.
	OpDeleted
	// OpRenamed indicates a file was renamed.
	OpRenamed
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpModified:
		return "MODIFIED"
	case OpCreated:
		return "CREATED"
	case OpDeleted:
		return "DELETED"
	case OpRenamed:
		return "RENAMED"
	default:
		return "UNKNOWN"
	}
}

// Hooks are the callbacks a handle delivers raw notifications to.
// They are invoked from the handle's delivery goroutine and must not
// block for long. Closing a handle from inside its own hooks is safe.
type Hooks struct {
	// OnChange reports a modified, created, or deleted path.
	OnChange func(path string, op Op)

	// OnRename reports a rename. Either side may be empty when the
	// backend only observed one half of the rename.
	OnRename func(oldPath, newPath string)

	// OnError reports a backend failure (e.g. an event buffer
	// overflow) indicating delivery may be unreliable.
	OnError func(err error)
}

// Handle is an active native watch on one directory.
type Handle interface {
	// SetEnabled toggles event delivery. A disabled handle keeps its
	// OS resources but drops events instead of invoking hooks.
	SetEnabled(enabled bool)

	// Enabled reports whether events are being delivered.
	Enabled() bool

	// Dir returns the watched directory.
	Dir() string

	// Close releases the native watch. Idempotent.
	Close() error
}

// Opener creates native watch handles. Handles start disabled; the
// caller applies the current running mode after creation.
type Opener interface {
	Open(dir string, hooks Hooks) (Handle, error)
}
