// Package registry tracks which files are being watched, grouped by
// parent directory. It is the authoritative source for watch topology:
// one native handle exists per directory with at least one tracked file.
//
// All lookups are case-insensitive over canonicalized absolute paths.
package registry

import (
	"path/filepath"
	"strings"
	"sync"

	sentryerrors "github.com/filesentry/filesentry/internal/errors"
)

// Entry identifies a watched file by its canonical absolute path,
// split into parent directory and file name.
type Entry struct {
	// Path is the canonical absolute file path.
	Path string
	// Dir is the canonical absolute parent directory.
	Dir string
	// Name is the file name component.
	Name string
}

// DirKey returns the case-insensitive lookup key for the directory.
func (e Entry) DirKey() string {
	return strings.ToLower(e.Dir)
}

// Canonicalize resolves a path to an absolute, cleaned Entry.
// Fails with an invalid-path error when the path is blank or has no
// resolvable directory + file name split (e.g. the filesystem root).
func Canonicalize(path string) (Entry, error) {
	if strings.TrimSpace(path) == "" {
		return Entry{}, sentryerrors.New(sentryerrors.ErrCodeEmptyPath, "path is empty", nil)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Entry{}, sentryerrors.InvalidPath("cannot resolve absolute path", err).
			WithDetail("path", path)
	}

	dir := filepath.Dir(abs)
	name := filepath.Base(abs)
	if name == "." || name == string(filepath.Separator) || dir == abs {
		return Entry{}, sentryerrors.InvalidPath("path has no file name component", nil).
			WithDetail("path", path)
	}

	return Entry{Path: abs, Dir: dir, Name: name}, nil
}

// dirEntry is the per-directory file set. The directory's original
// canonical casing is kept for handle creation and snapshots.
type dirEntry struct {
	dir   string
	files map[string]struct{}
}

// Registry maps directories to the set of watched file names within
// them. Safe for concurrent use: delivery goroutines read while
// application goroutines mutate.
type Registry struct {
	mu   sync.RWMutex
	dirs map[string]*dirEntry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{dirs: make(map[string]*dirEntry)}
}

// Register adds a file to its directory's set.
// Returns the canonical entry and whether this was the first file in
// the directory (the caller must then create a native handle).
// Registering an already-registered file is a no-op success.
func (r *Registry) Register(path string) (Entry, bool, error) {
	entry, err := Canonicalize(path)
	if err != nil {
		return Entry{}, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	de, ok := r.dirs[entry.DirKey()]
	if !ok {
		de = &dirEntry{dir: entry.Dir, files: make(map[string]struct{})}
		r.dirs[entry.DirKey()] = de
	}
	de.files[strings.ToLower(entry.Name)] = struct{}{}

	return entry, !ok, nil
}

// Unregister removes a file from its directory's set.
// removed reports whether the file was previously registered; last
// reports whether the directory's set became empty (the caller must
// then release the native handle). A directory with no files never
// survives in the map.
func (r *Registry) Unregister(path string) (entry Entry, removed bool, last bool, err error) {
	entry, err = Canonicalize(path)
	if err != nil {
		return Entry{}, false, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	de, ok := r.dirs[entry.DirKey()]
	if !ok {
		return entry, false, false, nil
	}

	nameKey := strings.ToLower(entry.Name)
	if _, ok := de.files[nameKey]; !ok {
		return entry, false, false, nil
	}

	delete(de.files, nameKey)
	if len(de.files) == 0 {
		delete(r.dirs, entry.DirKey())
		return entry, true, true, nil
	}
	return entry, true, false, nil
}

// Contains reports whether the given (directory, file name) pair is
// registered. Comparison is case-insensitive.
func (r *Registry) Contains(dir, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	de, ok := r.dirs[strings.ToLower(dir)]
	if !ok {
		return false
	}
	_, ok = de.files[strings.ToLower(name)]
	return ok
}

// Directories returns a consistent snapshot of all directories that
// currently have at least one watched file.
func (r *Registry) Directories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dirs := make([]string, 0, len(r.dirs))
	for _, de := range r.dirs {
		dirs = append(dirs, de.dir)
	}
	return dirs
}

// FileCount returns the number of watched files in a directory.
func (r *Registry) FileCount(dir string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	de, ok := r.dirs[strings.ToLower(dir)]
	if !ok {
		return 0
	}
	return len(de.files)
}

// Len returns the total number of watched files.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, de := range r.dirs {
		total += len(de.files)
	}
	return total
}

// Clear removes every registration and returns the directories that
// were tracked, so the caller can release their handles.
func (r *Registry) Clear() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	dirs := make([]string, 0, len(r.dirs))
	for _, de := range r.dirs {
		dirs = append(dirs, de.dir)
	}
	r.dirs = make(map[string]*dirEntry)
	return dirs
}
