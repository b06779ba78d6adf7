package dirwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	path string
	op   Op
}

func openCollector(t *testing.T, dir string) (Handle, <-chan received) {
	t.Helper()
	events := make(chan received, 64)
	h, err := NewOpener().Open(dir, Hooks{
		OnChange: func(path string, op Op) {
			events <- received{path: path, op: op}
		},
		OnRename: func(oldPath, _ string) {
			events <- received{path: oldPath, op: OpRenamed}
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h, events
}

func waitFor(t *testing.T, events <-chan received, want Op, path string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.op == want && ev.path == path {
				return
			}
			// Editors and filesystems emit extra events; skip them.
		case <-deadline:
			t.Fatalf("timed out waiting for %s on %s", want, path)
		}
	}
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := NewOpener().Open(filepath.Join(t.TempDir(), "missing"), Hooks{})
	assert.Error(t, err)
}

func TestHandle_DeliversCreateAndWrite(t *testing.T) {
	// Given: an enabled handle on a temp directory
	dir := t.TempDir()
	h, events := openCollector(t, dir)
	h.SetEnabled(true)

	// When: creating and writing a file
	path := filepath.Join(dir, "x.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))
	waitFor(t, events, OpCreated, path)

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
	waitFor(t, events, OpModified, path)
}

func TestHandle_DeliversDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	h, events := openCollector(t, dir)
	h.SetEnabled(true)

	require.NoError(t, os.Remove(path))
	waitFor(t, events, OpDeleted, path)
}

func TestHandle_DisabledDropsEvents(t *testing.T) {
	// Given: a handle that was never enabled
	dir := t.TempDir()
	_, events := openCollector(t, dir)

	// When: changing the directory
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.txt"), []byte("one"), 0o644))

	// Then: nothing is delivered
	select {
	case ev := <-events:
		t.Fatalf("unexpected event while disabled: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestHandle_CloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	h, _ := openCollector(t, dir)

	require.NoError(t, h.Close())
	assert.NoError(t, h.Close())
	assert.False(t, h.Enabled())
}

func TestOp_String(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpModified, "MODIFIED"},
		{OpCreated, "CREATED"},
		{OpDeleted, "DELETED"},
		{OpRenamed, "RENAMED"},
		{Op(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
}
