package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.filesentry/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".filesentry", "logs")
	}
	return filepath.Join(home, ".filesentry", "logs")
}

// DefaultLogPath returns the default watcher log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "filesentry.log")
}
