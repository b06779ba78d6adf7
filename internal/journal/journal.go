// Package journal persists delivered change notifications to a local
// SQLite database so they survive restarts and can be inspected later.
//
// A single FileSentry process owns the journal at a time: Open takes a
// cross-process file lock next to the database and fails fast when
// another instance already holds it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	sentryerrors "github.com/filesentry/filesentry/internal/errors"
)

// Entry is one journaled notification.
type Entry struct {
	ID   int64
	Path string
	Kind string
	At   time.Time
}

// Journal is an append-only log of delivered notifications backed by
// SQLite.
type Journal struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open opens (creating if needed) the journal database at path.
// An empty path opens an in-memory journal for testing; it takes no
// file lock.
func Open(path string) (*Journal, error) {
	j := &Journal{path: path}

	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, sentryerrors.JournalError(
				fmt.Sprintf("cannot create journal directory %s", dir), err)
		}

		// Single-writer ownership across processes
		j.lock = flock.New(path + ".lock")
		acquired, err := j.lock.TryLock()
		if err != nil {
			return nil, sentryerrors.JournalError("cannot acquire journal lock", err)
		}
		if !acquired {
			return nil, sentryerrors.New(sentryerrors.ErrCodeJournalLocked,
				"journal is locked by another process", nil).
				WithDetail("path", path)
		}

		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		j.releaseLock()
		return nil, sentryerrors.JournalError("cannot open journal database", err)
	}

	// Single connection, single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			j.releaseLock()
			return nil, sentryerrors.JournalError("cannot set pragma", err)
		}
	}

	j.db = db
	if err := j.initSchema(); err != nil {
		_ = db.Close()
		j.releaseLock()
		return nil, sentryerrors.JournalError("cannot initialize journal schema", err)
	}

	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS events (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		kind TEXT NOT NULL,
		at   INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_at ON events(at);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Append records one notification. Timestamps are stored with
// nanosecond precision.
func (j *Journal) Append(ctx context.Context, path, kind string, at time.Time) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (path, kind, at) VALUES (?, ?, ?)`,
		path, kind, at.UnixNano())
	if err != nil {
		return sentryerrors.JournalError("cannot append journal entry", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, path, kind, at FROM events ORDER BY at DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, sentryerrors.JournalError("cannot query journal", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at int64
		if err := rows.Scan(&e.ID, &e.Path, &e.Kind, &at); err != nil {
			return nil, sentryerrors.JournalError("cannot scan journal entry", err)
		}
		e.At = time.Unix(0, at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, sentryerrors.JournalError("cannot read journal", err)
	}
	return entries, nil
}

// ForPath returns up to limit entries for one file path, newest first.
func (j *Journal) ForPath(ctx context.Context, path string, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, path, kind, at FROM events
		 WHERE path = ? COLLATE NOCASE
		 ORDER BY at DESC, id DESC LIMIT ?`,
		path, limit)
	if err != nil {
		return nil, sentryerrors.JournalError("cannot query journal", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at int64
		if err := rows.Scan(&e.ID, &e.Path, &e.Kind, &at); err != nil {
			return nil, sentryerrors.JournalError("cannot scan journal entry", err)
		}
		e.At = time.Unix(0, at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, sentryerrors.JournalError("cannot read journal", err)
	}
	return entries, nil
}

// Count returns the number of journaled entries.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var n int64
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	if err != nil {
		return 0, sentryerrors.JournalError("cannot count journal entries", err)
	}
	return n, nil
}

// Prune deletes entries older than the retention window and returns
// how many were removed. A zero retention keeps everything.
func (j *Journal) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention).UnixNano()
	res, err := j.db.ExecContext(ctx, `DELETE FROM events WHERE at < ?`, cutoff)
	if err != nil {
		return 0, sentryerrors.JournalError("cannot prune journal", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Path returns the database path, empty for in-memory journals.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database and releases the process lock.
func (j *Journal) Close() error {
	var closeErr error
	if j.db != nil {
		closeErr = j.db.Close()
	}
	j.releaseLock()
	if closeErr != nil {
		return sentryerrors.JournalError("cannot close journal", closeErr)
	}
	return nil
}

func (j *Journal) releaseLock() {
	if j.lock != nil {
		_ = j.lock.Unlock()
	}
}
