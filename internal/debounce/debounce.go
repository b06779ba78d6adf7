// Package debounce suppresses repeated notifications for the same file
// within a configured time window.
package debounce

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultInterval is the default suppression window.
	DefaultInterval = 150 * time.Millisecond

	// DefaultCapacity bounds the number of tracked paths. Entries are
	// dropped when their file is unregistered; the LRU cap is a second
	// guard so the map can never outgrow the watch set by much.
	DefaultCapacity = 4096
)

// Tracker keeps the last-seen timestamp per file path and decides
// whether an incoming event should be emitted or suppressed.
//
// The timestamp is advanced on every call, accepted or not, so a rapid
// burst keeps extending the suppression window instead of letting every
// Nth event through on a clock-aligned schedule.
type Tracker struct {
	interval atomic.Int64 // time.Duration in nanoseconds

	mu       sync.Mutex
	lastSeen *lru.Cache[string, time.Time]
}

// NewTracker creates a Tracker with the given suppression interval.
// Non-positive intervals fall back to DefaultInterval.
func NewTracker(interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}

	// lru.New only fails on non-positive size.
	cache, _ := lru.New[string, time.Time](DefaultCapacity)

	t := &Tracker{lastSeen: cache}
	t.interval.Store(int64(interval))
	return t
}

// Interval returns the current suppression window.
func (t *Tracker) Interval() time.Duration {
	return time.Duration(t.interval.Load())
}

// SetInterval updates the suppression window. Takes effect for the
// next event; in-flight decisions use the previous value.
func (t *Tracker) SetInterval(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t.interval.Store(int64(interval))
}

// ShouldEmit reports whether an event for path at time now should be
// delivered. The last-seen timestamp is updated unconditionally.
func (t *Tracker) ShouldEmit(path string, now time.Time) bool {
	key := strings.ToLower(path)
	interval := t.Interval()

	t.mu.Lock()
	defer t.mu.Unlock()

	last, seen := t.lastSeen.Get(key)
	t.lastSeen.Add(key, now)

	if !seen {
		return true
	}
	return now.Sub(last) >= interval
}

// Forget drops the entry for a path. Called on unregistration so the
// tracker never grows beyond the live watch set.
func (t *Tracker) Forget(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen.Remove(strings.ToLower(path))
}

// Contains reports whether a path currently has a tracked timestamp.
func (t *Tracker) Contains(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen.Contains(strings.ToLower(path))
}

// Reset drops all entries.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen.Purge()
}

// Len returns the number of tracked paths.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen.Len()
}
