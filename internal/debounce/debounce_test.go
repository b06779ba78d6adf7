package debounce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldEmit_FirstEventAccepted(t *testing.T) {
	// Given: a fresh tracker
	tr := NewTracker(150 * time.Millisecond)

	// Then: the first event for a path is always accepted
	assert.True(t, tr.ShouldEmit("/a/x.txt", time.Now()))
}

func TestShouldEmit_SuppressesWithinWindow(t *testing.T) {
	// Given: a 150ms window and an accepted event at t0
	tr := NewTracker(150 * time.Millisecond)
	t0 := time.Now()
	assert.True(t, tr.ShouldEmit("/a/x.txt", t0))

	// Then: an event 100ms later is suppressed
	assert.False(t, tr.ShouldEmit("/a/x.txt", t0.Add(100*time.Millisecond)))

	// And: an event 200ms after t0 is accepted when nothing intervened
	tr2 := NewTracker(150 * time.Millisecond)
	assert.True(t, tr2.ShouldEmit("/a/x.txt", t0))
	assert.True(t, tr2.ShouldEmit("/a/x.txt", t0.Add(200*time.Millisecond)))
}

func TestShouldEmit_SuppressedEventExtendsWindow(t *testing.T) {
	// Given: events at t0 and t0+100ms (second suppressed)
	tr := NewTracker(150 * time.Millisecond)
	t0 := time.Now()
	assert.True(t, tr.ShouldEmit("/a/x.txt", t0))
	assert.False(t, tr.ShouldEmit("/a/x.txt", t0.Add(100*time.Millisecond)))

	// Then: an event at t0+200ms is still suppressed, because the
	// suppressed event advanced the window, even though it is more
	// than one interval after t0
	assert.False(t, tr.ShouldEmit("/a/x.txt", t0.Add(200*time.Millisecond)))

	// And: waiting a full interval after the last event is accepted
	assert.True(t, tr.ShouldEmit("/a/x.txt", t0.Add(360*time.Millisecond)))
}

func TestShouldEmit_PathsAreIndependent(t *testing.T) {
	tr := NewTracker(150 * time.Millisecond)
	t0 := time.Now()

	assert.True(t, tr.ShouldEmit("/a/x.txt", t0))
	assert.True(t, tr.ShouldEmit("/a/y.txt", t0))
}

func TestShouldEmit_CaseInsensitive(t *testing.T) {
	tr := NewTracker(150 * time.Millisecond)
	t0 := time.Now()

	assert.True(t, tr.ShouldEmit("/a/X.TXT", t0))
	assert.False(t, tr.ShouldEmit("/a/x.txt", t0.Add(50*time.Millisecond)))
}

func TestForget(t *testing.T) {
	// Given: a tracked path
	tr := NewTracker(150 * time.Millisecond)
	t0 := time.Now()
	assert.True(t, tr.ShouldEmit("/a/x.txt", t0))
	assert.True(t, tr.Contains("/a/x.txt"))

	// When: forgetting it
	tr.Forget("/a/x.txt")

	// Then: the entry is gone and the next event is a fresh first event
	assert.False(t, tr.Contains("/a/x.txt"))
	assert.True(t, tr.ShouldEmit("/a/x.txt", t0.Add(time.Millisecond)))
}

func TestSetInterval(t *testing.T) {
	// Given: a tracker with a long window
	tr := NewTracker(time.Hour)
	t0 := time.Now()
	assert.True(t, tr.ShouldEmit("/a/x.txt", t0))

	// When: shrinking the window at runtime
	tr.SetInterval(10 * time.Millisecond)

	// Then: the new window applies
	assert.Equal(t, 10*time.Millisecond, tr.Interval())
	assert.True(t, tr.ShouldEmit("/a/x.txt", t0.Add(20*time.Millisecond)))
}

func TestNewTracker_DefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultInterval, NewTracker(0).Interval())
	assert.Equal(t, DefaultInterval, NewTracker(-time.Second).Interval())
}

func TestReset(t *testing.T) {
	tr := NewTracker(150 * time.Millisecond)
	tr.ShouldEmit("/a/x.txt", time.Now())
	tr.ShouldEmit("/a/y.txt", time.Now())

	tr.Reset()

	assert.Zero(t, tr.Len())
}
