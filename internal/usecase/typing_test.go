package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type typingRecorder struct {
	mu    sync.Mutex
	emits []struct {
		contactID string
		isTyping  bool
	}
}

func (r *typingRecorder) emit(contactID string, isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emits = append(r.emits, struct {
		contactID string
		isTyping  bool
	}{contactID, isTyping})
}

func (r *typingRecorder) stops(contactID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.emits {
		if e.contactID == contactID && !e.isTyping {
			n++
		}
	}
	return n
}

func (r *typingRecorder) starts(contactID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.emits {
		if e.contactID == contactID && e.isTyping {
			n++
		}
	}
	return n
}

func TestTypistEmitsStopExactlyOnceAfterIdle(t *testing.T) {
	rec := &typingRecorder{}
	typist := NewTypist(30*time.Millisecond, rec.emit)

	typist.Keystroke("u1")

	require.Eventually(t, func() bool { return rec.stops("u1") == 1 }, time.Second, 5*time.Millisecond)

	// No further stop after the timer already fired.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, rec.stops("u1"))
	assert.Equal(t, 1, rec.starts("u1"))

	// A later Stop finds no armed timer and stays silent.
	typist.Stop("u1")
	assert.Equal(t, 1, rec.stops("u1"))
}

func TestTypistKeystrokeRearmsIdleTimer(t *testing.T) {
	rec := &typingRecorder{}
	typist := NewTypist(60*time.Millisecond, rec.emit)

	typist.Keystroke("u1")
	time.Sleep(30 * time.Millisecond)
	typist.Keystroke("u1")
	time.Sleep(30 * time.Millisecond)

	// 60ms since the first keystroke but only 30ms since the second: the
	// timer was re-armed, no stop yet.
	assert.Equal(t, 0, rec.stops("u1"))

	require.Eventually(t, func() bool { return rec.stops("u1") == 1 }, time.Second, 5*time.Millisecond)
}

func TestTypistStopOnSendCancelsTimer(t *testing.T) {
	rec := &typingRecorder{}
	typist := NewTypist(50*time.Millisecond, rec.emit)

	typist.Keystroke("u1")
	typist.Stop("u1")

	assert.Equal(t, 1, rec.stops("u1"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.stops("u1"))
}

func TestTypistStartEmitsAreThrottled(t *testing.T) {
	rec := &typingRecorder{}
	typist := NewTypist(time.Second, rec.emit)

	for i := 0; i < 10; i++ {
		typist.Keystroke("u1")
	}

	assert.Equal(t, 1, rec.starts("u1"))
	typist.Reset()
}

func TestTypistTimersIndependentPerContact(t *testing.T) {
	rec := &typingRecorder{}
	typist := NewTypist(40*time.Millisecond, rec.emit)

	typist.Keystroke("u1")
	typist.Keystroke("u2")
	typist.Stop("u1")

	assert.Equal(t, 1, rec.stops("u1"))
	assert.Equal(t, 0, rec.stops("u2"))

	require.Eventually(t, func() bool { return rec.stops("u2") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.stops("u1"))
}

func TestTypistCancelIsSilent(t *testing.T) {
	rec := &typingRecorder{}
	typist := NewTypist(30*time.Millisecond, rec.emit)

	typist.Keystroke("u1")
	typist.Cancel("u1")

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, rec.stops("u1"))
}

func TestTypingTrackerSetAndClear(t *testing.T) {
	tracker := NewTypingTracker(0)

	tracker.SetTyping("u1", "Alice")
	name, ok := tracker.IsTyping("u1")
	require.True(t, ok)
	assert.Equal(t, "Alice", name)

	tracker.ClearTyping("u1")
	_, ok = tracker.IsTyping("u1")
	assert.False(t, ok)
}

func TestTypingTrackerDefensiveExpiry(t *testing.T) {
	tracker := NewTypingTracker(40 * time.Millisecond)

	tracker.SetTyping("u1", "Alice")
	_, ok := tracker.IsTyping("u1")
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok := tracker.IsTyping("u1")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestTypingTrackerSetResetsExpiry(t *testing.T) {
	tracker := NewTypingTracker(60 * time.Millisecond)

	tracker.SetTyping("u1", "Alice")
	time.Sleep(30 * time.Millisecond)
	tracker.SetTyping("u1", "Alice")
	time.Sleep(30 * time.Millisecond)

	_, ok := tracker.IsTyping("u1")
	assert.True(t, ok)
}
