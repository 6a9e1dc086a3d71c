package usecase

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TypingTracker is the receiver side of the typing indicator: a map from
// contact ID to the display name currently typing. An entry is removed on
// an explicit stop event, when the contact is deselected, or after a
// defensive local expiry so a dropped stop event cannot pin the indicator
// forever.
type TypingTracker struct {
	mu     sync.Mutex
	expiry time.Duration
	names  map[string]string
	timers map[string]*time.Timer
}

func NewTypingTracker(expiry time.Duration) *TypingTracker {
	return &TypingTracker{
		expiry: expiry,
		names:  make(map[string]string),
		timers: make(map[string]*time.Timer),
	}
}

func (t *TypingTracker) SetTyping(contactID, displayName string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.names[contactID] = displayName
	if tm, ok := t.timers[contactID]; ok {
		tm.Stop()
		delete(t.timers, contactID)
	}
	if t.expiry > 0 {
		t.timers[contactID] = time.AfterFunc(t.expiry, func() {
			t.ClearTyping(contactID)
		})
	}
}

func (t *TypingTracker) ClearTyping(contactID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.names, contactID)
	if tm, ok := t.timers[contactID]; ok {
		tm.Stop()
		delete(t.timers, contactID)
	}
}

// IsTyping reports the display name of whoever is typing in the given
// conversation, if anyone.
func (t *TypingTracker) IsTyping(contactID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	name, ok := t.names[contactID]
	return name, ok
}

// Typist is the sender side: every keystroke arms a fresh idle timer for
// that contact, and when the timer fires a single "stopped typing" signal
// is emitted. Each contact has an independent, cancellable timer handle.
// "Started typing" emissions are throttled per contact so a burst of
// keystrokes does not flood the socket.
type Typist struct {
	mu       sync.Mutex
	idle     time.Duration
	emit     func(contactID string, isTyping bool)
	timers   map[string]*typistTimer
	limiters map[string]*rate.Limiter
}

type typistTimer struct {
	timer *time.Timer
	gen   uint64
}

func NewTypist(idle time.Duration, emit func(contactID string, isTyping bool)) *Typist {
	if idle <= 0 {
		idle = 3 * time.Second
	}
	return &Typist{
		idle:     idle,
		emit:     emit,
		timers:   make(map[string]*typistTimer),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Keystroke records compose activity for a contact. Re-arms the idle
// timer; emits a throttled "started typing" signal.
func (t *Typist) Keystroke(contactID string) {
	if contactID == "" {
		return
	}

	t.mu.Lock()
	lim, ok := t.limiters[contactID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Second), 1)
		t.limiters[contactID] = lim
	}
	allowed := lim.Allow()

	var gen uint64
	if entry, ok := t.timers[contactID]; ok {
		entry.timer.Stop()
		gen = entry.gen + 1
	}
	entry := &typistTimer{gen: gen}
	entry.timer = time.AfterFunc(t.idle, func() {
		t.expire(contactID, gen)
	})
	t.timers[contactID] = entry
	t.mu.Unlock()

	if allowed {
		t.emit(contactID, true)
	}
}

// Stop cancels the idle timer and emits the stop signal, if the user was
// typing. Called on explicit send and on contact switch.
func (t *Typist) Stop(contactID string) {
	t.mu.Lock()
	entry, ok := t.timers[contactID]
	if ok {
		entry.timer.Stop()
		delete(t.timers, contactID)
	}
	t.mu.Unlock()

	if ok {
		t.emit(contactID, false)
	}
}

// Cancel drops the timer without emitting. Used on teardown, where the
// peer session is going away anyway.
func (t *Typist) Cancel(contactID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.timers[contactID]; ok {
		entry.timer.Stop()
		delete(t.timers, contactID)
	}
}

// Reset cancels every armed timer without emitting.
func (t *Typist) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, entry := range t.timers {
		entry.timer.Stop()
		delete(t.timers, id)
	}
}

// expire fires at most once per armed timer generation; a keystroke that
// replaced the timer invalidates the old generation.
func (t *Typist) expire(contactID string, gen uint64) {
	t.mu.Lock()
	entry, ok := t.timers[contactID]
	if !ok || entry.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.timers, contactID)
	t.mu.Unlock()

	t.emit(contactID, false)
}
