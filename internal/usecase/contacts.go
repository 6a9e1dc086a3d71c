package usecase

import (
	"sort"
	"sync"
	"time"

	"salonlink/internal/domain/entity"
)

// ContactList holds the ordered conversation list: sorted by most recent
// activity, unread counters per contact plus a maintained aggregate, and
// the active selection. The aggregate is recomputed on every bulk
// operation rather than adjusted incrementally, so it can never drift
// from the sum of the per-contact counters.
type ContactList struct {
	mu          sync.Mutex
	contacts    []*entity.Contact
	index       map[string]*entity.Contact
	selected    string
	unreadTotal int
}

func NewContactList() *ContactList {
	return &ContactList{index: make(map[string]*entity.Contact)}
}

// Replace swaps in a freshly loaded contact list wholesale. The selection
// is kept only if the selected contact survived the reload.
func (l *ContactList) Replace(contacts []entity.Contact) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.contacts = make([]*entity.Contact, 0, len(contacts))
	l.index = make(map[string]*entity.Contact, len(contacts))
	for i := range contacts {
		c := contacts[i]
		if c.ID == "" {
			continue
		}
		if _, dup := l.index[c.ID]; dup {
			continue
		}
		l.contacts = append(l.contacts, &c)
		l.index[c.ID] = &c
	}

	if l.selected != "" {
		if _, ok := l.index[l.selected]; !ok {
			l.selected = ""
		}
	}

	l.resortLocked()
	l.recountLocked()
}

// Contacts returns a snapshot copy in display order.
func (l *ContactList) Contacts() []entity.Contact {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]entity.Contact, len(l.contacts))
	for i, c := range l.contacts {
		out[i] = *c
	}
	return out
}

func (l *ContactList) Get(id string) (entity.Contact, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.index[id]
	if !ok {
		return entity.Contact{}, false
	}
	return *c, true
}

func (l *ContactList) Selected() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selected
}

// Select marks a contact as active and resets its unread counter. Resetting
// is idempotent, so selecting a contact whose messages were already
// absorbed in-conversation never drives the counter negative or double
// counts.
func (l *ContactList) Select(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.index[id]
	if !ok {
		return false
	}
	l.selected = id
	c.UnreadCount = 0
	l.recountLocked()
	return true
}

func (l *ContactList) Deselect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = ""
}

// Delete removes the contact locally. Reports whether it was the active
// selection so the caller can clear the history cache.
func (l *ContactList) Delete(id string) (wasSelected, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[id]; !ok {
		return false, false
	}
	delete(l.index, id)
	for i, c := range l.contacts {
		if c.ID == id {
			l.contacts = append(l.contacts[:i], l.contacts[i+1:]...)
			break
		}
	}
	wasSelected = l.selected == id
	if wasSelected {
		l.selected = ""
	}
	l.recountLocked()
	return wasSelected, true
}

// Ensure inserts a placeholder contact for a previously-unknown sender.
// Existing contacts only pick up a display name they were missing.
func (l *ContactList) Ensure(id, displayName string) {
	if id == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.index[id]; ok {
		if c.DisplayName == "" {
			c.DisplayName = displayName
		}
		return
	}
	c := &entity.Contact{ID: id, DisplayName: displayName}
	l.contacts = append(l.contacts, c)
	l.index[id] = c
}

// IncrementUnread bumps one contact's counter and the aggregate together.
func (l *ContactList) IncrementUnread(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.index[id]
	if !ok {
		return
	}
	c.UnreadCount++
	l.unreadTotal++
}

// RecordActivity updates a contact's last-message fields and re-sorts the
// list by recency. The sort is stable: contacts that never had a message
// sort after all contacts that did, keeping their relative order.
func (l *ContactList) RecordActivity(id, lastMessage string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.index[id]
	if !ok {
		return
	}
	c.LastMessage = lastMessage
	t := at
	c.LastMessageTime = &t
	l.resortLocked()
}

// ApplyPresence merges an online/offline transition into the cached flag.
func (l *ContactList) ApplyPresence(id string, online bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.index[id]; ok {
		c.IsOnline = online
	}
}

// TotalUnread is the aggregate badge count across all conversations.
func (l *ContactList) TotalUnread() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unreadTotal
}

func (l *ContactList) resortLocked() {
	sort.SliceStable(l.contacts, func(i, j int) bool {
		a, b := l.contacts[i].LastMessageTime, l.contacts[j].LastMessageTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

func (l *ContactList) recountLocked() {
	total := 0
	for _, c := range l.contacts {
		total += c.UnreadCount
	}
	l.unreadTotal = total
}
