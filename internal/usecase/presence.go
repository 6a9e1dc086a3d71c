package usecase

import "sync"

// PresenceTracker maintains the set of currently-online user IDs from
// push events plus the initial contact-list snapshot. Membership reflects
// whichever event arrived last per user; there is no ordering protocol
// between a bulk seed and later push events.
type PresenceTracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{online: make(map[string]struct{})}
}

// MarkOnline is idempotent: marking an already-online user is a no-op.
func (p *PresenceTracker) MarkOnline(userID string) {
	if userID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = struct{}{}
}

// MarkOffline is idempotent: removing an absent user is a no-op.
func (p *PresenceTracker) MarkOffline(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
}

func (p *PresenceTracker) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[userID]
	return ok
}

// BulkSeed replaces the entire online set. Used once per contact-list
// load, built from the isOnline flag of every loaded contact.
func (p *PresenceTracker) BulkSeed(userIDs []string) {
	next := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			next[id] = struct{}{}
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = next
}

func (p *PresenceTracker) OnlineCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.online)
}
