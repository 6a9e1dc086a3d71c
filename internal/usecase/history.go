package usecase

import (
	"sync"

	"salonlink/internal/domain/entity"
)

// MessageCache is the in-memory message log for the active conversation.
// Switching contacts is a wholesale replace, never an incremental merge,
// and display order is insertion order: the backend returns history
// oldest-first and live messages append as they arrive.
type MessageCache struct {
	mu       sync.Mutex
	messages []entity.Message
}

func NewMessageCache() *MessageCache {
	return &MessageCache{}
}

func (c *MessageCache) Replace(messages []entity.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append([]entity.Message(nil), messages...)
}

func (c *MessageCache) Append(m entity.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
}

func (c *MessageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

func (c *MessageCache) Messages() []entity.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.Message(nil), c.messages...)
}

func (c *MessageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}
