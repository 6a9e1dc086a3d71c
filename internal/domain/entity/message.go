package entity

import "time"

// Message is one chat line. The ID is server-assigned; messages are only
// displayed after the backend acknowledged the write, so there is no
// optimistic/unconfirmed state. Immutable once created.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}
