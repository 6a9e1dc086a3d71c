package entity

import "time"

const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// Contact is a counterpart in a 1:1 conversation, cached locally with
// presence and unread metadata. IsOnline is derived state and is never
// persisted; it is recomputed from presence events on every load.
type Contact struct {
	ID              string     `json:"id"`
	DisplayName     string     `json:"displayName"`
	RoleTag         string     `json:"roleTag,omitempty"`
	AvatarURL       string     `json:"avatarUrl,omitempty"`
	IsOnline        bool       `json:"isOnline"`
	LastMessage     string     `json:"lastMessage,omitempty"`
	LastMessageTime *time.Time `json:"lastMessageTime,omitempty"`
	UnreadCount     int        `json:"unreadCount"`
}
