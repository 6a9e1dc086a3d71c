// Package protocol defines the socket event vocabulary as a closed set of
// typed payloads. Frames are JSON envelopes of the form
// {"type": ..., "data": ..., "timestamp": ...}; decoding validates payload
// shape so malformed events can be rejected at the transport boundary
// instead of leaking partially-filled structs into session state.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventRegister       = "register"
	EventReceiveMessage = "receiveMessage"
	EventUserOnline     = "userOnline"
	EventUserOffline    = "userOffline"
	EventUserTyping     = "userTyping"
	EventSendMessage    = "sendMessage"
	EventTyping         = "typing"
	EventNotification   = "notification"
)

type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// Event is implemented by every payload that can cross the socket.
type Event interface {
	EventType() string
}

// Register associates the socket with the local user for targeted delivery.
// Emitted once on every successful connect, including reconnects.
type Register struct {
	UserID string `json:"userId"`
}

func (Register) EventType() string { return EventRegister }

type ReceiveMessage struct {
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

func (ReceiveMessage) EventType() string { return EventReceiveMessage }

type UserOnline struct {
	UserID string `json:"userId"`
}

func (UserOnline) EventType() string { return EventUserOnline }

type UserOffline struct {
	UserID string `json:"userId"`
}

func (UserOffline) EventType() string { return EventUserOffline }

type UserTyping struct {
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	IsTyping   bool   `json:"isTyping"`
}

func (UserTyping) EventType() string { return EventUserTyping }

type SendMessage struct {
	ReceiverID string `json:"receiverId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Message    string `json:"message"`
}

func (SendMessage) EventType() string { return EventSendMessage }

type Typing struct {
	ReceiverID string `json:"receiverId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	IsTyping   bool   `json:"isTyping"`
}

func (Typing) EventType() string { return EventTyping }

// Notification is the dashboard push channel riding on the same socket.
type Notification struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (Notification) EventType() string { return EventNotification }

// Encode wraps an event payload in the wire envelope.
func Encode(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.EventType(), err)
	}

	return json.Marshal(Envelope{
		Type:      e.EventType(),
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Decode parses a wire frame into a typed event, validating required
// payload fields. Unknown event types and malformed payloads are errors;
// callers are expected to log and drop them.
func Decode(frame []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case EventRegister:
		var ev Register
		if err := unmarshalData(env, &ev); err != nil {
			return nil, err
		}
		if ev.UserID == "" {
			return nil, fmt.Errorf("%s: missing userId", env.Type)
		}
		return ev, nil

	case EventReceiveMessage:
		var ev ReceiveMessage
		if err := unmarshalData(env, &ev); err != nil {
			return nil, err
		}
		if ev.SenderID == "" || ev.Message == "" {
			return nil, fmt.Errorf("%s: missing senderId or message", env.Type)
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now().UTC()
		}
		return ev, nil

	case EventUserOnline:
		var ev UserOnline
		if err := unmarshalData(env, &ev); err != nil {
			return nil, err
		}
		if ev.UserID == "" {
			return nil, fmt.Errorf("%s: missing userId", env.Type)
		}
		return ev, nil

	case EventUserOffline:
		var ev UserOffline
		if err := unmarshalData(env, &ev); err != nil {
			return nil, err
		}
		if ev.UserID == "" {
			return nil, fmt.Errorf("%s: missing userId", env.Type)
		}
		return ev, nil

	case EventUserTyping:
		var ev UserTyping
		if err := unmarshalData(env, &ev); err != nil {
			return nil, err
		}
		if ev.SenderID == "" {
			return nil, fmt.Errorf("%s: missing senderId", env.Type)
		}
		return ev, nil

	case EventSendMessage:
		var ev SendMessage
		if err := unmarshalData(env, &ev); err != nil {
			return nil, err
		}
		if ev.ReceiverID == "" || ev.SenderID == "" || ev.Message == "" {
			return nil, fmt.Errorf("%s: missing required fields", env.Type)
		}
		return ev, nil

	case EventTyping:
		var ev Typing
		if err := unmarshalData(env, &ev); err != nil {
			return nil, err
		}
		if ev.ReceiverID == "" || ev.SenderID == "" {
			return nil, fmt.Errorf("%s: missing receiverId or senderId", env.Type)
		}
		return ev, nil

	case EventNotification:
		var ev Notification
		if err := unmarshalData(env, &ev); err != nil {
			return nil, err
		}
		if ev.Body == "" && ev.Title == "" {
			return nil, fmt.Errorf("%s: empty notification", env.Type)
		}
		return ev, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}

func unmarshalData(env Envelope, out any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%s: missing data", env.Type)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", env.Type, err)
	}
	return nil
}
