package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"salonlink/internal/domain/entity"
	"salonlink/internal/protocol"
	apperrors "salonlink/pkg/errors"
	"salonlink/pkg/logger"
)

// Backend is the REST collaborator: the durable side of every write and
// the source of truth for contacts and history.
type Backend interface {
	ListContacts(ctx context.Context) ([]entity.Contact, error)
	History(ctx context.Context, contactID string, limit, skip int) ([]entity.Message, error)
	Send(ctx context.Context, receiverID, body string) (*entity.Message, error)
	MarkRead(ctx context.Context, senderID string) error
	DeleteContact(ctx context.Context, contactID string) error
}

// Transport is the live socket: best-effort, low-latency peer delivery.
type Transport interface {
	Emit(protocol.Event) error
	Connected() bool
	Close() error
}

// SessionParams carries the explicit dependencies for a ChatSession.
type SessionParams struct {
	UserID      string
	DisplayName string
	Backend     Backend

	// TypingIdle is the sender-side keystroke idle window before a
	// "stopped typing" signal goes out. TypingExpiry is the defensive
	// receiver-side indicator lifetime.
	TypingIdle   time.Duration
	TypingExpiry time.Duration

	HistoryLimit int
}

// ChatSession is the session-scoped chat service: constructed at login,
// closed at logout. It reconciles REST responses and socket push events
// into one consistent local view of the user's conversations. All state
// lives behind the component trackers; the session itself only sequences
// the merge order.
type ChatSession struct {
	userID       string
	displayName  string
	backend      Backend
	historyLimit int

	presence *PresenceTracker
	typing   *TypingTracker
	typist   *Typist
	contacts *ContactList
	history  *MessageCache

	mu         sync.Mutex
	transport  Transport
	loading    bool
	notifySubs []func(protocol.Notification)
}

func NewChatSession(p SessionParams) *ChatSession {
	if p.HistoryLimit <= 0 {
		p.HistoryLimit = 50
	}

	s := &ChatSession{
		userID:       p.UserID,
		displayName:  p.DisplayName,
		backend:      p.Backend,
		historyLimit: p.HistoryLimit,
		presence:     NewPresenceTracker(),
		typing:       NewTypingTracker(p.TypingExpiry),
		contacts:     NewContactList(),
		history:      NewMessageCache(),
	}
	s.typist = NewTypist(p.TypingIdle, s.emitTyping)
	return s
}

// AttachTransport hands the session its socket once dialed. The transport
// is dialed with the session as its event sink, so construction happens
// in two steps.
func (s *ChatSession) AttachTransport(t Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport = t
}

// Refresh loads the contact list and seeds presence from the isOnline
// flags. A failed load resolves to an empty list: the UI renders an empty
// state, never a crash.
func (s *ChatSession) Refresh(ctx context.Context) {
	contacts, err := s.backend.ListContacts(ctx)
	if err != nil {
		logger.Error("contact list load failed: %v", err)
		contacts = nil
	}

	online := make([]string, 0, len(contacts))
	for _, c := range contacts {
		if c.IsOnline {
			online = append(online, c.ID)
		}
	}
	s.presence.BulkSeed(online)
	s.contacts.Replace(contacts)
}

// Select makes a contact the active conversation: wholesale history load,
// then a best-effort mark-as-read. The previous conversation's typing
// state is stopped and cleared.
func (s *ChatSession) Select(ctx context.Context, contactID string) error {
	prev := s.contacts.Selected()
	if prev != "" && prev != contactID {
		s.typist.Stop(prev)
		s.typing.ClearTyping(prev)
	}

	if !s.contacts.Select(contactID) {
		return apperrors.NotFound("contact", nil)
	}

	s.setLoading(true)
	messages, err := s.backend.History(ctx, contactID, s.historyLimit, 0)
	if err != nil {
		logger.Error("history load for %s failed: %v", contactID, err)
		messages = nil
	}
	s.history.Replace(messages)
	s.setLoading(false)

	if err := s.backend.MarkRead(ctx, contactID); err != nil {
		logger.Warn("mark-read for %s failed: %v", contactID, err)
	}
	return nil
}

// Deselect clears the active conversation and its message cache.
func (s *ChatSession) Deselect() {
	prev := s.contacts.Selected()
	if prev != "" {
		s.typist.Stop(prev)
		s.typing.ClearTyping(prev)
	}
	s.contacts.Deselect()
	s.history.Clear()
}

// Send performs the dual-path write: durable REST first, socket mirror
// second. No message is ever socket-broadcast unless the REST write
// already succeeded, so the peer can never see a message the server does
// not have. Returns false on rejection or REST failure; the caller owns
// user feedback.
func (s *ChatSession) Send(ctx context.Context, body string) bool {
	body = strings.TrimSpace(body)
	if body == "" {
		return false
	}
	receiverID := s.contacts.Selected()
	if receiverID == "" {
		return false
	}
	t := s.currentTransport()
	if t == nil || !t.Connected() {
		return false
	}

	msg, err := s.backend.Send(ctx, receiverID, body)
	if err != nil {
		logger.Error("send to %s failed: %v", receiverID, err)
		return false
	}

	s.typist.Stop(receiverID)
	s.history.Append(*msg)

	if err := t.Emit(protocol.SendMessage{
		ReceiverID: receiverID,
		SenderID:   s.userID,
		SenderName: s.displayName,
		Message:    body,
	}); err != nil {
		// The durable write already succeeded; the peer catches up on
		// its next history load.
		logger.Warn("socket mirror for message %s failed: %v", msg.ID, err)
	}

	s.contacts.RecordActivity(receiverID, body, msg.CreatedAt)
	return true
}

// Keystroke reports compose activity in the active conversation.
func (s *ChatSession) Keystroke() {
	receiverID := s.contacts.Selected()
	if receiverID == "" {
		return
	}
	if t := s.currentTransport(); t == nil || !t.Connected() {
		return
	}
	s.typist.Keystroke(receiverID)
}

// Delete removes a contact from the local list immediately, then tells
// the backend to hide the conversation. Local removal stands even if the
// backend call fails; the next full reload is authoritative.
func (s *ChatSession) Delete(ctx context.Context, contactID string) error {
	wasSelected, ok := s.contacts.Delete(contactID)
	if !ok {
		return apperrors.NotFound("contact", nil)
	}
	if wasSelected {
		s.history.Clear()
	}
	s.typist.Cancel(contactID)
	s.typing.ClearTyping(contactID)

	if err := s.backend.DeleteContact(ctx, contactID); err != nil {
		logger.Error("delete contact %s failed: %v", contactID, err)
		return err
	}
	return nil
}

// OnNotification subscribes a dashboard callback to socket-pushed
// notifications. Callbacks run on the read pump goroutine; keep them
// short.
func (s *ChatSession) OnNotification(fn func(protocol.Notification)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifySubs = append(s.notifySubs, fn)
}

// Close tears the session down: socket closed, timers cancelled.
// Idempotent.
func (s *ChatSession) Close() error {
	s.typist.Reset()
	if t := s.currentTransport(); t != nil {
		return t.Close()
	}
	return nil
}

// --- read accessors ---

func (s *ChatSession) Contacts() []entity.Contact { return s.contacts.Contacts() }

func (s *ChatSession) Messages() []entity.Message { return s.history.Messages() }

func (s *ChatSession) TotalUnread() int { return s.contacts.TotalUnread() }

func (s *ChatSession) Selected() string { return s.contacts.Selected() }

func (s *ChatSession) IsOnline(contactID string) bool { return s.presence.IsOnline(contactID) }

func (s *ChatSession) TypingName(contactID string) (string, bool) {
	return s.typing.IsTyping(contactID)
}

// Loading reports whether a history load is in flight. Advisory: Send
// does not consult it, callers disable input during loads.
func (s *ChatSession) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// --- socket event sink ---

// HandleMessage merges an inbound chat message. If it belongs to the
// active conversation it goes straight into the history cache and is
// acknowledged read; otherwise the sender's unread counter grows. Either
// way the sender bubbles to the top of the contact list.
func (s *ChatSession) HandleMessage(ev protocol.ReceiveMessage) {
	msg := entity.Message{
		SenderID:   ev.SenderID,
		SenderName: ev.SenderName,
		Body:       ev.Message,
		CreatedAt:  ev.Timestamp,
	}

	s.contacts.Ensure(ev.SenderID, ev.SenderName)

	if s.contacts.Selected() == ev.SenderID {
		s.history.Append(msg)
		go func() {
			if err := s.backend.MarkRead(context.Background(), ev.SenderID); err != nil {
				logger.Warn("mark-read for %s failed: %v", ev.SenderID, err)
			}
		}()
	} else {
		s.contacts.IncrementUnread(ev.SenderID)
	}

	s.contacts.RecordActivity(ev.SenderID, ev.Message, ev.Timestamp)
}

func (s *ChatSession) HandleUserOnline(ev protocol.UserOnline) {
	s.presence.MarkOnline(ev.UserID)
	s.contacts.ApplyPresence(ev.UserID, true)
}

func (s *ChatSession) HandleUserOffline(ev protocol.UserOffline) {
	s.presence.MarkOffline(ev.UserID)
	s.contacts.ApplyPresence(ev.UserID, false)
}

func (s *ChatSession) HandleUserTyping(ev protocol.UserTyping) {
	if ev.IsTyping {
		s.typing.SetTyping(ev.SenderID, ev.SenderName)
	} else {
		s.typing.ClearTyping(ev.SenderID)
	}
}

func (s *ChatSession) HandleNotification(ev protocol.Notification) {
	s.mu.Lock()
	subs := append(([]func(protocol.Notification))(nil), s.notifySubs...)
	s.mu.Unlock()

	logger.Debug("notification received: %s", ev.Title)
	for _, fn := range subs {
		fn(ev)
	}
}

// --- internals ---

func (s *ChatSession) currentTransport() Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport
}

func (s *ChatSession) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

func (s *ChatSession) emitTyping(contactID string, isTyping bool) {
	t := s.currentTransport()
	if t == nil {
		return
	}
	if err := t.Emit(protocol.Typing{
		ReceiverID: contactID,
		SenderID:   s.userID,
		SenderName: s.displayName,
		IsTyping:   isTyping,
	}); err != nil {
		logger.Debug("typing emit for %s failed: %v", contactID, err)
	}
}
