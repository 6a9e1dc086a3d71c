// Package testutil hosts an in-process fake of the chat backend: the REST
// contract on an echo server plus a websocket endpoint, so the client
// stack can be exercised end to end without a real deployment.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"salonlink/internal/domain/entity"
	"salonlink/internal/protocol"
)

type Backend struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu          sync.Mutex
	contacts    []entity.Contact
	history     map[string][]entity.Message
	sendFail    bool
	sentBodies  []string
	markReads   []string
	deleted     []string
	registered  []string
	clientSent  []protocol.Event
	conn        *websocket.Conn
	connWriteMu sync.Mutex
}

func NewBackend() *Backend {
	b := &Backend{
		history:  make(map[string][]entity.Message),
		upgrader: websocket.Upgrader{},
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(b.requireToken)
	e.GET("/chat/accounts", b.handleAccounts)
	e.GET("/chat/history/:contactId", b.handleHistory)
	e.POST("/chat/send", b.handleSend)
	e.PUT("/chat/mark-read", b.handleMarkRead)
	e.DELETE("/chat/contact/:contactId", b.handleDelete)
	e.GET("/ws", b.handleSocket)

	b.server = httptest.NewServer(e)
	return b
}

func (b *Backend) Close() {
	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.mu.Unlock()
	b.server.Close()
}

// URL is the REST base URL.
func (b *Backend) URL() string { return b.server.URL }

// SocketURL is the websocket endpoint.
func (b *Backend) SocketURL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http") + "/ws"
}

// Token builds a signed token for userID, accepted by the fake and
// parseable by the client's fail-closed inspection.
func Token(userID string) string {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("testutil"))
	if err != nil {
		panic(err)
	}
	return signed
}

// ExpiredToken builds a token that is already past its expiry.
func ExpiredToken(userID string) string {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("testutil"))
	if err != nil {
		panic(err)
	}
	return signed
}

// --- fixture setup ---

func (b *Backend) SetContacts(contacts []entity.Contact) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contacts = contacts
}

func (b *Backend) SetHistory(contactID string, messages []entity.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history[contactID] = messages
}

// FailSends makes POST /chat/send answer {success:false}.
func (b *Backend) FailSends(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendFail = fail
}

// Push delivers an event to the connected client over the socket.
func (b *Backend) Push(ev protocol.Event) error {
	frame, err := protocol.Encode(ev)
	if err != nil {
		return err
	}
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return nil
	}
	b.connWriteMu.Lock()
	defer b.connWriteMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// DropClient closes the server side of the socket to force a reconnect.
func (b *Backend) DropClient() {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// --- inspection ---

func (b *Backend) MarkReads() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.markReads...)
}

func (b *Backend) Deleted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

func (b *Backend) SentBodies() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sentBodies...)
}

func (b *Backend) Registered() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.registered...)
}

// ClientEvents are the non-register events the client emitted.
func (b *Backend) ClientEvents() []protocol.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]protocol.Event(nil), b.clientSent...)
}

// --- handlers ---

func (b *Backend) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") && len(auth) > len("Bearer ") {
			return next(c)
		}
		if c.QueryParam("token") != "" {
			return next(c)
		}
		return c.JSON(http.StatusUnauthorized, map[string]any{"success": false})
	}
}

func (b *Backend) handleAccounts(c echo.Context) error {
	b.mu.Lock()
	contacts := append([]entity.Contact(nil), b.contacts...)
	b.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{"success": true, "contacts": contacts})
}

func (b *Backend) handleHistory(c echo.Context) error {
	b.mu.Lock()
	messages := append([]entity.Message(nil), b.history[c.Param("contactId")]...)
	b.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{"success": true, "messages": messages})
}

func (b *Backend) handleSend(c echo.Context) error {
	var req struct {
		ReceiverID string `json:"receiverId"`
		Message    string `json:"message"`
	}
	if err := c.Bind(&req); err != nil || req.ReceiverID == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendFail {
		return c.JSON(http.StatusOK, map[string]any{"success": false})
	}

	b.sentBodies = append(b.sentBodies, req.Message)
	msg := entity.Message{
		ID:        uuid.NewString(),
		SenderID:  "me",
		Body:      req.Message,
		CreatedAt: time.Now().UTC(),
	}
	b.history[req.ReceiverID] = append(b.history[req.ReceiverID], msg)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": msg})
}

func (b *Backend) handleMarkRead(c echo.Context) error {
	var req struct {
		SenderID string `json:"senderId"`
	}
	if err := c.Bind(&req); err != nil || req.SenderID == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false})
	}
	b.mu.Lock()
	b.markReads = append(b.markReads, req.SenderID)
	b.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) handleDelete(c echo.Context) error {
	b.mu.Lock()
	b.deleted = append(b.deleted, c.Param("contactId"))
	b.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) handleSocket(c echo.Context) error {
	conn, err := b.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	go func() {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			ev, err := protocol.Decode(frame)
			if err != nil {
				continue
			}
			b.mu.Lock()
			if reg, ok := ev.(protocol.Register); ok {
				b.registered = append(b.registered, reg.UserID)
			} else {
				b.clientSent = append(b.clientSent, ev)
			}
			b.mu.Unlock()
		}
	}()
	return nil
}
