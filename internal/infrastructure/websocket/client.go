// Package websocket owns the single persistent socket connection for an
// authenticated session: dial with auth, register, read/write pumps, and
// automatic reconnection. Inbound frames are decoded and fanned out to an
// EventSink; malformed frames are logged and dropped.
package websocket

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"salonlink/internal/protocol"
	apperrors "salonlink/pkg/errors"
	"salonlink/pkg/logger"
)

// EventSink receives the inbound event stream. Implementations are called
// from the read pump goroutine, one event at a time.
type EventSink interface {
	HandleMessage(protocol.ReceiveMessage)
	HandleUserOnline(protocol.UserOnline)
	HandleUserOffline(protocol.UserOffline)
	HandleUserTyping(protocol.UserTyping)
	HandleNotification(protocol.Notification)
}

const sendBuffer = 64

type Client struct {
	rawURL string
	userID string
	token  string
	sink   EventSink

	send chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// Dial opens the connection, emits the register event, and starts the
// pump goroutines. The token travels both as a bearer header and as a
// query parameter; some backend deployments only read one of the two.
func Dial(ctx context.Context, rawURL, userID, token string, sink EventSink) (*Client, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("missing auth token", nil)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		rawURL: rawURL,
		userID: userID,
		token:  token,
		sink:   sink,
		send:   make(chan []byte, sendBuffer),
		ctx:    runCtx,
		cancel: cancel,
	}

	if err := c.connect(ctx); err != nil {
		cancel()
		return nil, err
	}

	go c.run()
	return c, nil
}

// Emit queues an outbound event. Best-effort: a full buffer or a closed
// client is an error, never a block.
func (c *Client) Emit(e protocol.Event) error {
	frame, err := protocol.Encode(e)
	if err != nil {
		return err
	}

	if c.ctx.Err() != nil {
		return apperrors.Unavailable("socket closed", nil)
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return apperrors.Unavailable("socket send buffer full", nil)
	}
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears the connection down. Idempotent; must be called when the
// owning session ends or the connection and its handlers leak into the
// next login.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.mu.Lock()
		if c.conn != nil {
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.conn.Close()
		}
		c.connected = false
		c.mu.Unlock()
	})
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	u, err := url.Parse(c.rawURL)
	if err != nil {
		return apperrors.BadRequest("invalid socket url", err)
	}
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return apperrors.Unauthorized("socket handshake rejected", err)
		}
		return apperrors.Unavailable("socket dial failed", err)
	}

	// Register before the write pump takes over the connection so the
	// server can associate the socket with this user ahead of any other
	// outbound traffic.
	frame, err := protocol.Encode(protocol.Register{UserID: c.userID})
	if err != nil {
		conn.Close()
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		conn.Close()
		return apperrors.Unavailable("register emit failed", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	logger.Info("socket connected for user %s", c.userID)
	return nil
}

// run cycles the connection: pump until the read side fails, then
// reconnect with backoff until Close cancels the context.
func (c *Client) run() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		done := make(chan struct{})
		go c.writePump(conn, done)
		c.readPump(conn)
		close(done)
		conn.Close()

		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		select {
		case <-c.ctx.Done():
			return
		default:
		}

		if err := c.reconnect(); err != nil {
			return
		}
	}
}

func (c *Client) reconnect() error {
	backoff := retry.WithCappedDuration(5*time.Second, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(c.ctx, backoff, func(ctx context.Context) error {
		if err := c.connect(ctx); err != nil {
			logger.Warn("socket reconnect failed for user %s: %v", c.userID, err)
			return retry.RetryableError(err)
		}
		logger.Info("socket reconnected for user %s", c.userID)
		return nil
	})
}

func (c *Client) readPump(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Error("socket read error: %v", err)
			}
			return
		}
		c.dispatch(frame)
	}
}

func (c *Client) writePump(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case frame := <-c.send:
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Error("socket write error: %v", err)
				conn.Close()
				return
			}
		case <-done:
			return
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) dispatch(frame []byte) {
	ev, err := protocol.Decode(frame)
	if err != nil {
		logger.Warn("dropping malformed socket frame: %v", err)
		return
	}

	switch ev := ev.(type) {
	case protocol.ReceiveMessage:
		c.sink.HandleMessage(ev)
	case protocol.UserOnline:
		c.sink.HandleUserOnline(ev)
	case protocol.UserOffline:
		c.sink.HandleUserOffline(ev)
	case protocol.UserTyping:
		c.sink.HandleUserTyping(ev)
	case protocol.Notification:
		c.sink.HandleNotification(ev)
	default:
		logger.Debug("ignoring inbound event type %s", ev.EventType())
	}
}
