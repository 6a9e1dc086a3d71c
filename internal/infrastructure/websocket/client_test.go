package websocket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonlink/internal/protocol"
	"salonlink/internal/testutil"
)

type recordingSink struct {
	mu            sync.Mutex
	messages      []protocol.ReceiveMessage
	online        []protocol.UserOnline
	offline       []protocol.UserOffline
	typing        []protocol.UserTyping
	notifications []protocol.Notification
}

func (s *recordingSink) HandleMessage(ev protocol.ReceiveMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, ev)
}

func (s *recordingSink) HandleUserOnline(ev protocol.UserOnline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = append(s.online, ev)
}

func (s *recordingSink) HandleUserOffline(ev protocol.UserOffline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = append(s.offline, ev)
}

func (s *recordingSink) HandleUserTyping(ev protocol.UserTyping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing = append(s.typing, ev)
}

func (s *recordingSink) HandleNotification(ev protocol.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, ev)
}

func (s *recordingSink) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func dialTestClient(t *testing.T, backend *testutil.Backend, sink EventSink) *Client {
	t.Helper()
	client, err := Dial(context.Background(), backend.SocketURL(), "me", testutil.Token("me"), sink)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDialRegistersUser(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	client := dialTestClient(t, backend, &recordingSink{})

	assert.True(t, client.Connected())
	require.Eventually(t, func() bool {
		reg := backend.Registered()
		return len(reg) == 1 && reg[0] == "me"
	}, time.Second, 10*time.Millisecond)
}

func TestDialFailsClosedWithoutToken(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	_, err := Dial(context.Background(), backend.SocketURL(), "me", "", &recordingSink{})
	assert.Error(t, err)
}

func TestInboundEventsReachSink(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	sink := &recordingSink{}
	dialTestClient(t, backend, sink)

	require.Eventually(t, func() bool { return len(backend.Registered()) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, backend.Push(protocol.ReceiveMessage{
		SenderID: "u1", SenderName: "Ana", Message: "hi", Timestamp: time.Now().UTC(),
	}))
	require.NoError(t, backend.Push(protocol.UserOnline{UserID: "u1"}))
	require.NoError(t, backend.Push(protocol.UserTyping{SenderID: "u1", SenderName: "Ana", IsTyping: true}))
	require.NoError(t, backend.Push(protocol.Notification{Title: "Booking", Body: "details"}))

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.messages) == 1 && len(sink.online) == 1 &&
			len(sink.typing) == 1 && len(sink.notifications) == 1
	}, time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, "hi", sink.messages[0].Message)
	assert.Equal(t, "u1", sink.online[0].UserID)
	assert.True(t, sink.typing[0].IsTyping)
	assert.Equal(t, "Booking", sink.notifications[0].Title)
}

func TestMalformedFramesAreDropped(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	sink := &recordingSink{}
	client := dialTestClient(t, backend, sink)

	require.Eventually(t, func() bool { return len(backend.Registered()) == 1 }, time.Second, 10*time.Millisecond)

	// A frame with a missing sender must be rejected, and the connection
	// must survive it.
	client.dispatch([]byte(`{"type":"receiveMessage","data":{"message":"hi"}}`))
	client.dispatch([]byte(`{"type":"bogus","data":{}}`))

	require.NoError(t, backend.Push(protocol.ReceiveMessage{
		SenderID: "u1", Message: "still alive", Timestamp: time.Now().UTC(),
	}))
	require.Eventually(t, func() bool { return sink.messageCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestEmitDeliversToServer(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	client := dialTestClient(t, backend, &recordingSink{})

	require.NoError(t, client.Emit(protocol.SendMessage{
		ReceiverID: "u2", SenderID: "me", SenderName: "Me", Message: "ping",
	}))

	require.Eventually(t, func() bool {
		events := backend.ClientEvents()
		if len(events) != 1 {
			return false
		}
		ev, ok := events[0].(protocol.SendMessage)
		return ok && ev.Message == "ping"
	}, time.Second, 10*time.Millisecond)
}

func TestReconnectReregisters(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	client := dialTestClient(t, backend, &recordingSink{})

	require.Eventually(t, func() bool { return len(backend.Registered()) == 1 }, time.Second, 10*time.Millisecond)

	backend.DropClient()

	require.Eventually(t, func() bool { return len(backend.Registered()) == 2 }, 5*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool { return client.Connected() }, time.Second, 10*time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	client := dialTestClient(t, backend, &recordingSink{})

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
	assert.False(t, client.Connected())

	err := client.Emit(protocol.UserOnline{UserID: "x"})
	assert.Error(t, err)
}
