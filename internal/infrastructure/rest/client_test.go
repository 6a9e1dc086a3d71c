package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonlink/internal/domain/entity"
	apperrors "salonlink/pkg/errors"
)

func TestListContacts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/chat/accounts", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"contacts": []entity.Contact{
				{ID: "1", DisplayName: "Ana", UnreadCount: 2, IsOnline: true},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", time.Second)
	contacts, err := c.ListContacts(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ana", contacts[0].DisplayName)
	assert.Equal(t, 2, contacts[0].UnreadCount)
}

func TestHistoryPassesPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/history/c1", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "50", r.URL.Query().Get("skip"))
		json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"messages": []entity.Message{{ID: "m1", SenderID: "c1", Body: "hi"}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", time.Second)
	messages, err := c.History(context.Background(), "c1", 25, 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hi", messages[0].Body)
}

func TestSendPostsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "c1", req["receiverId"])
		assert.Equal(t, "hello", req["message"])
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": entity.Message{ID: "m1", SenderID: "me", Body: "hello", CreatedAt: time.Now().UTC()},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", time.Second)
	msg, err := c.Send(context.Background(), "c1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
}

func TestSendRejectedByBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", time.Second)
	_, err := c.Send(context.Background(), "c1", "hello")
	assert.Error(t, err)
}

func TestMarkReadAndDelete(t *testing.T) {
	var markRead, deleted string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			markRead = req["senderId"]
		case http.MethodDelete:
			deleted = r.URL.Path
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", time.Second)
	require.NoError(t, c.MarkRead(context.Background(), "c1"))
	require.NoError(t, c.DeleteContact(context.Background(), "c2"))
	assert.Equal(t, "c1", markRead)
	assert.Equal(t, "/chat/contact/c2", deleted)
}

func TestStatusCodeMapping(t *testing.T) {
	codes := map[int]string{
		http.StatusUnauthorized:        "UNAUTHORIZED",
		http.StatusNotFound:            "NOT_FOUND",
		http.StatusUnprocessableEntity: "BAD_REQUEST",
		http.StatusInternalServerError: "INTERNAL_ERROR",
	}
	for status, code := range codes {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		c := NewClient(server.URL, "tok", time.Second)
		_, err := c.ListContacts(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, code), "status %d should map to %s", status, code)
		server.Close()
	}
}

func TestRequestTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	c := NewClient(server.URL, "tok", 50*time.Millisecond)
	start := time.Now()
	_, err := c.ListContacts(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, apperrors.Is(err, "UNAVAILABLE"))
}
