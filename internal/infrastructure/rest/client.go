// Package rest is the client for the chat REST collaborator. Every call
// runs under a per-request timeout so a hung request can never pin the
// caller in a loading state.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"salonlink/internal/domain/entity"
	apperrors "salonlink/pkg/errors"
)

type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	httpc   *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		timeout: timeout,
		httpc:   &http.Client{},
	}
}

type accountsResponse struct {
	Success  bool             `json:"success"`
	Contacts []entity.Contact `json:"contacts"`
}

type historyResponse struct {
	Success  bool             `json:"success"`
	Messages []entity.Message `json:"messages"`
}

type sendRequest struct {
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

type sendResponse struct {
	Success bool            `json:"success"`
	Message *entity.Message `json:"message"`
}

type markReadRequest struct {
	SenderID string `json:"senderId"`
}

type statusResponse struct {
	Success bool `json:"success"`
}

// ListContacts loads the conversation partners for the authenticated user,
// including server-side unread counts and last-activity metadata.
func (c *Client) ListContacts(ctx context.Context) ([]entity.Contact, error) {
	var out accountsResponse
	if err := c.do(ctx, http.MethodGet, "/chat/accounts", nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, apperrors.Internal("contact list request rejected", nil)
	}
	return out.Contacts, nil
}

// History loads a page of messages for one contact, oldest first.
func (c *Client) History(ctx context.Context, contactID string, limit, skip int) ([]entity.Message, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	path := "/chat/history/" + url.PathEscape(contactID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out historyResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, apperrors.Internal("history request rejected", nil)
	}
	return out.Messages, nil
}

// Send performs the durable write. The returned message carries the
// server-assigned ID and timestamp.
func (c *Client) Send(ctx context.Context, receiverID, body string) (*entity.Message, error) {
	var out sendResponse
	err := c.do(ctx, http.MethodPost, "/chat/send", sendRequest{ReceiverID: receiverID, Message: body}, &out)
	if err != nil {
		return nil, err
	}
	if !out.Success || out.Message == nil {
		return nil, apperrors.Internal("send rejected by backend", nil)
	}
	return out.Message, nil
}

// MarkRead clears the unread counter for messages from senderID. Best
// effort; callers log failures and move on.
func (c *Client) MarkRead(ctx context.Context, senderID string) error {
	var out statusResponse
	if err := c.do(ctx, http.MethodPut, "/chat/mark-read", markReadRequest{SenderID: senderID}, &out); err != nil {
		return err
	}
	if !out.Success {
		return apperrors.Internal("mark-read rejected by backend", nil)
	}
	return nil
}

// DeleteContact hides the conversation server-side. The local list is
// updated optimistically before this call.
func (c *Client) DeleteContact(ctx context.Context, contactID string) error {
	var out statusResponse
	if err := c.do(ctx, http.MethodDelete, "/chat/contact/"+url.PathEscape(contactID), nil, &out); err != nil {
		return err
	}
	if !out.Success {
		return apperrors.Internal("delete contact rejected by backend", nil)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return apperrors.Internal("encode request body", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperrors.Internal("build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperrors.Unavailable(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Unauthorized("backend rejected auth token", nil)
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound("resource", nil)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return apperrors.BadRequest(fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode), nil)
	case resp.StatusCode >= 500:
		return apperrors.Internal(fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.Internal("decode response body", err)
		}
	}
	return nil
}
