// Package notify delivers operator messages through the Telegram Bot API
// and classifies delivery outcomes. Every send is a single attempt with an
// explicit timeout; there is no queueing and no retry.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultAPIBase is the production Telegram Bot API endpoint. Tests point
// this at an httptest server.
const DefaultAPIBase = "https://api.telegram.org"

// Telegram is a minimal Bot API client covering the two methods this core
// needs: sendMessage for outbound delivery and getUpdates for the
// listener's long poll.
type Telegram struct {
	token       string
	base        string
	pollTimeout time.Duration
	send        *http.Client
	poll        *http.Client
}

// NewTelegram creates a Bot API client. An empty token is a configuration
// fault: the caller must not start without a credential.
func NewTelegram(token, base string, sendTimeout, pollTimeout time.Duration) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram token not configured")
	}
	if base == "" {
		base = DefaultAPIBase
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &Telegram{
		token:       token,
		base:        base,
		pollTimeout: pollTimeout,
		send:        &http.Client{Timeout: sendTimeout},
		// The poll client must outlive the server-side long-poll window.
		poll: &http.Client{Timeout: pollTimeout + 10*time.Second},
	}, nil
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Send posts one message to the given chat with Markdown formatting.
// Any non-2xx response or transport failure is returned as an error
// carrying the raw status or error text.
func (t *Telegram) Send(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.send.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// Update is one inbound event from getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is the subset of a Telegram message the bot cares about.
type Message struct {
	Text string `json:"text"`
	Chat Chat   `json:"chat"`
	From *User  `json:"from,omitempty"`
}

// Chat identifies the conversation a message arrived in.
type Chat struct {
	ID int64 `json:"id"`
}

// User identifies the sender of a message.
type User struct {
	FirstName string `json:"first_name"`
}

// ChatEndpoint renders the chat id as the opaque endpoint identifier used
// throughout the store and dispatcher.
func (m *Message) ChatEndpoint() string {
	return strconv.FormatInt(m.Chat.ID, 10)
}

type getUpdatesResponse struct {
	OK          bool     `json:"ok"`
	Result      []Update `json:"result"`
	Description string   `json:"description,omitempty"`
}

// GetUpdates blocks up to the configured poll timeout waiting for inbound
// events with update_id >= offset. This is the listener's only indefinite
// suspension point; cancelling ctx unblocks it.
func (t *Telegram) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=%d",
		t.base, t.token, offset, int(t.pollTimeout.Seconds()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create getUpdates request: %w", err)
	}

	resp, err := t.poll.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, detail)
	}

	var decoded getUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode getUpdates response: %w", err)
	}
	if !decoded.OK {
		return nil, fmt.Errorf("telegram rejected getUpdates: %s", decoded.Description)
	}
	return decoded.Result, nil
}
