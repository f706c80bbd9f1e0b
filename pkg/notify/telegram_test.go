package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipca-labs/aquasentry/pkg/notify"
)

func TestNewTelegram_RequiresToken(t *testing.T) {
	_, err := notify.NewTelegram("", "", 0, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestTelegram_Send(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		err := json.NewDecoder(r.Body).Decode(&received)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tg, err := notify.NewTelegram("test-token", server.URL, 5*time.Second, time.Second)
	require.NoError(t, err)

	err = tg.Send(context.Background(), "12345", "hello operator")
	require.NoError(t, err)
	assert.Equal(t, "12345", received["chat_id"])
	assert.Equal(t, "hello operator", received["text"])
	assert.Equal(t, "Markdown", received["parse_mode"])
}

func TestTelegram_Send_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	tg, err := notify.NewTelegram("test-token", server.URL, 5*time.Second, time.Second)
	require.NoError(t, err)

	err = tg.Send(context.Background(), "999", "hi")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_GetUpdates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/getUpdates", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("offset"))

		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":7,"message":{"text":"/status","chat":{"id":12345},"from":{"first_name":"Ana"}}}
		]}`))
	}))
	defer server.Close()

	tg, err := notify.NewTelegram("test-token", server.URL, time.Second, time.Second)
	require.NoError(t, err)

	updates, err := tg.GetUpdates(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(7), updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, "/status", updates[0].Message.Text)
	assert.Equal(t, "12345", updates[0].Message.ChatEndpoint())
}

func TestTelegram_GetUpdates_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	tg, err := notify.NewTelegram("revoked", server.URL, time.Second, time.Second)
	require.NoError(t, err)

	_, err = tg.GetUpdates(context.Background(), 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestTelegram_GetUpdates_Cancelled(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	tg, err := notify.NewTelegram("test-token", server.URL, time.Second, 30*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err = tg.GetUpdates(ctx, 0)
	assert.Error(t, err)
}
