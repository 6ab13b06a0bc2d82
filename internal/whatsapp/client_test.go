package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", "1234567890", WithBaseURL(srv.URL))
}

func TestSendTextAppendsEmojiAndReturnsID(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1234567890/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":[{"id":"wamid.out.1"}]}`))
	})

	id, err := client.SendText(context.Background(), "15550001111", "Hello there")
	require.NoError(t, err)
	assert.Equal(t, "wamid.out.1", id)

	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "15550001111", got["to"])
	text := got["text"].(map[string]any)
	assert.Equal(t, "Hello there "+flowerEmoji, text["body"])
}

func TestSendTextDoesNotDoubleEmoji(t *testing.T) {
	assert.Equal(t, "Hi "+flowerEmoji, withFlowerEmoji("Hi "+flowerEmoji))
	assert.Equal(t, "Hi "+flowerEmoji, withFlowerEmoji("Hi\n"))
}

func TestSendImageWithCaption(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"messages":[{"id":"wamid.out.2"}]}`))
	})

	id, err := client.SendImageWithCaption(context.Background(), "15550001111",
		"https://cdn.example.com/spirit.jpg", "Spirit - 1500 THB")
	require.NoError(t, err)
	assert.Equal(t, "wamid.out.2", id)

	image := got["image"].(map[string]any)
	assert.Equal(t, "https://cdn.example.com/spirit.jpg", image["link"])
}

func TestMarkReadSendsStatusPayload(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true}`))
	})

	err := client.MarkRead(context.Background(), "wamid.in.1")
	require.NoError(t, err)
	assert.Equal(t, "read", got["status"])
	assert.Equal(t, "wamid.in.1", got["message_id"])
}

func TestSendTypingIncludesIndicator(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true}`))
	})

	err := client.SendTyping(context.Background(), "wamid.in.1")
	require.NoError(t, err)
	indicator := got["typing_indicator"].(map[string]any)
	assert.Equal(t, "text", indicator["type"])
}

func TestSendTextUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad token"}}`))
	})

	_, err := client.SendText(context.Background(), "15550001111", "Hello")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeExternal))
}
