package notify

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

func TestHTTPNotifierPostsSummary(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, "op-token")
	err := n.NotifyOrder(context.Background(), "NEW ORDER\nBouquet: Spirit")
	require.NoError(t, err)

	assert.Equal(t, "Bearer op-token", auth)
	assert.Equal(t, "NEW ORDER\nBouquet: Spirit", got["text"])
}

func TestHTTPNotifierNoTokenOmitsAuth(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, "")
	require.NoError(t, n.NotifyOrder(context.Background(), "summary"))
	assert.Empty(t, auth)
}

func TestHTTPNotifierUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "channel gone", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, "")
	err := n.NotifyOrder(context.Background(), "summary")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeExternal))
}

func TestNoopNotifierNeverFails(t *testing.T) {
	assert.NoError(t, NoopNotifier{}.NotifyOrder(context.Background(), "summary"))
}
