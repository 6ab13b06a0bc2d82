package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
)

func TestWhisperTranscriberSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "voice.ogg", header.Filename)
		payload, _ := io.ReadAll(file)
		assert.Equal(t, "opus-bytes", string(payload))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "  two red roses please  "}`))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber("sk-test", srv.URL)
	text, err := tr.Transcribe(context.Background(), strings.NewReader("opus-bytes"), "voice.ogg")
	require.NoError(t, err)
	assert.Equal(t, "two red roses please", text)
}

func TestWhisperTranscriberUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber("sk-test", srv.URL)
	_, err := tr.Transcribe(context.Background(), strings.NewReader("x"), "voice.ogg")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeExternal))
}

func TestDisabledReturnsPlaceholder(t *testing.T) {
	text, err := Disabled{}.Transcribe(context.Background(), strings.NewReader("x"), "voice.ogg")
	require.NoError(t, err)
	assert.Equal(t, PlaceholderText, text)
}
