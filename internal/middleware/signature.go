package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// SignatureMiddleware validates the X-Hub-Signature-256 header the
// platform attaches to every webhook POST. With no app secret
// configured the check is skipped, which is only acceptable in
// development.
type SignatureMiddleware struct {
	appSecret string
}

func NewSignatureMiddleware(appSecret string) *SignatureMiddleware {
	if appSecret == "" {
		log.Warn().Msg("webhook signature validation disabled: no app secret configured")
	}
	return &SignatureMiddleware{appSecret: appSecret}
}

func (m *SignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.appSecret == "" || r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unreadable request body"})
			return
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		header := r.Header.Get("X-Hub-Signature-256")
		if !m.validSignature(header, body) {
			log.Warn().
				Str("remoteAddr", r.RemoteAddr).
				Msg("webhook signature rejected")
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Invalid signature"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *SignatureMiddleware) validSignature(header string, body []byte) bool {
	provided, ok := strings.CutPrefix(header, "sha256=")
	if !ok || provided == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(m.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
