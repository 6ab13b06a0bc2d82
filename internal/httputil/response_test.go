package httputil

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
)

func TestWriteErrorMapsCodeToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apperrors.ErrorCode
	}{
		{
			name:       "rate limit maps to 429",
			err:        apperrors.RateLimitExceeded(),
			wantStatus: 429,
			wantCode:   apperrors.ErrCodeRateLimitExceeded,
		},
		{
			name:       "not found maps to 404",
			err:        apperrors.NotFound("session"),
			wantStatus: 404,
			wantCode:   apperrors.ErrCodeNotFound,
		},
		{
			name:       "plain error falls back to 500",
			err:        errors.New("boom"),
			wantStatus: 500,
			wantCode:   apperrors.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}
