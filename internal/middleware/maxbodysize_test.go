package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/shiftsim/internal/middleware"
)

// drainBody reads the full request body and answers 413 when the read fails,
// which is what http.MaxBytesReader causes past the limit.
var drainBody = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if _, err := io.ReadAll(r.Body); err != nil {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}
	w.WriteHeader(http.StatusOK)
})

func TestMaxBodySizeHandler(t *testing.T) {
	const limit = 100

	tests := []struct {
		name          string
		size          int
		contentLength int64 // -1 means unknown (chunked)
		want          int
	}{
		{"within limit", 50, 50, http.StatusOK},
		{"exactly at limit", limit, limit, http.StatusOK},
		{"declared length over limit", 200, 200, http.StatusRequestEntityTooLarge},
		{"streamed body over limit", 200, -1, http.StatusRequestEntityTooLarge},
		{"streamed body within limit", 20, -1, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := middleware.NewMaxBodySizeHandler(limit)(drainBody)

			req := httptest.NewRequest(http.MethodPost, "/debug/ml/clear-cache", strings.NewReader(strings.Repeat("x", tt.size)))
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

// TestMaxBodySizeHandler_RejectsBeforeHandler verifies that an oversized
// Content-Length never reaches the next handler and gets a JSON error body.
func TestMaxBodySizeHandler_RejectsBeforeHandler(t *testing.T) {
	called := false
	h := middleware.NewMaxBodySizeHandler(10)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/debug/ml/clear-cache", strings.NewReader(strings.Repeat("x", 11)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":{"code":"request_too_large","message":"request body too large"}}`, rec.Body.String())
}

func TestMaxBodySizeHandler_GetWithoutBody(t *testing.T) {
	h := middleware.NewMaxBodySizeHandler(10)(drainBody)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/simulate", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
