package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/participa/internal/server/middleware"
)

// contextHandler captures the request context so tests can inspect it.
type contextHandler struct {
	ctx    context.Context
	called bool
}

func (h *contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.ctx = r.Context()
	h.called = true
	w.WriteHeader(http.StatusOK)
}

// ---------------------------------------------------------------------------
// APIKey
// ---------------------------------------------------------------------------

func TestAPIKey(t *testing.T) {
	t.Parallel()

	const key = "s3cret-api-key"

	tests := []struct {
		name       string
		configured string
		header     string
		wantCode   int
	}{
		{name: "matching key", configured: key, header: key, wantCode: http.StatusOK},
		{name: "missing header", configured: key, header: "", wantCode: http.StatusUnauthorized},
		{name: "wrong key", configured: key, header: "s3cret-api-kez", wantCode: http.StatusUnauthorized},
		{name: "prefix of key", configured: key, header: "s3cret", wantCode: http.StatusUnauthorized},
		{name: "empty configured key rejects everything", configured: "", header: "", wantCode: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			inner := &contextHandler{}
			handler := middleware.APIKey(tc.configured)(inner)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/records/recent", nil)
			if tc.header != "" {
				req.Header.Set(middleware.APIKeyHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantCode == http.StatusOK, inner.called)
			if tc.wantCode == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"status":401`)
			}
		})
	}
}

func TestAPIKey_SetsClientLabel(t *testing.T) {
	t.Parallel()

	inner := &contextHandler{}
	handler := middleware.APIKey("key-1")(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.APIKeyHeader, "key-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, inner.called)
	label, ok := middleware.ClientFromContext(inner.ctx)
	require.True(t, ok)
	assert.Regexp(t, `^key:[0-9a-f]{8}$`, label)
	assert.NotContains(t, label, "key-1")
}

func TestClientFromContext_Absent(t *testing.T) {
	t.Parallel()

	_, ok := middleware.ClientFromContext(context.Background())
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// RateLimitByIP
// ---------------------------------------------------------------------------

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.RateLimitByIP(ctx, 1, 2)(okHandler)

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/whatsapp", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("burst then 429", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, send("10.0.0.1:1111").Code)
		// Different source port, same host.
		assert.Equal(t, http.StatusOK, send("10.0.0.1:2222").Code)

		rec := send("10.0.0.1:3333")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	})

	t.Run("other hosts are independent", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, send("10.0.0.2:1111").Code)
		assert.Equal(t, http.StatusOK, send("10.0.0.3").Code)
	})
}
