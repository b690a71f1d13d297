package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdempotencyFixture(t *testing.T, handler http.HandlerFunc) http.Handler {
	t.Helper()
	store := NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(store.Stop)
	return Idempotency(store, "Idempotency-Key")(handler)
}

func TestIdempotency_ReplaysFirstResponse(t *testing.T) {
	calls := 0
	wrapped := newIdempotencyFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"abc"}}`))
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/holds", nil)
		req.Header.Set("Idempotency-Key", "key-1")
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"data":{"id":"abc"}}`, rec.Body.String())
	}
	assert.Equal(t, 1, calls)
}

func TestIdempotency_FailedAttemptIsNotCached(t *testing.T) {
	calls := 0
	wrapped := newIdempotencyFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/holds", nil)
		req.Header.Set("Idempotency-Key", "key-2")
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotency_NoKeyPassesThrough(t *testing.T) {
	calls := 0
	wrapped := newIdempotencyFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/holds", nil))
	}
	assert.Equal(t, 2, calls)
}

func TestRequestTimeout_SlowHandlerGets503(t *testing.T) {
	wrapped := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		_, _ = w.Write([]byte("too late"))
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/1", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"Request timeout"}`, rec.Body.String())
}

func TestRequestTimeout_FastHandlerUnaffected(t *testing.T) {
	wrapped := RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/holds/1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
