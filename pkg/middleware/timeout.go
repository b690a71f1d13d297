package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// guardedWriter drops handler writes that land after the deadline so the
// timeout response is the only one the client sees.
type guardedWriter struct {
	http.ResponseWriter
	mu       sync.Mutex
	timedOut bool
	written  bool
}

func (gw *guardedWriter) WriteHeader(code int) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	if gw.timedOut || gw.written {
		return
	}
	gw.written = true
	gw.ResponseWriter.WriteHeader(code)
}

func (gw *guardedWriter) Write(b []byte) (int, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	if gw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	gw.written = true
	return gw.ResponseWriter.Write(b)
}

// expire seals the writer and, when the handler has not produced output yet,
// emits the timeout response under the same lock.
func (gw *guardedWriter) expire(writeTimeout func()) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	gw.timedOut = true
	if !gw.written {
		writeTimeout()
		gw.written = true
	}
}

// RequestTimeout bounds each request by the configured duration. On timeout
// the handler goroutine keeps running against a cancelled context, but its
// writes are discarded.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			gw := &guardedWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				next.ServeHTTP(gw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				gw.expire(func() {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusServiceUnavailable)
					_, _ = w.Write([]byte(`{"error":"Request timeout"}`))
				})
			}
		})
	}
}
