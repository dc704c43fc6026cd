package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// MaxBodySize limits the size of request bodies.
// If no size is provided, DefaultMaxBodySize (1MB) is used.
// If the request body exceeds maxBytes, it returns 413 Request Entity Too Large.
func MaxBodySize(maxBytes ...int64) func(http.Handler) http.Handler {
	var limit int64
	if len(maxBytes) > 0 {
		limit = maxBytes[0]
	} else {
		limit = DefaultMaxBodySize
	}

	return maxBodySizeWithLimit(limit)
}

func maxBodySizeWithLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only limit if there's a body
			if r.Body != nil && r.ContentLength > maxBytes {
				respondTooLarge(w, r, "Request body too large")
				return
			}

			// Wrap the body with a limited reader
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// Common size limits
const (
	KB = 1024
	MB = 1024 * KB

	// DefaultMaxBodySize is the default maximum request body size (1MB)
	DefaultMaxBodySize = 1 * MB

	// UploadMaxBodySize is for customer spreadsheets (20MB)
	UploadMaxBodySize = 20 * MB
)

// Timeout adds a timeout to request processing.
// If no duration is provided, DefaultTimeout (30s) is used.
// If the handler doesn't complete within the timeout, it returns 503 Service Unavailable.
// Submissions run on a context detached from the request, so a timeout here
// only ends the HTTP exchange.
func Timeout(timeout ...time.Duration) func(http.Handler) http.Handler {
	var duration time.Duration
	if len(timeout) > 0 {
		duration = timeout[0]
	} else {
		duration = DefaultTimeout
	}

	return timeoutWithDuration(duration)
}

func timeoutWithDuration(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			tw := &timeoutWriter{ResponseWriter: w}

			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()

				tw.timedOut = true
				if !tw.wroteHeader {
					tw.wroteHeader = true
					respondUnavailable(w, r, "Request timeout")
				}
				// A response already under way is left truncated.
			}
		})
	}
}

// Common timeout values
const (
	// DefaultTimeout is the default request timeout (30 seconds)
	DefaultTimeout = 30 * time.Second

	// LongTimeout covers a bulk submission waiting on the platform (2 minutes)
	LongTimeout = 2 * time.Minute
)

// timeoutWriter wraps http.ResponseWriter and drops writes after a timeout
type timeoutWriter struct {
	http.ResponseWriter
	mu          sync.Mutex
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.wroteHeader || tw.timedOut {
		return
	}
	tw.wroteHeader = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wroteHeader {
		tw.wroteHeader = true
		tw.ResponseWriter.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}
