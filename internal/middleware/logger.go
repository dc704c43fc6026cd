package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// ActorHeader names the operator performing an upload. Set by the
// authenticating proxy in front of this service.
const ActorHeader = "X-Actor"

// WithRequestLogger injects a request-scoped logger into the context.
// The logger carries request_id, method, path, client ip and actor.
// Place it after RequestID in the chain.
func WithRequestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lctx := base.With().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("ip", GetClientIP(r))

			if requestID := GetRequestID(r.Context()); requestID != "" {
				lctx = lctx.Str("request_id", requestID)
			}
			if actor := r.Header.Get(ActorHeader); actor != "" {
				lctx = lctx.Str("actor", actor)
			}

			logger := lctx.Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
		})
	}
}

// GetLogger retrieves the request-scoped logger from the context.
// Without one it returns the fallback, or a disabled logger.
func GetLogger(ctx context.Context, fallback ...zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	if len(fallback) > 0 {
		return &fallback[0]
	}
	return zerolog.Ctx(ctx)
}
