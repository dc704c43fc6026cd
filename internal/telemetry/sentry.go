package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	// DSN is the Sentry Data Source Name (required if Enabled is true)
	DSN string

	// Enabled controls whether Sentry is active
	Enabled bool

	// Environment identifies the deployment environment (dev, staging, prod)
	Environment string

	// Release is the application version/release identifier
	Release string

	// SampleRate controls the percentage of errors to capture (0.0 to 1.0)
	SampleRate float64

	// TracesSampleRate controls the percentage of transactions to trace (0.0 to 1.0)
	TracesSampleRate float64

	// Debug enables Sentry SDK debug logging
	Debug bool
}

var sentryEnabled bool

// InitSentry initializes the Sentry client.
// Returns a cleanup function that should be called on application shutdown.
func InitSentry(cfg SentryConfig, logger zerolog.Logger) (func(), error) {
	sentryEnabled = false

	if !cfg.Enabled {
		logger.Info().Msg("Sentry disabled (SENTRY_ENABLED=false)")
		return func() {}, nil
	}

	if cfg.DSN == "" {
		logger.Warn().Msg("Sentry DSN not configured, disabling error tracking")
		return func() {}, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// Row values carry customer names and phone numbers.
			for k := range event.Extra {
				if k == "rows" || k == "records" {
					delete(event.Extra, k)
				}
			}
			return event
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	sentryEnabled = true

	logger.Info().
		Str("environment", cfg.Environment).
		Str("release", cfg.Release).
		Float64("sample_rate", sampleRate).
		Float64("traces_sample_rate", cfg.TracesSampleRate).
		Msg("Sentry initialized")

	return func() { sentry.Flush(2 * time.Second) }, nil
}

// IsEnabled returns whether Sentry is currently enabled
func IsEnabled() bool {
	return sentryEnabled
}

// CaptureError captures an error with optional extras.
// Safe to call even when Sentry is disabled.
func CaptureError(err error, extras map[string]interface{}) {
	if !IsEnabled() || err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for key, value := range extras {
			scope.SetExtra(key, value)
		}
		sentry.CaptureException(err)
	})
}

// CaptureErrorFromContext captures an error using the Sentry hub from the request context.
func CaptureErrorFromContext(ctx context.Context, err error, extras map[string]interface{}) {
	if !IsEnabled() || err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		for key, value := range extras {
			scope.SetExtra(key, value)
		}
		hub.CaptureException(err)
	})
}

// AddBreadcrumb adds a breadcrumb to the hub on ctx.
func AddBreadcrumb(ctx context.Context, category, message string, data map[string]interface{}) {
	if !IsEnabled() {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Data:     data,
		Level:    sentry.LevelInfo,
	}, nil)
}

// SentryMiddleware returns an HTTP middleware that captures panics and adds request context
func SentryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			hub := sentry.GetHubFromContext(r.Context())
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
			}

			hub.Scope().SetRequest(r)
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			defer func() {
				if err := recover(); err != nil {
					hub.RecoverWithContext(ctx, err)
					sentry.Flush(2 * time.Second)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
