package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dukerupert/binbill/internal/handler"
	"github.com/dukerupert/binbill/internal/middleware"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	checks  map[string]Check
	timeout time.Duration
}

// NewHealthHandler creates a health handler. checks are run on every
// readiness probe; optional dependencies that are not configured should
// simply be left out.
func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Live handles GET /health
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Ready handles GET /health/ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			middleware.GetLogger(r.Context()).Warn().Err(err).Str("check", name).Msg("readiness check failed")
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	handler.WriteJSON(w, status, map[string]interface{}{"checks": results})
}
