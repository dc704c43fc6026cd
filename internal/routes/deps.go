package routes

import (
	"net/http"

	"github.com/dukerupert/binbill/internal/handler/api"
	"github.com/dukerupert/binbill/internal/router"
)

// APIDeps contains dependencies for the upload API routes
type APIDeps struct {
	UploadHandler    *api.UploadHandler
	ReferenceHandler *api.ReferenceHandler

	// UploadLimits guards the routes that parse files or call the platform
	// (rate limiting, body size).
	UploadLimits []router.Middleware
}

// OpsDeps contains dependencies for health and metrics routes
type OpsDeps struct {
	HealthHandler  *api.HealthHandler
	MetricsHandler http.Handler
}
