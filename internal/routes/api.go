package routes

import (
	"github.com/dukerupert/binbill/internal/router"
)

// RegisterAPIRoutes registers the bulk upload and reference data API.
//
// Routes:
//
//	POST /api/uploads                      parse and validate a file
//	GET  /api/uploads                      upload history
//	GET  /api/uploads/template.csv         blank template
//	GET  /api/uploads/{id}                 upload snapshot
//	POST /api/uploads/{id}/confirm         submit to a collection
//	POST /api/uploads/{id}/cancel          abandon an upload
//	GET  /api/uploads/{id}/errors.xlsx     row error report
//	GET  /api/collections                  enrollment targets
//	GET  /api/reference/states             state catalog
//	GET  /api/reference/states/{state}/lgas
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	uploads := deps.UploadHandler
	reference := deps.ReferenceHandler

	limited := r.Group(deps.UploadLimits...)
	limited.Post("/api/uploads", uploads.Create)
	limited.Post("/api/uploads/{id}/confirm", uploads.Confirm)

	r.Get("/api/uploads", uploads.History)
	r.Get("/api/uploads/template.csv", uploads.Template)
	r.Get("/api/uploads/{id}", uploads.Get)
	r.Post("/api/uploads/{id}/cancel", uploads.Cancel)
	r.Get("/api/uploads/{id}/errors.xlsx", uploads.Report)
	r.Get("/api/collections", uploads.Collections)

	r.Get("/api/reference/states", reference.States)
	r.Get("/api/reference/states/{state}/lgas", reference.LGAs)
}

// RegisterOpsRoutes registers health checks and the metrics endpoint.
// /metrics should be kept off the public network by the proxy.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/health", deps.HealthHandler.Live)
	r.Get("/health/ready", deps.HealthHandler.Ready)
	r.Handle("GET", "/metrics", deps.MetricsHandler)
}
