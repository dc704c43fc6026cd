package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/binbill/internal/catalog"
	"github.com/dukerupert/binbill/internal/handler/api"
	"github.com/dukerupert/binbill/internal/middleware"
	"github.com/dukerupert/binbill/internal/router"
	"github.com/dukerupert/binbill/internal/service"
	"github.com/dukerupert/binbill/internal/session"
	"github.com/dukerupert/binbill/internal/storage"
)

func newRouter(t *testing.T, limits ...router.Middleware) *router.Router {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	svc := service.NewUploadService(service.UploadServiceConfig{
		Reference: catalog.Default(),
		Sessions:  session.NewMemoryStore(time.Hour),
		Storage:   store,
		Logger:    zerolog.Nop(),
	})

	r := router.New()
	RegisterAPIRoutes(r, APIDeps{
		UploadHandler:    api.NewUploadHandler(svc),
		ReferenceHandler: api.NewReferenceHandler(catalog.Default()),
		UploadLimits:     limits,
	})
	RegisterOpsRoutes(r, OpsDeps{
		HealthHandler:  api.NewHealthHandler(nil),
		MetricsHandler: middleware.NewMetrics("test", prometheus.NewRegistry()).Handler(),
	})
	return r
}

func TestRoutes_Registered(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/uploads/template.csv", http.StatusOK},
		{http.MethodGet, "/api/uploads", http.StatusOK},
		{http.MethodGet, "/api/reference/states", http.StatusOK},
		{http.MethodGet, "/api/reference/states/fct/lgas", http.StatusOK},
		{http.MethodGet, "/api/uploads/6f1f3c52-3a52-4e53-9f0f-111111111111", http.StatusNotFound},
		{http.MethodDelete, "/api/uploads", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRoutes_UploadLimitsOnlyOnHeavyRoutes(t *testing.T) {
	blocked := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	r := newRouter(t, blocked)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/uploads", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/uploads/template.csv", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
