package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UploadMetrics tracks the bulk upload funnel: files received, rows
// rejected locally, rows the platform accepted or refused.
type UploadMetrics struct {
	// UploadsFinished counts uploads by the state they ended in.
	UploadsFinished *prometheus.CounterVec

	// RowsValidated counts rows by client-side outcome (valid, invalid).
	RowsValidated *prometheus.CounterVec

	// RowsEnrolled counts rows by platform outcome (success, failed).
	RowsEnrolled *prometheus.CounterVec

	// PlatformLatency measures calls to the platform API.
	PlatformLatency *prometheus.HistogramVec

	// ActiveUploads is the number of uploads parsing or submitting right now.
	ActiveUploads prometheus.Gauge
}

// NewUploadMetrics creates upload metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewUploadMetrics(namespace string, reg prometheus.Registerer) *UploadMetrics {
	if namespace == "" {
		namespace = "binbill"
	}
	factory := promauto.With(reg)
	subsystem := "upload"

	return &UploadMetrics{
		UploadsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "finished_total",
				Help:      "Total uploads by terminal state",
			},
			[]string{"state"},
		),
		RowsValidated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rows_validated_total",
				Help:      "Total rows checked before submission",
			},
			[]string{"result"}, // result: valid, invalid
		),
		RowsEnrolled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rows_enrolled_total",
				Help:      "Total rows the platform accepted or rejected",
			},
			[]string{"result"}, // result: success, failed
		),
		PlatformLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "platform_request_duration_seconds",
				Help:      "Platform API call duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation", "outcome"},
		),
		ActiveUploads: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "active",
				Help:      "Uploads currently parsing or submitting",
			},
		),
	}
}

// RecordValidation records the outcome of validating a file.
func (m *UploadMetrics) RecordValidation(valid, invalid int) {
	m.RowsValidated.WithLabelValues("valid").Add(float64(valid))
	m.RowsValidated.WithLabelValues("invalid").Add(float64(invalid))
}

// RecordEnrollment records the platform's verdict on a batch.
func (m *UploadMetrics) RecordEnrollment(success, failed int) {
	m.RowsEnrolled.WithLabelValues("success").Add(float64(success))
	m.RowsEnrolled.WithLabelValues("failed").Add(float64(failed))
}

// RecordFinished counts an upload that reached a terminal state.
func (m *UploadMetrics) RecordFinished(state string) {
	m.UploadsFinished.WithLabelValues(state).Inc()
}

// ObservePlatformCall records how long a platform call took.
func (m *UploadMetrics) ObservePlatformCall(operation string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.PlatformLatency.WithLabelValues(operation, outcome).Observe(d.Seconds())
}
