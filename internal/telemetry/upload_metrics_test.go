package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewUploadMetrics("test", reg)

	m.RecordValidation(8, 2)
	m.RecordValidation(5, 0)
	m.RecordEnrollment(12, 1)
	m.RecordFinished("submit_succeeded")
	m.RecordFinished("validation_failed")
	m.RecordFinished("submit_succeeded")
	m.ObservePlatformCall("bulk_enroll", nil, 300*time.Millisecond)
	m.ObservePlatformCall("bulk_enroll", errors.New("boom"), time.Second)

	assert.Equal(t, 13.0, testutil.ToFloat64(m.RowsValidated.WithLabelValues("valid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsValidated.WithLabelValues("invalid")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.RowsEnrolled.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UploadsFinished.WithLabelValues("submit_succeeded")))

	n, err := testutil.GatherAndCount(reg, "test_upload_platform_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUploadMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewUploadMetrics("test", prometheus.NewRegistry())
		NewUploadMetrics("test", prometheus.NewRegistry())
	})
}

func TestCaptureError_DisabledIsNoop(t *testing.T) {
	sentryEnabled = false
	assert.False(t, IsEnabled())
	assert.NotPanics(t, func() {
		CaptureError(errors.New("x"), map[string]interface{}{"upload_id": "u1"})
	})
}
