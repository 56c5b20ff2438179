package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/tsender/internal/airdrop"
)

func TestOnStepCountsStepsAndOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	var obs airdrop.Observer = m
	obs.OnStep(airdrop.Event{Step: airdrop.StepAllowance, ChainID: 31337, Elapsed: time.Second})
	obs.OnStep(airdrop.Event{Step: airdrop.StepAirdrop, ChainID: 31337})
	obs.OnStep(airdrop.Event{Step: airdrop.StepAirdropConfirmed, ChainID: 31337})
	obs.OnStep(airdrop.Event{Step: airdrop.StepFailed, ChainID: 1})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepsTotal.WithLabelValues("allowance", "31337")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("success", "31337")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("failed", "1")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("failed", "31337")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.stepDuration))
}

func TestOnStepFailureHasNoDuration(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.OnStep(airdrop.Event{Step: airdrop.StepFailed, ChainID: 31337})
	m.OnStep(airdrop.Event{Step: airdrop.StepFailed, ChainID: 31337})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.stepsTotal.WithLabelValues("failed", "31337")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("failed", "31337")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.stepDuration))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	h := HTTPMetricsMiddleware(m, "/api/airdrop")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/airdrop", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	ok := HTTPMetricsMiddleware(m, "/healthz")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/airdrop", "POST", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/healthz", "GET", "2xx")))
}

func TestHTTPMetricsMiddlewareNilMetrics(t *testing.T) {
	h := HTTPMetricsMiddleware(nil, "/x")(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusCodeToString(t *testing.T) {
	assert.Equal(t, "2xx", statusCodeToString(201))
	assert.Equal(t, "5xx", statusCodeToString(503))
	assert.Equal(t, "unknown", statusCodeToString(99))
}
