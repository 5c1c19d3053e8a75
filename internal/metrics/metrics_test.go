package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	return rec.Body.String()
}

func TestRecorderExposesMetrics(t *testing.T) {
	r := New()

	r.ObserveRequest("score", "ok", 1500*time.Millisecond)
	r.ObserveRequest("score", "ok", 2*time.Second)
	r.ObserveRequest("evaluate", "error", time.Second)
	r.PhaseEntered("analysis")

	body := scrape(t, r.Handler())
	assert.Contains(t, body, `resume_coach_assessment_requests_total{kind="score",outcome="ok"} 2`)
	assert.Contains(t, body, `resume_coach_assessment_requests_total{kind="evaluate",outcome="error"} 1`)
	assert.Contains(t, body, `resume_coach_assessment_request_duration_seconds_count{kind="score"} 2`)
	assert.Contains(t, body, `resume_coach_assessment_request_duration_seconds_sum{kind="score"} 3.5`)
	assert.Contains(t, body, `resume_coach_phase_entries_total{phase="analysis"} 1`)
}

func TestRecorderOptions(t *testing.T) {
	registry := prometheus.NewRegistry()
	r := New(WithRegistry(registry), WithNamespace("coach"), WithHistogramBuckets([]float64{1}))
	r.ObserveRequest("questions", "ok", 500*time.Millisecond)

	assert.Same(t, registry, r.Registry())

	body := scrape(t, r.Handler())
	assert.Contains(t, body, `coach_assessment_request_duration_seconds_bucket{kind="questions",le="1"} 1`)
	assert.NotContains(t, body, "resume_coach_")
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.ObserveRequest("score", "ok", time.Second)
		r.PhaseEntered("upload")
	})
	assert.Nil(t, r.Registry())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	r := New()
	r.PhaseEntered("upload")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, addr) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, body, `resume_coach_phase_entries_total{phase="upload"} 1`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
