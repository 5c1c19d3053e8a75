// Package metrics exposes Prometheus metrics for assessment requests and workflow phases.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultNamespace = "resume_coach"
	shutdownTimeout  = 5 * time.Second
)

// The backend is slow to wake up, so the buckets reach well past the default 10s.
var defaultBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// Recorder owns a registry and the collectors on it. A nil Recorder records nothing.
type Recorder struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	phases   *prometheus.CounterVec
}

func New(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: defaultNamespace,
		buckets:   defaultBuckets,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(r.registry)
	r.requests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "assessment_requests_total",
		Help:      "Assessment service requests by kind and outcome",
	}, []string{"kind", "outcome"})

	r.duration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "assessment_request_duration_seconds",
		Help:      "Assessment service request latency",
		Buckets:   r.buckets,
	}, []string{"kind"})

	r.phases = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "phase_entries_total",
		Help:      "Workflow phase entries, re-entries included",
	}, []string{"phase"})

	return r
}

// ObserveRequest records one finished assessment request.
func (r *Recorder) ObserveRequest(kind, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(kind, outcome).Inc()
	r.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// PhaseEntered counts an entry into phase.
func (r *Recorder) PhaseEntered(phase string) {
	if r == nil {
		return
	}
	r.phases.WithLabelValues(phase).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
