package mockapi

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics instruments the stub backend. Collectors live on a private
// registry so several servers can coexist in one test process.
type Metrics struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	activeJobs  prometheus.GaugeFunc
	duration    *prometheus.HistogramVec
	requests    *prometheus.CounterVec
}

// NewMetrics creates and registers the stub's collectors. activeJobs reads
// the job table on scrape.
func NewMetrics(activeJobs func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptmesh_submissions_total",
				Help: "Total job submissions accepted by the stub backend",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "promptmesh_job_duration_seconds",
				Help:    "Wall-clock duration of simulated jobs",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"kind"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptmesh_http_requests_total",
				Help: "HTTP requests handled by the stub backend",
			},
			[]string{"method", "endpoint", "status"},
		),
	}
	m.activeJobs = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "promptmesh_active_jobs",
			Help: "Simulated jobs not yet in a terminal state",
		},
		func() float64 { return float64(activeJobs()) },
	)

	m.registry.MustRegister(m.submissions)
	m.registry.MustRegister(m.activeJobs)
	m.registry.MustRegister(m.duration)
	m.registry.MustRegister(m.requests)
	return m
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts every handled request by method, path, and status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		m.requests.WithLabelValues(r.Method, r.URL.Path, fmt.Sprintf("%d", rw.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
