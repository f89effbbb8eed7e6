package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Belphemur/BackdropFetcher/internal/metrics"
)

var (
	requestDuration  *prometheus.HistogramVec
	requestsTotal    *prometheus.CounterVec
	registerHTTPOnce sync.Once
)

func registerHTTPMetrics() {
	registerHTTPOnce.Do(func() {
		requestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "backdrops",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency of API requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"handler", "code", "method"},
		)
		requestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "backdrops",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "API requests by handler and status code.",
			},
			[]string{"handler", "code", "method"},
		)
		prometheus.MustRegister(requestDuration, requestsTotal)
	})
}

// instrument wraps h with request counters and latency for the named handler
func instrument(name string, h http.HandlerFunc) http.Handler {
	labels := prometheus.Labels{"handler": name}
	return promhttp.InstrumentHandlerDuration(
		requestDuration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(requestsTotal.MustCurryWith(labels), h),
	)
}

// NewHandler builds the API routes. metricsEnabled mounts /metrics.
func NewHandler(r Runner, nextRun NextRunFunc, metricsEnabled bool) http.Handler {
	registerHTTPMetrics()
	s := newServer(r, nextRun)

	mux := http.NewServeMux()
	mux.Handle("POST /api/run", instrument("run", s.handleRun))
	mux.Handle("GET /api/status", instrument("status", s.handleStatus))
	mux.Handle("GET /api/config", instrument("get_config", s.handleGetConfig))
	mux.Handle("PUT /api/config", instrument("put_config", s.handlePutConfig))
	mux.Handle("GET /backdrops/", instrument("backdrops", s.handleBackdrops))
	mux.Handle("GET /healthz", instrument("health", s.handleHealth))
	if metricsEnabled {
		metrics.Register(mux)
	}
	return mux
}

// NewHTTPServer creates the server listening on address:port
func NewHTTPServer(address string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", address, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
