package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Register mounts the metrics endpoint at /metrics on mux.
func Register(mux *http.ServeMux) {
	mux.Handle("/metrics", Handler())
}
