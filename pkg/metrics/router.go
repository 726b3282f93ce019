package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultPath = "/debug/prometheus"

// NewRouter exposes the gatherer on path plus a plain /healthz probe.
func NewRouter(path string, gatherer prometheus.Gatherer) *mux.Router {
	if path == "" {
		path = DefaultPath
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r := mux.NewRouter()
	r.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}
