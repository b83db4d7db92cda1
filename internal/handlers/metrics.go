package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves Prometheus metrics. The thumbnail cache gauges are
// refreshed on each scrape since nothing else walks the cache directory.
func (h *Handlers) MetricsHandler() http.Handler {
	prom := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.thumbGen.UpdateCacheMetrics()
		prom.ServeHTTP(w, r)
	})
}
