// Package metrics exposes the Prometheus scrape endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the HTTP handler serving the default Prometheus registry.
// Domain counters register themselves via promauto at construction time.
func Handler() http.Handler {
	return promhttp.Handler()
}
