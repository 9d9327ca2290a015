package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler returns the Prometheus scrape handler. It serves every
// promauto-registered series in this package.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
