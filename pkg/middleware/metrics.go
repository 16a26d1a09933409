package middleware

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/metrics"
)

// Metrics instruments the handler of one route. pattern, the mux pattern
// the handler is registered under, becomes the path label, so label values
// are bounded by the route table rather than by request paths.
func Metrics(m *metrics.Metrics, pattern string, next http.Handler) http.Handler {
	route := prometheus.Labels{"path": pattern}
	h := promhttp.InstrumentHandlerDuration(m.HTTPRequestDuration.MustCurryWith(route), next)
	h = promhttp.InstrumentHandlerCounter(m.HTTPRequestsTotal.MustCurryWith(route), h)
	return promhttp.InstrumentHandlerInFlight(m.HTTPRequestsInFlight, h)
}
