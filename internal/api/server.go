package api

import (
	"fmt"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/middleware"
)

// NewServer mounts h and the health probes behind the request ID and
// timeout middleware. With m set every route is instrumented.
func NewServer(cfg config.ServerConfig, h *Handler, checker *health.Checker, m *metrics.Metrics) *http.Server {
	routes := append(h.Routes(),
		Route{"GET /health/live", checker.LiveHandler()},
		Route{"GET /health/ready", checker.ReadyHandler()},
	)
	mux := http.NewServeMux()
	for _, r := range routes {
		var handler http.Handler = r.Handler
		if m != nil {
			handler = middleware.Metrics(m, r.Pattern, handler)
		}
		mux.Handle(r.Pattern, handler)
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      chain,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
