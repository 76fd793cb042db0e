package server

import (
	"net/http"

	"github.com/qquiche/ir/internal/analytics"
	"github.com/qquiche/ir/pkg/health"
)

// Routes builds the service mux. The analytics aggregator and health checker
// are optional; their endpoints are omitted when nil.
func Routes(h *Handler, agg *analytics.Aggregator, checker *health.Checker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/feedback", h.Feedback)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	if agg != nil {
		mux.HandleFunc("GET /api/v1/analytics", agg.StatsHandler())
	}
	if checker != nil {
		mux.HandleFunc("GET /health/live", checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	}
	return mux
}
