package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/qquiche/ir/internal/analytics"
	"github.com/qquiche/ir/internal/corpus"
	apperrors "github.com/qquiche/ir/pkg/errors"
	"github.com/qquiche/ir/pkg/logger"
	"github.com/qquiche/ir/pkg/metrics"
)

// Handler serves the retrieval API. Cache and collector are optional; a nil
// cache computes every query and a nil collector drops analytics.
type Handler struct {
	engine       *Engine
	cache        *ResultCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	tokCfg       corpus.Config
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func NewHandler(engine *Engine, cache *ResultCache, collector *analytics.Collector, m *metrics.Metrics, tokCfg corpus.Config, defaultLimit, maxResults int) *Handler {
	return &Handler{
		engine:       engine,
		cache:        cache,
		collector:    collector,
		metrics:      m,
		tokCfg:       tokCfg,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "http-handler"),
	}
}

// Search handles GET /api/v1/search?q=...&limit=N.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	var result *SearchResult
	var err error
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, func() (*SearchResult, error) {
			return h.engine.Search(ctx, query, limit)
		})
	} else {
		result, err = h.engine.Search(ctx, query, limit)
	}
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.writeAppError(w, err)
		return
	}

	elapsed := time.Since(start)
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.metrics.RetrievalLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())

	log.Info("search completed",
		"query", query,
		"total", result.Total,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)
	h.track(ctx, query, result, cacheHit, elapsed)
	h.writeJSON(w, http.StatusOK, result)
}

// Feedback handles POST /api/v1/feedback.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		h.writeError(w, http.StatusBadRequest, "field 'query' is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = h.defaultLimit
	}
	if req.Limit > h.maxResults {
		req.Limit = h.maxResults
	}

	result, err := h.engine.Feedback(ctx, req)
	if err != nil {
		log.Error("feedback reformulation failed", "query", req.Query, "error", err)
		h.writeAppError(w, err)
		return
	}

	elapsed := time.Since(start)
	log.Info("feedback round completed",
		"query", req.Query,
		"relevant", len(req.Relevant),
		"non_relevant", len(req.NonRelevant),
		"returned", len(result.Results),
		"latency_ms", elapsed.Milliseconds(),
	)
	if h.collector != nil {
		rated := false
		for _, j := range append(req.Relevant, req.NonRelevant...) {
			if j.Rating != nil {
				rated = true
				break
			}
		}
		h.collector.Track(analytics.FeedbackEvent{
			Type:      analytics.EventFeedback,
			Query:     req.Query,
			Relevant:  len(req.Relevant),
			NonRel:    len(req.NonRelevant),
			Rated:     rated,
			Results:   result.Total,
			LatencyMs: elapsed.Milliseconds(),
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, result)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return 0, false
		}
		limit = parsed
	}
	if limit > h.maxResults {
		limit = h.maxResults
	}
	return limit, true
}

func (h *Handler) track(ctx context.Context, query string, result *SearchResult, cacheHit bool, elapsed time.Duration) {
	if h.collector == nil {
		return
	}
	eventType := analytics.EventQuery
	if result.Total == 0 {
		eventType = analytics.EventZeroResult
	}
	topScore := 0.0
	if len(result.Results) > 0 {
		topScore = result.Results[0].Score
	}
	h.collector.Track(analytics.QueryEvent{
		Type:      eventType,
		Query:     query,
		Terms:     corpus.Terms(query, h.tokCfg),
		Results:   result.Total,
		TopScore:  topScore,
		LatencyMs: elapsed.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	})
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
