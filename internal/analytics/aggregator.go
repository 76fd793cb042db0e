package analytics

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
)

// Aggregator keeps running in-process statistics over the event stream. The
// collector feeds it as events are published, so the stats endpoint works
// even when Kafka is down.
type Aggregator struct {
	mu             sync.Mutex
	totalQueries   int64
	zeroResults    int64
	cacheHits      int64
	feedbackRounds int64
	latencySumMs   int64
	queryCounts    map[string]int64
}

func NewAggregator() *Aggregator {
	return &Aggregator{queryCounts: make(map[string]int64)}
}

// Record folds one event into the running totals. Unknown event types are
// ignored.
func (a *Aggregator) Record(event any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch e := event.(type) {
	case QueryEvent:
		a.totalQueries++
		a.latencySumMs += e.LatencyMs
		a.queryCounts[e.Query]++
		if e.Type == EventZeroResult {
			a.zeroResults++
		}
		if e.CacheHit {
			a.cacheHits++
		}
	case FeedbackEvent:
		a.feedbackRounds++
	}
}

// QueryCount is one entry of the most-frequent-queries list.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Stats is a point-in-time snapshot of aggregated analytics.
type Stats struct {
	TotalQueries   int64        `json:"total_queries"`
	ZeroResults    int64        `json:"zero_results"`
	CacheHits      int64        `json:"cache_hits"`
	FeedbackRounds int64        `json:"feedback_rounds"`
	AvgLatencyMs   float64      `json:"avg_latency_ms"`
	TopQueries     []QueryCount `json:"top_queries"`
}

const topQueryCount = 10

// Snapshot returns current totals and the ten most frequent queries.
func (a *Aggregator) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{
		TotalQueries:   a.totalQueries,
		ZeroResults:    a.zeroResults,
		CacheHits:      a.cacheHits,
		FeedbackRounds: a.feedbackRounds,
	}
	if a.totalQueries > 0 {
		s.AvgLatencyMs = float64(a.latencySumMs) / float64(a.totalQueries)
	}
	for query, count := range a.queryCounts {
		s.TopQueries = append(s.TopQueries, QueryCount{Query: query, Count: count})
	}
	sort.Slice(s.TopQueries, func(i, j int) bool {
		if s.TopQueries[i].Count != s.TopQueries[j].Count {
			return s.TopQueries[i].Count > s.TopQueries[j].Count
		}
		return s.TopQueries[i].Query < s.TopQueries[j].Query
	})
	if len(s.TopQueries) > topQueryCount {
		s.TopQueries = s.TopQueries[:topQueryCount]
	}
	return s
}

// StatsHandler serves the aggregated analytics snapshot as JSON.
func (a *Aggregator) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(a.Snapshot())
	}
}
