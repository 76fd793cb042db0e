// Package analytics streams query events to Kafka without blocking the
// retrieval path. Events are buffered in memory and dropped under pressure
// rather than slowing a search down.
package analytics

import "time"

type EventType string

const (
	EventQuery      EventType = "query"
	EventZeroResult EventType = "zero_result"
	EventFeedback   EventType = "feedback"
)

// QueryEvent records one retrieval request and its outcome.
type QueryEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	Results   int       `json:"results"`
	TopScore  float64   `json:"top_score"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// FeedbackEvent records one relevance-feedback reformulation round.
type FeedbackEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Relevant  int       `json:"relevant"`
	NonRel    int       `json:"non_relevant"`
	Rated     bool      `json:"rated"`
	Results   int       `json:"results"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
