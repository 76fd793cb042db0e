// Package server exposes the retrieval core over HTTP: a search endpoint, a
// relevance-feedback endpoint, and cache administration, with Redis result
// caching and Kafka-backed query analytics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/qquiche/ir/internal/feedback"
	"github.com/qquiche/ir/internal/index"
	"github.com/qquiche/ir/internal/vector"
	"github.com/qquiche/ir/pkg/errors"
	"github.com/qquiche/ir/pkg/metrics"
)

// SearchResult is the JSON payload for a ranked retrieval.
type SearchResult struct {
	Query    string         `json:"query"`
	Total    int            `json:"total"`
	Results  []index.Result `json:"results"`
	Warnings []string       `json:"warnings,omitempty"`
}

// DocJudgment is one relevance judgment in a feedback request. A nil Rating
// means binary feedback with full unit weight.
type DocJudgment struct {
	DocID  string   `json:"docId"`
	Rating *float64 `json:"rating,omitempty"`
}

// FeedbackRequest reformulates a query from relevance judgments and reruns
// the retrieval with the new query vector.
type FeedbackRequest struct {
	Query       string        `json:"query"`
	Relevant    []DocJudgment `json:"relevant"`
	NonRelevant []DocJudgment `json:"nonRelevant"`
	Limit       int           `json:"limit"`
}

// Engine drives the index for the HTTP layer.
type Engine struct {
	idx     *index.Index
	fbOpts  feedback.Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewEngine(idx *index.Index, fbOpts feedback.Options, m *metrics.Metrics) *Engine {
	return &Engine{
		idx:     idx,
		fbOpts:  fbOpts,
		metrics: m,
		logger:  slog.Default().With("component", "engine"),
	}
}

// Search ranks the corpus against raw query text and returns at most limit
// results.
func (e *Engine) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	start := time.Now()
	results, err := e.idx.Retrieve(query)
	if err != nil {
		e.metrics.QueriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	total := len(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	outcome := "results"
	if total == 0 {
		outcome = "zero_results"
	}
	e.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	e.metrics.ResultsCount.Observe(float64(total))

	e.logger.Debug("query executed",
		"query", query,
		"total", total,
		"returned", len(results),
		"duration", time.Since(start),
	)
	return &SearchResult{Query: query, Total: total, Results: results}, nil
}

// Feedback applies Rocchio reformulation from the request's judgments, then
// reruns retrieval with the new query vector. Out-of-range ratings are
// recorded neutral and surfaced as warnings rather than failing the request.
func (e *Engine) Feedback(ctx context.Context, req FeedbackRequest) (*SearchResult, error) {
	q := e.idx.ParseQuery(req.Query)
	reform := feedback.New(q.Vector, e.idx, e.fbOpts)

	byID := make(map[string]*index.DocumentReference, e.idx.DocCount())
	for _, ref := range e.idx.DocRefs() {
		byID[ref.ID] = ref
	}

	var warnings []string
	mark := func(j DocJudgment, relevant bool) error {
		ref, ok := byID[j.DocID]
		if !ok {
			return errors.Newf(errors.ErrDocumentNotFound, http.StatusNotFound, "document %q is not in the index", j.DocID)
		}
		var err error
		switch {
		case j.Rating == nil && relevant:
			reform.AddGood(ref)
		case j.Rating == nil:
			reform.AddBad(ref)
		case relevant:
			err = reform.AddGoodRated(ref, *j.Rating)
		default:
			err = reform.AddBadRated(ref, *j.Rating)
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("document %s: %v", j.DocID, err))
		}
		return nil
	}
	for _, j := range req.Relevant {
		if err := mark(j, true); err != nil {
			return nil, err
		}
	}
	for _, j := range req.NonRelevant {
		if err := mark(j, false); err != nil {
			return nil, err
		}
	}

	newVec, err := reform.NewQuery(ctx)
	if err != nil {
		return nil, fmt.Errorf("reformulating query: %w", err)
	}
	e.metrics.FeedbackRounds.Inc()

	results, err := e.retrieveVector(newVec)
	if err != nil {
		return nil, err
	}
	total := len(results)
	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return &SearchResult{Query: req.Query, Total: total, Results: results, Warnings: warnings}, nil
}

func (e *Engine) retrieveVector(qv vector.TermVector) ([]index.Result, error) {
	return e.idx.RetrieveVector(qv)
}
