// Package eval measures retrieval quality: interpolated precision at the
// eleven standard recall levels, and simulated relevance-feedback experiments
// that mark the top retrievals, reformulate, and evaluate the revised query
// on the residual corpus.
package eval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qquiche/ir/internal/feedback"
	"github.com/qquiche/ir/internal/index"
)

// StandardRecalls are the eleven recall levels precision is interpolated at.
var StandardRecalls = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

// Judgment is one evaluation query with its known relevant document IDs.
// Ratings optionally grades relevance per document in [-1, 1]; documents
// without an entry default to +1 when relevant and -1 otherwise.
type Judgment struct {
	Query    string
	Relevant map[string]struct{}
	Ratings  map[string]float64
}

// FeedbackMode selects how a simulated experiment treats the top retrievals.
type FeedbackMode int

const (
	// ModeControl removes the feedback documents without reformulating,
	// isolating the effect of the update itself.
	ModeControl FeedbackMode = iota
	// ModeBinary marks feedback documents relevant/non-relevant with unit
	// weight.
	ModeBinary
	// ModeRated marks feedback documents with their graded ratings.
	ModeRated
)

// InterpolatedPrecision computes precision at each standard recall level for
// one ranked result list: the precision at level r is the maximum precision
// observed at any recall >= r.
func InterpolatedPrecision(results []index.Result, relevant map[string]struct{}) []float64 {
	precisions := make([]float64, len(StandardRecalls))
	if len(relevant) == 0 {
		return precisions
	}

	type point struct{ recall, precision float64 }
	var curve []point
	hits := 0
	for rank, r := range results {
		if _, ok := relevant[r.DocID]; ok {
			hits++
			curve = append(curve, point{
				recall:    float64(hits) / float64(len(relevant)),
				precision: float64(hits) / float64(rank+1),
			})
		}
	}

	for i, level := range StandardRecalls {
		best := 0.0
		for _, p := range curve {
			if p.recall >= level && p.precision > best {
				best = p.precision
			}
		}
		precisions[i] = best
	}
	return precisions
}

// Experiment runs simulated relevance feedback over a built index.
type Experiment struct {
	Index *index.Index
	// Feedback holds the Rocchio weights used for reformulation.
	Feedback feedback.Options
	// NumFeedbackDocs is how many top retrievals receive simulated feedback.
	NumFeedbackDocs int
	Mode            FeedbackMode

	logger *slog.Logger
}

// Run evaluates every judgment and returns the precision at each standard
// recall level averaged over queries.
func (e *Experiment) Run(ctx context.Context, judgments []Judgment) ([]float64, error) {
	if e.logger == nil {
		e.logger = slog.Default().With("component", "eval")
	}
	sums := make([]float64, len(StandardRecalls))
	for _, j := range judgments {
		precisions, err := e.runQuery(ctx, j)
		if err != nil {
			return nil, fmt.Errorf("evaluating query %q: %w", j.Query, err)
		}
		for i, p := range precisions {
			sums[i] += p
		}
	}
	if len(judgments) > 0 {
		for i := range sums {
			sums[i] /= float64(len(judgments))
		}
	}
	return sums, nil
}

func (e *Experiment) runQuery(ctx context.Context, j Judgment) ([]float64, error) {
	results, err := e.Index.Retrieve(j.Query)
	if err != nil {
		return nil, err
	}

	n := e.NumFeedbackDocs
	if n > len(results) {
		n = len(results)
	}
	marked := results[:n]

	final := results
	if e.Mode != ModeControl && n > 0 {
		final, err = e.reformulate(ctx, j, marked)
		if err != nil {
			return nil, err
		}
	}

	// Evaluate on the residual corpus: feedback documents are excluded from
	// both the ranking and the relevant set.
	seen := make(map[string]struct{}, n)
	for _, r := range marked {
		seen[r.DocID] = struct{}{}
	}
	var residual []index.Result
	for _, r := range final {
		if _, ok := seen[r.DocID]; !ok {
			residual = append(residual, r)
		}
	}
	residualRelevant := make(map[string]struct{})
	for id := range j.Relevant {
		if _, ok := seen[id]; !ok {
			residualRelevant[id] = struct{}{}
		}
	}

	e.logger.Debug("query evaluated",
		"query", j.Query,
		"retrieved", len(results),
		"feedback_docs", n,
		"residual_relevant", len(residualRelevant),
	)
	return InterpolatedPrecision(residual, residualRelevant), nil
}

func (e *Experiment) reformulate(ctx context.Context, j Judgment, marked []index.Result) ([]index.Result, error) {
	q := e.Index.ParseQuery(j.Query)
	reform := feedback.New(q.Vector, e.Index, e.Feedback)
	for _, r := range marked {
		_, relevant := j.Relevant[r.DocID]
		switch {
		case e.Mode == ModeRated:
			rating, ok := j.Ratings[r.DocID]
			if !ok {
				rating = -1
				if relevant {
					rating = 1
				}
			}
			var err error
			if relevant {
				err = reform.AddGoodRated(r.Doc, rating)
			} else {
				err = reform.AddBadRated(r.Doc, rating)
			}
			if err != nil {
				return nil, err
			}
		case relevant:
			reform.AddGood(r.Doc)
		default:
			reform.AddBad(r.Doc)
		}
	}

	newQuery, err := reform.NewQuery(ctx)
	if err != nil {
		return nil, err
	}
	return e.Index.RetrieveVector(newQuery)
}
