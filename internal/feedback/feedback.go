// Package feedback implements Rocchio-style query reformulation from user
// relevance feedback, in a binary variant (relevant / non-relevant) and a
// rated variant with continuous ratings in [-1, 1].
package feedback

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qquiche/ir/internal/index"
	"github.com/qquiche/ir/internal/vector"
	"github.com/qquiche/ir/pkg/errors"
	"github.com/qquiche/ir/pkg/resilience"
)

// Loader re-derives a document's term vector from its reference, using the
// same tokenizer configuration the index was built with. Loads may hit slow
// storage, so they are retried with backoff.
type Loader interface {
	LoadVector(ctx context.Context, ref *index.DocumentReference) (vector.TermVector, error)
}

// Options holds the Rocchio weights: Alpha scales the original query, Beta
// the pull toward relevant documents, Gamma the push away from non-relevant
// ones. Zero values default to 1.0.
type Options struct {
	Alpha float64
	Beta  float64
	Gamma float64
	Retry resilience.RetryConfig
}

// DefaultOptions returns unit Rocchio weights.
func DefaultOptions() Options {
	return Options{Alpha: 1.0, Beta: 1.0, Gamma: 1.0}
}

// Reformulator accumulates relevance judgments against one query and produces
// the reweighted query vector. It reads the index only through Loader and
// owns its own good/bad sets.
type Reformulator struct {
	queryVector vector.TermVector
	loader      Loader
	opts        Options

	good    []*index.DocumentReference
	bad     []*index.DocumentReference
	ratings map[*index.DocumentReference]float64
	logger  *slog.Logger
}

// New creates a Reformulator for binary feedback: every relevant document
// pulls with full unit weight and every non-relevant one pushes with full
// unit weight.
func New(queryVector vector.TermVector, loader Loader, opts Options) *Reformulator {
	if opts.Alpha == 0 && opts.Beta == 0 && opts.Gamma == 0 {
		opts = Options{Alpha: 1.0, Beta: 1.0, Gamma: 1.0, Retry: opts.Retry}
	}
	return &Reformulator{
		queryVector: queryVector,
		loader:      loader,
		opts:        opts,
		ratings:     make(map[*index.DocumentReference]float64),
		logger:      slog.Default().With("component", "feedback"),
	}
}

// AddGood marks a document relevant with a full unit rating.
func (r *Reformulator) AddGood(ref *index.DocumentReference) {
	r.good = append(r.good, ref)
	r.ratings[ref] = 1.0
}

// AddBad marks a document non-relevant with a full unit rating.
func (r *Reformulator) AddBad(ref *index.DocumentReference) {
	r.bad = append(r.bad, ref)
	r.ratings[ref] = -1.0
}

// AddGoodRated marks a document relevant with a continuous rating in (0, 1].
// An out-of-range rating is recorded as neutral 0 and reported to the caller;
// it never corrupts the reformulated query.
func (r *Reformulator) AddGoodRated(ref *index.DocumentReference, rating float64) error {
	r.good = append(r.good, ref)
	if rating < -1.0 || rating > 1.0 {
		r.logger.Warn("rating out of range, recording neutral 0",
			"doc_id", ref.ID,
			"rating", rating,
		)
		r.ratings[ref] = 0
		return fmt.Errorf("rating %v for %s: %w", rating, ref.ID, errors.ErrInvalidRating)
	}
	r.ratings[ref] = rating
	return nil
}

// AddBadRated marks a document non-relevant with a continuous rating in
// [-1, 0). Out-of-range ratings are recorded as neutral 0.
func (r *Reformulator) AddBadRated(ref *index.DocumentReference, rating float64) error {
	r.bad = append(r.bad, ref)
	if rating < -1.0 || rating > 1.0 {
		r.logger.Warn("rating out of range, recording neutral 0",
			"doc_id", ref.ID,
			"rating", rating,
		)
		r.ratings[ref] = 0
		return fmt.Errorf("rating %v for %s: %w", rating, ref.ID, errors.ErrInvalidRating)
	}
	r.ratings[ref] = rating
	return nil
}

// Rating returns the recorded rating for a document, or a neutral 0 if it
// was never marked.
func (r *Reformulator) Rating(ref *index.DocumentReference) float64 {
	return r.ratings[ref]
}

// IsEmpty reports whether no feedback has been recorded yet.
func (r *Reformulator) IsEmpty() bool {
	return len(r.good) == 0 && len(r.bad) == 0
}

// HasFeedback reports whether the given document was already marked.
func (r *Reformulator) HasFeedback(ref *index.DocumentReference) bool {
	_, ok := r.ratings[ref]
	return ok
}

// NewQuery produces the reformulated query vector:
//
//	Q' = α·norm(Q) + Σ_good β·rating·norm(D) − Σ_bad γ·|rating|·norm(D)
//
// where norm scales a vector so its maximum component is 1. Document vectors
// are re-derived through the loader. With no feedback recorded the result is
// α·norm(Q).
func (r *Reformulator) NewQuery(ctx context.Context) (vector.TermVector, error) {
	newQuery := r.queryVector.Copy()
	scaleByMax(newQuery, r.opts.Alpha)

	for _, ref := range r.good {
		v, err := r.loadVector(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("loading relevant document %s: %w", ref.ID, err)
		}
		scaleByMax(v, r.opts.Beta*r.ratings[ref])
		newQuery.Add(v)
	}
	for _, ref := range r.bad {
		v, err := r.loadVector(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("loading non-relevant document %s: %w", ref.ID, err)
		}
		scaleByMax(v, r.opts.Gamma*-r.ratings[ref])
		newQuery.Subtract(v)
	}
	return newQuery, nil
}

func (r *Reformulator) loadVector(ctx context.Context, ref *index.DocumentReference) (vector.TermVector, error) {
	var v vector.TermVector
	err := resilience.Retry(ctx, "load-feedback-doc", r.opts.Retry, func() error {
		var err error
		v, err = r.loader.LoadVector(ctx, ref)
		return err
	})
	return v, err
}

// scaleByMax rescales v by factor/maxComponent(v). An empty or all-zero
// vector is left untouched to avoid dividing by zero.
func scaleByMax(v vector.TermVector, factor float64) {
	mw := v.MaxWeight()
	if mw == 0 {
		return
	}
	v.Scale(factor / mw)
}
