package eval

import (
	"context"
	"math"
	"testing"

	"github.com/qquiche/ir/internal/corpus"
	"github.com/qquiche/ir/internal/feedback"
	"github.com/qquiche/ir/internal/index"
)

type memSource struct {
	ids  []string
	docs map[string]string
}

func (s *memSource) Documents(_ context.Context) ([]corpus.Document, error) {
	docs := make([]corpus.Document, 0, len(s.ids))
	for _, id := range s.ids {
		docs = append(docs, corpus.Document{ID: id, Text: s.docs[id]})
	}
	return docs, nil
}

func (s *memSource) Load(_ context.Context, id string) (corpus.Document, error) {
	return corpus.Document{ID: id, Text: s.docs[id]}, nil
}

func ranked(ids ...string) []index.Result {
	results := make([]index.Result, len(ids))
	for i, id := range ids {
		results[i] = index.Result{DocID: id, Score: float64(len(ids) - i)}
	}
	return results
}

func relevantSet(ids ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestInterpolatedPrecisionPerfectRanking(t *testing.T) {
	// Both relevant docs ranked first: precision 1.0 at every level.
	precisions := InterpolatedPrecision(ranked("r1", "r2", "x1", "x2"), relevantSet("r1", "r2"))
	for i, p := range precisions {
		if math.Abs(p-1.0) > 1e-9 {
			t.Errorf("precision at recall %.1f = %v, want 1.0", StandardRecalls[i], p)
		}
	}
}

func TestInterpolatedPrecisionPartialRanking(t *testing.T) {
	// Relevant docs at ranks 1 and 4 of 4.
	precisions := InterpolatedPrecision(ranked("r1", "x1", "x2", "r2"), relevantSet("r1", "r2"))
	// Up to recall 0.5 the best precision is 1.0 (hit at rank 1); beyond it
	// the curve drops to 2/4.
	for i, level := range StandardRecalls {
		want := 0.5
		if level <= 0.5 {
			want = 1.0
		}
		if math.Abs(precisions[i]-want) > 1e-9 {
			t.Errorf("precision at recall %.1f = %v, want %v", level, precisions[i], want)
		}
	}
}

func TestInterpolatedPrecisionNoRelevant(t *testing.T) {
	precisions := InterpolatedPrecision(ranked("x1"), relevantSet())
	for _, p := range precisions {
		if p != 0 {
			t.Fatalf("precisions = %v, want all zero", precisions)
		}
	}
}

func buildTestIndex(t *testing.T) *index.Index {
	t.Helper()
	src := &memSource{
		ids: []string{"d1", "d2", "d3", "d4"},
		docs: map[string]string{
			"d1": "solar panels generate electricity",
			"d2": "solar flares disrupt radio",
			"d3": "panels generate clean electricity daily",
			"d4": "radio hosts talk daily",
		},
	}
	idx := index.New(src, corpus.Config{}, index.DefaultOptions())
	if err := idx.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func TestExperimentModes(t *testing.T) {
	idx := buildTestIndex(t)
	judgments := []Judgment{
		{
			Query:    "solar electricity",
			Relevant: relevantSet("d1", "d3"),
		},
	}

	for _, mode := range []FeedbackMode{ModeControl, ModeBinary, ModeRated} {
		exp := &Experiment{
			Index:           idx,
			Feedback:        feedback.DefaultOptions(),
			NumFeedbackDocs: 1,
			Mode:            mode,
		}
		precisions, err := exp.Run(context.Background(), judgments)
		if err != nil {
			t.Fatalf("mode %d: Run: %v", mode, err)
		}
		if len(precisions) != len(StandardRecalls) {
			t.Fatalf("mode %d: got %d levels, want %d", mode, len(precisions), len(StandardRecalls))
		}
		for _, p := range precisions {
			if p < 0 || p > 1 {
				t.Errorf("mode %d: precision %v outside [0,1]", mode, p)
			}
		}
	}
}

func TestExperimentNoJudgments(t *testing.T) {
	exp := &Experiment{Index: buildTestIndex(t), Feedback: feedback.DefaultOptions(), NumFeedbackDocs: 2, Mode: ModeBinary}
	precisions, err := exp.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, p := range precisions {
		if p != 0 {
			t.Fatalf("precisions = %v, want zeros", precisions)
		}
	}
}
