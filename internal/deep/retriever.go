// Package deep ranks documents by similarity between precomputed dense
// embedding vectors. Each document is a file holding a space-separated list
// of real values; queries are embeddings of the same dimension.
package deep

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/qquiche/ir/pkg/errors"
)

// DocVector is one embedded document: its ID, dense vector, and cached
// Euclidean length.
type DocVector struct {
	ID     string
	Vector []float64
	Length float64
}

// Result is one ranked embedding retrieval.
type Result struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Metric selects the similarity used for ranking.
type Metric int

const (
	// MetricEuclidean ranks by inverse Euclidean distance.
	MetricEuclidean Metric = iota
	// MetricCosine ranks by cosine similarity.
	MetricCosine
)

// Retriever holds the embedded corpus.
type Retriever struct {
	docs   []DocVector
	dim    int
	metric Metric
}

// NewFromDir reads every file in dir as one embedded document of the given
// dimension.
func NewFromDir(dir string, dim int, metric Metric) (*Retriever, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading embeddings directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	r := &Retriever{dim: dim, metric: metric}
	for _, name := range names {
		vec, err := readVector(filepath.Join(dir, name), dim)
		if err != nil {
			return nil, err
		}
		r.docs = append(r.docs, DocVector{ID: name, Vector: vec, Length: l2Norm(vec)})
	}
	slog.Default().With("component", "deep-retriever").Info("embeddings loaded",
		"docs", len(r.docs),
		"dimension", dim,
	)
	return r, nil
}

// Retrieve ranks every embedded document against the query vector,
// descending by similarity with ties broken by load order.
func (r *Retriever) Retrieve(query []float64) ([]Result, error) {
	if len(query) != r.dim {
		return nil, errors.Newf(errors.ErrInvalidInput, 400,
			"query dimension %d, want %d", len(query), r.dim)
	}
	queryLength := l2Norm(query)

	results := make([]Result, 0, len(r.docs))
	for _, doc := range r.docs {
		results = append(results, Result{DocID: doc.ID, Score: r.similarity(query, queryLength, doc)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

func (r *Retriever) similarity(query []float64, queryLength float64, doc DocVector) float64 {
	switch r.metric {
	case MetricCosine:
		if queryLength == 0 || doc.Length == 0 {
			return 0
		}
		return dot(query, doc.Vector) / (queryLength * doc.Length)
	default:
		return 1.0 / (1.0 + euclidean(query, doc.Vector))
	}
}

func readVector(path string, dim int) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading embedding file %s: %w", path, err)
	}
	fields := strings.Fields(string(data))
	if len(fields) != dim {
		return nil, errors.Newf(errors.ErrInvalidInput, 400,
			"embedding file %s holds %d values, want %d", path, len(fields), dim)
	}
	vec := make([]float64, dim)
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing embedding file %s: %w", path, err)
		}
		vec[i] = v
	}
	return vec, nil
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func l2Norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
