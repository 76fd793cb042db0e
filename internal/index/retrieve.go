package index

import (
	"math"
	"sort"

	"github.com/qquiche/ir/internal/corpus"
	"github.com/qquiche/ir/internal/vector"
	"github.com/qquiche/ir/pkg/errors"
)

// ParseQuery tokenizes raw query text into a Query with the index's own
// tokenizer configuration, capturing the unique terms in first-occurrence
// order for proximity scoring.
func (idx *Index) ParseQuery(text string) Query {
	return Query{
		Vector: corpus.TermVector(text, idx.cfg),
		Order:  corpus.OrderedUniqueTerms(text, idx.cfg),
	}
}

// Retrieve ranks all documents sharing at least one term with the raw query
// text. The final score is cosine / proximityDistance.
func (idx *Index) Retrieve(text string) ([]Result, error) {
	return idx.RetrieveQuery(idx.ParseQuery(text))
}

// RetrieveVector ranks documents against a bare query vector. Term order is
// unavailable, so proximity falls back to a deterministic lexicographic
// ordering of the query terms.
func (idx *Index) RetrieveVector(qv vector.TermVector) ([]Result, error) {
	order := make([]string, 0, qv.Len())
	for token := range qv {
		order = append(order, token)
	}
	sort.Strings(order)
	return idx.RetrieveQuery(Query{Vector: qv, Order: order})
}

// RetrieveQuery is the core ranking path: sparse cosine accumulation over the
// bag-of-words index, then a proximity adjustment from the positional index.
// Documents with no query-term overlap are absent from the result, not scored
// zero.
func (idx *Index) RetrieveQuery(q Query) ([]Result, error) {
	if !idx.built {
		return nil, errors.ErrIndexNotBuilt
	}

	scores := make(map[*DocumentReference]float64)
	queryLength := 0.0
	for token, count := range q.Vector {
		queryLength += idx.incorporateToken(token, count, scores)
	}
	queryLength = math.Sqrt(queryLength)

	results := make([]Result, 0, len(scores))
	for ref, dot := range scores {
		cosine := 0.0
		if queryLength > 0 && ref.Length > 0 {
			cosine = dot / (queryLength * ref.Length)
		}
		prox := idx.proximityDistance(q.Order, ref)
		results = append(results, Result{
			Doc:       ref,
			DocID:     ref.ID,
			Score:     cosine / prox,
			Cosine:    cosine,
			Proximity: prox,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Doc.ord < results[j].Doc.ord
	})
	return results, nil
}

// incorporateToken folds one query token into the per-document dot products
// and returns its squared contribution to the query length. Unknown tokens
// contribute nothing.
func (idx *Index) incorporateToken(token string, count float64, scores map[*DocumentReference]float64) float64 {
	info, ok := idx.tokens[token]
	if !ok {
		return 0
	}
	weight := info.IDF * count
	for _, p := range info.Postings {
		scores[p.DocRef] += weight * info.IDF * float64(p.Count)
	}
	return weight * weight
}
