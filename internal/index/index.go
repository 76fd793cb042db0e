// Package index implements the in-memory retrieval core: a bag-of-words
// inverted index and a parallel positional index built in one pass over the
// corpus, IDF-weighted cosine retrieval, and a positional-proximity
// adjustment of the cosine score.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/qquiche/ir/internal/corpus"
	"github.com/qquiche/ir/internal/vector"
	"github.com/qquiche/ir/pkg/errors"
)

// ProximityStrategy selects how the proximity distance is computed.
type ProximityStrategy string

const (
	// StrategyNearestPair averages, over all unordered pairs of unique query
	// terms, the closest adjusted distance between their occurrences.
	StrategyNearestPair ProximityStrategy = "nearest-pair"
	// StrategyCoverSpan uses the minimum token span containing an in-order
	// occurrence of every unique query term.
	StrategyCoverSpan ProximityStrategy = "cover-span"
)

// Options tunes index construction and proximity scoring.
type Options struct {
	Proximity ProximityStrategy
	// OrderPenalty multiplies a pairwise distance when the nearer occurrence
	// contradicts the query's term order. Must be > 1.
	OrderPenalty float64
	// MaxDistance is charged for a term pair when either term never occurs
	// in the document. Absence is penalized, not ignored.
	MaxDistance float64
	// BuildWorkers bounds concurrent per-document tokenization during the
	// indexing pass. 0 means GOMAXPROCS.
	BuildWorkers int
}

// DefaultOptions returns the canonical scoring parameters.
func DefaultOptions() Options {
	return Options{
		Proximity:    StrategyNearestPair,
		OrderPenalty: 2.0,
		MaxDistance:  1000.0,
	}
}

// Index is the retrieval core. It owns every TokenInfo and posting list
// exclusively; nothing mutates them once Build returns.
type Index struct {
	tokens    map[string]*TokenInfo
	posTokens map[string]*PosTokenInfo
	docRefs   []*DocumentReference

	source corpus.Source
	cfg    corpus.Config
	opts   Options
	built  bool
	logger *slog.Logger
}

// New creates an empty index over the given corpus source and tokenizer
// configuration. Call Build before retrieving.
func New(source corpus.Source, cfg corpus.Config, opts Options) *Index {
	if opts.OrderPenalty <= 1 {
		opts.OrderPenalty = 2.0
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = 1000.0
	}
	if opts.Proximity == "" {
		opts.Proximity = StrategyNearestPair
	}
	return &Index{
		tokens:    make(map[string]*TokenInfo),
		posTokens: make(map[string]*PosTokenInfo),
		source:    source,
		cfg:       cfg,
		opts:      opts,
		logger:    slog.Default().With("component", "index"),
	}
}

// tokenized is the per-document output of the parallel tokenization stage.
type tokenized struct {
	doc    corpus.Document
	vec    vector.TermVector
	posVec map[string][]int
}

// Build indexes the whole corpus: one tokenization pass per document feeding
// both the bag-of-words and positional maps, followed by IDF computation and
// document-length finalization. Building an already-built index is a usage
// error.
func (idx *Index) Build(ctx context.Context) error {
	if idx.built {
		return errors.ErrIndexAlreadyBuilt
	}

	start := time.Now()
	docs, err := idx.source.Documents(ctx)
	if err != nil {
		return fmt.Errorf("enumerating corpus: %w", err)
	}

	results, err := idx.tokenizeAll(ctx, docs)
	if err != nil {
		return err
	}

	// Posting-list appends are serialized here; parallelism is confined to
	// tokenization above.
	for _, tk := range results {
		idx.indexDocument(tk)
	}
	idx.computeIDFAndLengths()
	idx.built = true

	idx.logger.Info("corpus indexed",
		"docs", len(idx.docRefs),
		"terms", len(idx.tokens),
		"duration", time.Since(start),
	)
	return nil
}

// Built reports whether Build has completed.
func (idx *Index) Built() bool { return idx.built }

// Size returns the number of unique terms surviving IDF pruning.
func (idx *Index) Size() int { return len(idx.tokens) }

// DocCount returns the number of indexed documents.
func (idx *Index) DocCount() int { return len(idx.docRefs) }

// DocRefs returns the document references in insertion order.
func (idx *Index) DocRefs() []*DocumentReference { return idx.docRefs }

// Config returns the tokenizer configuration the index was built with.
// Feedback uses it to re-derive document vectors consistently.
func (idx *Index) Config() corpus.Config { return idx.cfg }

// LoadVector reloads a document through the corpus source and derives its
// term vector with the index's own tokenizer configuration.
func (idx *Index) LoadVector(ctx context.Context, ref *DocumentReference) (vector.TermVector, error) {
	doc, err := idx.source.Load(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	return corpus.TermVector(doc.Text, idx.cfg), nil
}

// IDF returns the inverse document frequency of a token, or 0 if the token
// was pruned or never indexed.
func (idx *Index) IDF(token string) float64 {
	if info, ok := idx.tokens[token]; ok {
		return info.IDF
	}
	return 0
}

func (idx *Index) tokenizeAll(ctx context.Context, docs []corpus.Document) ([]tokenized, error) {
	workers := idx.opts.BuildWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]tokenized, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			posVec := make(map[string][]int)
			for pos, tok := range corpus.PositionalTerms(doc.Text, idx.cfg) {
				posVec[tok] = append(posVec[tok], pos)
			}
			results[i] = tokenized{
				doc:    doc,
				vec:    corpus.TermVector(doc.Text, idx.cfg),
				posVec: posVec,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("tokenizing corpus: %w", err)
	}
	return results, nil
}

// indexDocument appends one document's statistics to both index maps.
func (idx *Index) indexDocument(tk tokenized) {
	ref := &DocumentReference{ID: tk.doc.ID, ord: len(idx.docRefs)}
	idx.docRefs = append(idx.docRefs, ref)

	for token, count := range tk.vec {
		info, ok := idx.tokens[token]
		if !ok {
			info = &TokenInfo{}
			idx.tokens[token] = info
		}
		info.Postings = append(info.Postings, Posting{DocRef: ref, Count: int(count)})
	}

	for token, positions := range tk.posVec {
		// Positions were assigned sequentially, so each list is already
		// strictly increasing; sorting keeps the invariant explicit.
		sort.Ints(positions)
		info, ok := idx.posTokens[token]
		if !ok {
			info = &PosTokenInfo{}
			idx.posTokens[token] = info
		}
		info.Postings = append(info.Postings, PosPosting{
			DocRef:    ref,
			Count:     len(positions),
			Positions: positions,
		})
	}
}

// computeIDFAndLengths computes idf = ln(N/df) for every token, prunes
// zero-IDF tokens (terms occurring in every document carry no discriminative
// weight), accumulates each document's squared IDF-weighted term weights into
// its normalization length, and mirrors surviving IDFs into the positional
// index.
func (idx *Index) computeIDFAndLengths() {
	n := float64(len(idx.docRefs))

	for token, info := range idx.tokens {
		df := float64(len(info.Postings))
		idf := math.Log(n / df)
		if idf == 0 {
			delete(idx.tokens, token)
			continue
		}
		info.IDF = idf
		for _, p := range info.Postings {
			w := idf * float64(p.Count)
			p.DocRef.Length += w * w
		}
	}

	for _, ref := range idx.docRefs {
		ref.Length = math.Sqrt(ref.Length)
	}

	for token, info := range idx.tokens {
		if pos, ok := idx.posTokens[token]; ok {
			pos.IDF = info.IDF
		}
	}

	// Posting slices are final now; index them by document for proximity
	// lookups.
	for _, info := range idx.posTokens {
		info.byDoc = make(map[string]*PosPosting, len(info.Postings))
		for i := range info.Postings {
			info.byDoc[info.Postings[i].DocRef.ID] = &info.Postings[i]
		}
	}
}
