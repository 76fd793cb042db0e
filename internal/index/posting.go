package index

import "github.com/qquiche/ir/internal/vector"

// DocumentReference is a stable handle to one indexed document. Length is the
// document's cosine-normalization length, written exactly once when the index
// is finalized. ord records insertion order and breaks ranking ties so that
// result order never depends on map iteration.
type DocumentReference struct {
	ID     string
	Length float64
	ord    int
}

// Posting records one token's raw occurrence count in one document.
type Posting struct {
	DocRef *DocumentReference
	Count  int
}

// TokenInfo holds a token's bag-of-words statistics: its inverse document
// frequency and the postings for every document containing it.
type TokenInfo struct {
	IDF      float64
	Postings []Posting
}

// PosPosting records one token's occurrences in one document together with
// the strictly increasing zero-based positions of those occurrences in the
// stopword-retaining token stream.
type PosPosting struct {
	DocRef    *DocumentReference
	Count     int
	Positions []int
}

// PosTokenInfo holds a token's positional statistics. IDF is mirrored from
// the bag-of-words TokenInfo after pruning; byDoc indexes the postings by
// document ID for proximity lookups.
type PosTokenInfo struct {
	IDF      float64
	Postings []PosPosting
	byDoc    map[string]*PosPosting
}

// Result is one ranked retrieval: the final score together with its cosine
// and proximity-distance breakdown. Proximity is the distance the cosine was
// divided by; 1.0 means the neutral no-proximity case.
type Result struct {
	Doc       *DocumentReference `json:"-"`
	DocID     string             `json:"doc_id"`
	Score     float64            `json:"score"`
	Cosine    float64            `json:"cosine"`
	Proximity float64            `json:"proximity"`
}

// Query carries a parsed query: its term-frequency vector and the unique
// terms in first-occurrence order. When Order is empty, retrieval falls back
// to a deterministic lexicographic ordering of the vector's terms.
type Query struct {
	Vector vector.TermVector
	Order  []string
}
