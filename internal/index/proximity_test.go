package index

import (
	"math"
	"testing"
)

func TestSingleTermProximityIsNeutral(t *testing.T) {
	idx := buildIndex(t, DefaultOptions(),
		"d1", "cat dog",
		"d2", "fish",
	)
	results, err := idx.Retrieve("cat")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Proximity != 1.0 {
		t.Errorf("proximity = %v, want exactly 1.0", results[0].Proximity)
	}
	if results[0].Score != results[0].Cosine {
		t.Errorf("score %v should equal cosine %v under neutral proximity",
			results[0].Score, results[0].Cosine)
	}
}

func TestRepeatedTermProximityIsNeutral(t *testing.T) {
	idx := buildIndex(t, DefaultOptions(),
		"d1", "cat dog",
		"d2", "fish",
	)
	// Two query tokens but only one unique term.
	results, err := idx.Retrieve("cat cat")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 || results[0].Proximity != 1.0 {
		t.Fatalf("results = %+v, want single result with proximity 1.0", results)
	}
}

func TestOrderContradictionRaisesDistance(t *testing.T) {
	idx := buildIndex(t, DefaultOptions(),
		"d1", "cat dog",
		"d2", "fish fish",
	)

	forward, err := idx.Retrieve("cat dog")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	reversed, err := idx.Retrieve("dog cat")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(forward) != 1 || len(reversed) != 1 {
		t.Fatalf("want one result each, got %d and %d", len(forward), len(reversed))
	}
	if reversed[0].Proximity < forward[0].Proximity {
		t.Errorf("reversed query proximity %v < forward %v; contradiction must not shrink distance",
			reversed[0].Proximity, forward[0].Proximity)
	}
	// Adjacent in-order occurrences at distance 1, doubled by the penalty
	// when the query order is reversed.
	if forward[0].Proximity != 1.0 {
		t.Errorf("forward proximity = %v, want 1.0", forward[0].Proximity)
	}
	if reversed[0].Proximity != 2.0 {
		t.Errorf("reversed proximity = %v, want 2.0", reversed[0].Proximity)
	}
}

func TestAbsentTermChargedFallbackDistance(t *testing.T) {
	idx := buildIndex(t, DefaultOptions(),
		"d1", "cat cat cat",
		"d2", "fish bird",
	)
	// dog is indexed nowhere; the (cat, dog) pair must contribute the
	// fallback distance, collapsing but not excluding the match.
	results, err := idx.Retrieve("cat dog")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Proximity != 1000.0 {
		t.Errorf("proximity = %v, want fallback 1000.0", results[0].Proximity)
	}
	if results[0].Score <= 0 {
		t.Errorf("score = %v, want positive (penalized, never negative)", results[0].Score)
	}
	if results[0].Score >= results[0].Cosine {
		t.Errorf("score %v should be suppressed below cosine %v", results[0].Score, results[0].Cosine)
	}
}

func TestNearestPairAveragesOverAllPairs(t *testing.T) {
	idx := buildIndex(t, DefaultOptions(),
		"d1", "cat dog mouse",
		"d2", "fish fish",
	)
	results, err := idx.Retrieve("cat dog mouse")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	// Pairs: (cat,dog)=1, (cat,mouse)=2, (dog,mouse)=1; average 4/3.
	want := 4.0 / 3.0
	if math.Abs(results[0].Proximity-want) > 1e-9 {
		t.Errorf("proximity = %v, want %v", results[0].Proximity, want)
	}
}

func TestCoverSpanStrategy(t *testing.T) {
	opts := DefaultOptions()
	opts.Proximity = StrategyCoverSpan

	idx := buildIndex(t, opts,
		"d1", "cat filler filler dog cat dog",
		"d2", "dog cat",
		"d3", "zebra zebra",
	)

	results, err := idx.Retrieve("cat dog")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	byID := make(map[string]Result)
	for _, r := range results {
		byID[r.DocID] = r
	}

	// d1: spans seeded at cat@0 (-> dog@3, span 3) and cat@4 (-> dog@5,
	// span 1); minimum 1.
	if got := byID["d1"].Proximity; got != 1.0 {
		t.Errorf("d1 span = %v, want 1", got)
	}
	// d2 has no in-order covering span; still scored with the fallback.
	if got := byID["d2"].Proximity; got != 1000.0 {
		t.Errorf("d2 span = %v, want fallback 1000", got)
	}
	if byID["d2"].Score <= 0 {
		t.Errorf("d2 score = %v, want positive", byID["d2"].Score)
	}
}
