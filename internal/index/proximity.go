package index

import "sort"

// proximityDistance measures how close, and how correctly ordered, the query
// terms occur in the document. Lower is better. Queries with fewer than two
// unique terms have no proximity feature and return the neutral 1.0.
func (idx *Index) proximityDistance(order []string, ref *DocumentReference) float64 {
	unique := dedupe(order)
	if len(unique) < 2 {
		return 1.0
	}

	posLists := make([][]int, len(unique))
	for i, term := range unique {
		posLists[i] = idx.positions(term, ref)
	}

	switch idx.opts.Proximity {
	case StrategyCoverSpan:
		return idx.coverSpanDistance(posLists)
	default:
		return idx.nearestPairDistance(posLists)
	}
}

// nearestPairDistance averages, over every unordered pair of unique query
// terms, the smallest adjusted distance between their occurrences. A pair
// whose terms never co-occur contributes MaxDistance rather than being
// skipped.
func (idx *Index) nearestPairDistance(posLists [][]int) float64 {
	total := 0.0
	pairs := 0
	for i := 0; i < len(posLists); i++ {
		for j := i + 1; j < len(posLists); j++ {
			// Unique terms are kept in query order, so term i is expected
			// before term j.
			total += idx.closestPairDistance(posLists[i], posLists[j])
			pairs++
		}
	}
	if pairs == 0 {
		return idx.opts.MaxDistance
	}
	return total / float64(pairs)
}

// closestPairDistance finds the nearest occurrence of the second term on
// either side of each occurrence of the first, multiplying the distance by
// the order penalty when the nearer occurrence precedes it (contradicting the
// expected query order).
func (idx *Index) closestPairDistance(pos1, pos2 []int) float64 {
	if len(pos1) == 0 || len(pos2) == 0 {
		return idx.opts.MaxDistance
	}

	minDist := idx.opts.MaxDistance
	for _, p1 := range pos1 {
		ip := sort.SearchInts(pos2, p1)
		if ip < len(pos2) && pos2[ip] == p1 {
			minDist = 0
			continue
		}
		if ip < len(pos2) {
			if d := idx.adjustedDistance(p1, pos2[ip]); d < minDist {
				minDist = d
			}
		}
		if ip > 0 {
			if d := idx.adjustedDistance(p1, pos2[ip-1]); d < minDist {
				minDist = d
			}
		}
	}
	return minDist
}

func (idx *Index) adjustedDistance(p1, p2 int) float64 {
	d := float64(p2 - p1)
	if d < 0 {
		// Second term occurs before the first: reversed order.
		return -d * idx.opts.OrderPenalty
	}
	return d
}

// coverSpanDistance returns the minimum token span containing an in-order
// occurrence of every unique query term, seeded from each occurrence of the
// first term. A document with no in-order covering span is still scored, via
// MaxDistance.
func (idx *Index) coverSpanDistance(posLists [][]int) float64 {
	for _, positions := range posLists {
		if len(positions) == 0 {
			return idx.opts.MaxDistance
		}
	}

	best := idx.opts.MaxDistance
	for _, start := range posLists[0] {
		cur := start
		ok := true
		for _, positions := range posLists[1:] {
			// Smallest occurrence strictly after the previous term.
			ip := sort.SearchInts(positions, cur+1)
			if ip == len(positions) {
				ok = false
				break
			}
			cur = positions[ip]
		}
		if ok {
			if span := float64(cur - start); span < best {
				best = span
			}
		}
	}
	return best
}

// positions returns the sorted occurrence positions of term in the document,
// or nil if the term never occurs there.
func (idx *Index) positions(term string, ref *DocumentReference) []int {
	info, ok := idx.posTokens[term]
	if !ok {
		return nil
	}
	if posting, ok := info.byDoc[ref.ID]; ok {
		return posting.Positions
	}
	return nil
}

func dedupe(order []string) []string {
	seen := make(map[string]struct{}, len(order))
	unique := make([]string, 0, len(order))
	for _, term := range order {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		unique = append(unique, term)
	}
	return unique
}
