// Package vector implements the sparse term-weight vectors used to represent
// queries and documents. A TermVector maps tokens to non-negative weights;
// tokens that are absent have weight zero.
package vector

// TermVector is a sparse mapping from token to weight.
type TermVector map[string]float64

// New returns an empty TermVector.
func New() TermVector {
	return make(TermVector)
}

// Weight returns the weight for token, or 0 if the token is absent.
func (v TermVector) Weight(token string) float64 {
	return v[token]
}

// Increment adds delta to the weight of token, creating the entry if needed.
func (v TermVector) Increment(token string, delta float64) {
	v[token] += delta
}

// Copy returns a deep, independent snapshot of the vector.
func (v TermVector) Copy() TermVector {
	c := make(TermVector, len(v))
	for token, w := range v {
		c[token] = w
	}
	return c
}

// Scale multiplies every weight by factor in place.
func (v TermVector) Scale(factor float64) {
	for token := range v {
		v[token] *= factor
	}
}

// Add accumulates other into v element-wise.
func (v TermVector) Add(other TermVector) {
	for token, w := range other {
		v[token] += w
	}
}

// Subtract removes other from v element-wise.
func (v TermVector) Subtract(other TermVector) {
	for token, w := range other {
		v[token] -= w
	}
}

// MaxWeight returns the largest weight in the vector, or 0 for an empty
// vector. Used to rescale vectors before Rocchio combination so that long
// documents do not dominate purely through magnitude.
func (v TermVector) MaxWeight() float64 {
	max := 0.0
	for _, w := range v {
		if w > max {
			max = w
		}
	}
	return max
}

// Dot returns the dot product of v and other over their shared tokens.
func (v TermVector) Dot(other TermVector) float64 {
	// Iterate the smaller map.
	a, b := v, other
	if len(b) < len(a) {
		a, b = b, a
	}
	sum := 0.0
	for token, w := range a {
		if ow, ok := b[token]; ok {
			sum += w * ow
		}
	}
	return sum
}

// Len returns the number of distinct tokens with an explicit entry.
func (v TermVector) Len() int {
	return len(v)
}
