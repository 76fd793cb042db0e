package vector

import (
	"math"
	"testing"
)

func TestWeightAbsentTokenIsZero(t *testing.T) {
	v := New()
	v.Increment("cat", 2)
	if got := v.Weight("dog"); got != 0 {
		t.Errorf("Weight(absent) = %v, want 0", got)
	}
	if got := v.Weight("cat"); got != 2 {
		t.Errorf("Weight(cat) = %v, want 2", got)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	v := TermVector{"cat": 1, "dog": 3}
	c := v.Copy()
	c.Increment("cat", 5)
	c.Increment("fish", 1)
	if v.Weight("cat") != 1 {
		t.Errorf("original mutated: cat = %v, want 1", v.Weight("cat"))
	}
	if v.Weight("fish") != 0 {
		t.Errorf("original mutated: fish = %v, want 0", v.Weight("fish"))
	}
}

func TestScaleAddSubtract(t *testing.T) {
	v := TermVector{"a": 1, "b": 2}
	v.Scale(2)
	if v["a"] != 2 || v["b"] != 4 {
		t.Fatalf("after Scale(2): %v", v)
	}

	v.Add(TermVector{"b": 1, "c": 3})
	if v["b"] != 5 || v["c"] != 3 {
		t.Fatalf("after Add: %v", v)
	}

	v.Subtract(TermVector{"a": 2, "c": 1})
	if v["a"] != 0 || v["c"] != 2 {
		t.Fatalf("after Subtract: %v", v)
	}
}

func TestMaxWeight(t *testing.T) {
	tests := []struct {
		name string
		v    TermVector
		want float64
	}{
		{"empty", New(), 0},
		{"single", TermVector{"a": 3}, 3},
		{"several", TermVector{"a": 1, "b": 7, "c": 2}, 7},
		{"all negative", TermVector{"a": -2, "b": -1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.MaxWeight(); got != tt.want {
				t.Errorf("MaxWeight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDot(t *testing.T) {
	a := TermVector{"cat": 2, "dog": 1, "bird": 4}
	b := TermVector{"cat": 3, "dog": 5, "fish": 9}
	want := 2.0*3 + 1.0*5
	if got := a.Dot(b); math.Abs(got-want) > 1e-12 {
		t.Errorf("Dot = %v, want %v", got, want)
	}
	if got := b.Dot(a); math.Abs(got-want) > 1e-12 {
		t.Errorf("Dot not symmetric: %v, want %v", got, want)
	}
	if got := a.Dot(New()); got != 0 {
		t.Errorf("Dot with empty = %v, want 0", got)
	}
}
