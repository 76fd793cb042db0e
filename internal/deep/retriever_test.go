package deep

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeEmbeddings(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRetrieveEuclidean(t *testing.T) {
	dir := writeEmbeddings(t, map[string]string{
		"near": "1.0 0.0",
		"far":  "10.0 10.0",
	})
	r, err := NewFromDir(dir, 2, MetricEuclidean)
	if err != nil {
		t.Fatalf("NewFromDir: %v", err)
	}
	results, err := r.Retrieve([]float64{1.0, 0.1})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if results[0].DocID != "near" {
		t.Errorf("top result = %s, want near", results[0].DocID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %v", results)
	}
}

func TestRetrieveCosine(t *testing.T) {
	dir := writeEmbeddings(t, map[string]string{
		"aligned":    "2.0 0.0",
		"orthogonal": "0.0 5.0",
	})
	r, err := NewFromDir(dir, 2, MetricCosine)
	if err != nil {
		t.Fatalf("NewFromDir: %v", err)
	}
	results, err := r.Retrieve([]float64{1.0, 0.0})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if results[0].DocID != "aligned" {
		t.Errorf("top result = %s, want aligned", results[0].DocID)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Errorf("aligned cosine = %v, want 1.0", results[0].Score)
	}
	if math.Abs(results[1].Score) > 1e-9 {
		t.Errorf("orthogonal cosine = %v, want 0", results[1].Score)
	}
}

func TestDimensionMismatch(t *testing.T) {
	dir := writeEmbeddings(t, map[string]string{"d": "1.0 2.0"})
	r, err := NewFromDir(dir, 2, MetricCosine)
	if err != nil {
		t.Fatalf("NewFromDir: %v", err)
	}
	if _, err := r.Retrieve([]float64{1.0}); err == nil {
		t.Error("Retrieve with wrong dimension should fail")
	}

	if _, err := NewFromDir(writeEmbeddings(t, map[string]string{"bad": "1.0"}), 2, MetricCosine); err == nil {
		t.Error("NewFromDir with short embedding file should fail")
	}
}
