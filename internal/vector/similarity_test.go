package vector

import (
	"errors"
	"math"
	"testing"
)

func TestCosineSimilarity_selfSimilarity(t *testing.T) {
	v := []float32{0.3, -0.5, 0.8, 0.1}
	sim, err := CosineSimilarity(v, v)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sim-1) > 1e-9 {
		t.Errorf("self similarity = %v, want ~1", sim)
	}
}

func TestCosineSimilarity_symmetry(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-4, 0.5, 2}
	ab, err := CosineSimilarity(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := CosineSimilarity(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if ab != ba {
		t.Errorf("asymmetric: %v vs %v", ab, ba)
	}
}

func TestCosineSimilarity_orthogonal(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if sim != 0 {
		t.Errorf("orthogonal vectors: got %v, want 0", sim)
	}
}

func TestCosineSimilarity_opposite(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 1}, []float32{-1, -1})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sim+1) > 1e-9 {
		t.Errorf("opposite vectors: got %v, want ~-1", sim)
	}
}

func TestCosineSimilarity_dimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCosineSimilarity_zeroNorm(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if sim != 0 {
		t.Errorf("zero-norm vector: got %v, want 0 sentinel", sim)
	}
}

func TestL2Norm(t *testing.T) {
	if got := L2Norm([]float32{3, 4}); got != 5 {
		t.Errorf("L2Norm = %v, want 5", got)
	}
	if got := L2Norm(nil); got != 0 {
		t.Errorf("L2Norm(nil) = %v, want 0", got)
	}
}
