package vector

import (
	"math"

	"github.com/localrivet/latentfs/internal/errortypes"
)

// Mean returns the per-dimension arithmetic mean of vectors, which must be
// non-empty and share one dimensionality.
func Mean(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errortypes.ErrEmptyInput
	}

	dim := len(vectors[0])
	sums := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, &errortypes.DimensionMismatchError{Expected: dim, Actual: len(v)}
		}
		for i, x := range v {
			sums[i] += float64(x)
		}
	}

	n := float64(len(vectors))
	mean := make([]float32, dim)
	for i, s := range sums {
		mean[i] = float32(s / n)
	}
	return mean, nil
}

// L2Norm returns the Euclidean length of v.
func L2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. A zero vector cannot be
// normalized and is returned unchanged (as a copy).
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	norm := L2Norm(v)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}

// EuclideanDistance returns the L2 distance between a and b.
func EuclideanDistance(a, b []float32) (float64, error) {
	if err := checkPair(a, b); err != nil {
		return 0, err
	}
	return math.Sqrt(squaredDistance(a, b)), nil
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// The result is clamped to [-1, 1]; a zero-magnitude operand yields 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if err := checkPair(a, b); err != nil {
		return 0, err
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim)), nil
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// SquaredDistance returns the squared L2 distance without validating
// lengths. Callers must have checked that len(a) == len(b).
func SquaredDistance(a, b []float32) float64 {
	return squaredDistance(a, b)
}

func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func checkPair(a, b []float32) error {
	if len(a) == 0 || len(b) == 0 {
		return errortypes.ErrEmptyInput
	}
	if len(a) != len(b) {
		return &errortypes.DimensionMismatchError{Expected: len(a), Actual: len(b)}
	}
	return nil
}
