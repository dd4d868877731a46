// Package vector holds the fixed-length feature vector and its arithmetic.
package vector

import (
	"math"

	"github.com/kailas-cloud/vibematch/internal/domain"
)

// Vector is a user feature vector. All vectors compared against each other
// must have the same length.
type Vector []float32

// Dim returns the vector length.
func (v Vector) Dim() int { return len(v) }

// Norm returns the Euclidean magnitude.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b in [-1, 1].
// A zero-magnitude operand scores 0.
func Cosine(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.NewDimensionMismatch(len(a), len(b))
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
	// float rounding can push |sim| a hair past 1 for parallel vectors
	return math.Max(-1, math.Min(1, sim)), nil
}

// Mean returns the element-wise arithmetic mean of vs.
// Returns domain.ErrEmptyInput for no vectors and a dimension mismatch
// error when lengths differ.
func Mean(vs []Vector) (Vector, error) {
	if len(vs) == 0 {
		return nil, domain.ErrEmptyInput
	}

	dim := len(vs[0])
	acc := make([]float64, dim)
	for _, v := range vs {
		if len(v) != dim {
			return nil, domain.NewDimensionMismatch(dim, len(v))
		}
		for i, x := range v {
			acc[i] += float64(x)
		}
	}

	out := make(Vector, dim)
	n := float64(len(vs))
	for i, s := range acc {
		out[i] = float32(s / n)
	}
	return out, nil
}

// FromEmbeddings converts raw provider embeddings to vectors without copying.
func FromEmbeddings(embs [][]float32) []Vector {
	out := make([]Vector, len(embs))
	for i, e := range embs {
		out[i] = Vector(e)
	}
	return out
}
