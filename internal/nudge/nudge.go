// Package nudge moves an item's vector part of the way toward a target
// centroid, modelling a manual reassignment as a bounded, soft update.
package nudge

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/vector"
)

// DefaultAlpha is a moderate pull toward the target.
const DefaultAlpha = 0.3

// Result is the outcome of one nudge.
type Result struct {
	Vector []float32
	// ZeroNorm reports that the blend cancelled out; Vector is then the
	// unnormalized zero vector.
	ZeroNorm         bool
	SimilarityBefore float64
	SimilarityAfter  float64
}

// Engine blends vectors with a fixed alpha. It is immutable and safe for
// concurrent use.
type Engine struct {
	alpha  float64
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger that receives zero-norm and postcondition warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine with blend factor alpha, which must lie in
// [0, 1]: 0 leaves vectors untouched, 1 snaps them onto the target.
func NewEngine(alpha float64, opts ...Option) (*Engine, error) {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("%w: alpha must be within [0, 1], got %v", errortypes.ErrInvalidParameter, alpha)
	}

	e := &Engine{alpha: alpha, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Alpha returns the blend factor.
func (e *Engine) Alpha() float64 {
	return e.alpha
}

// Nudge returns (1-alpha)*current + alpha*target, L2-normalized.
func (e *Engine) Nudge(current, target []float32) (Result, error) {
	before, err := vector.CosineSimilarity(current, target)
	if err != nil {
		return Result{}, err
	}

	blended := make([]float32, len(current))
	for i := range current {
		blended[i] = float32((1-e.alpha)*float64(current[i]) + e.alpha*float64(target[i]))
	}

	if vector.L2Norm(blended) == 0 {
		e.logger.Warn("nudge produced a zero vector; returning it unnormalized",
			"alpha", e.alpha,
			"dimensions", len(blended))
		return Result{Vector: blended, ZeroNorm: true, SimilarityBefore: before}, nil
	}

	out := vector.Normalize(blended)
	after, err := vector.CosineSimilarity(out, target)
	if err != nil {
		return Result{}, err
	}

	if after < before {
		e.logger.Warn("nudge moved the vector away from its target",
			"alpha", e.alpha,
			"similarity_before", before,
			"similarity_after", after)
	}

	return Result{
		Vector:           out,
		SimilarityBefore: before,
		SimilarityAfter:  after,
	}, nil
}

// Similarity is the cosine similarity of a and b.
func (e *Engine) Similarity(a, b []float32) (float64, error) {
	return vector.CosineSimilarity(a, b)
}
