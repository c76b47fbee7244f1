package partition

import (
	"errors"
	"fmt"
	"math"

	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/model"
	"github.com/localrivet/latentfs/internal/vector"
)

// CentroidOf returns the mean of the members' vectors.
func CentroidOf(members []model.Item) ([]float32, error) {
	if len(members) == 0 {
		return nil, errortypes.ErrEmptyInput
	}

	vectors := make([][]float32, len(members))
	for i, m := range members {
		vectors[i] = m.Vector
	}
	return vector.Mean(vectors)
}

// RepresentativeOf returns the member closest to centroid by Euclidean
// distance; the first of several equally close members wins. Members whose
// vectors cannot be compared with the centroid are logged and skipped.
func (e *Engine) RepresentativeOf(members []model.Item, centroid []float32) (model.Item, error) {
	if len(members) == 0 {
		return model.Item{}, errortypes.ErrEmptyInput
	}

	best, bestDist := -1, math.Inf(1)
	for i, m := range members {
		d, err := vector.EuclideanDistance(m.Vector, centroid)
		if err == nil && !vector.IsFinite(m.Vector) {
			err = errors.New("non-finite component")
		}
		if err != nil {
			e.logger.Warn("skipping member with invalid vector",
				"item_id", m.ID,
				"dimensions", len(m.Vector),
				"centroid_dimensions", len(centroid),
				"error", err)
			continue
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}

	if best < 0 {
		return model.Item{}, fmt.Errorf("%w: none of %d members is comparable with the centroid",
			errortypes.ErrNoValidMembers, len(members))
	}
	return members[best], nil
}
