package vector

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/latentfs/internal/errortypes"
)

func TestMean(t *testing.T) {
	mean, err := Mean([][]float32{{1, 2, 3}, {3, 4, 5}})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3, 4}, mean)

	single, err := Mean([][]float32{{0.5, -0.5}})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.5}, single)
}

func TestMeanErrors(t *testing.T) {
	_, err := Mean(nil)
	assert.ErrorIs(t, err, errortypes.ErrEmptyInput)

	_, err = Mean([][]float32{{}})
	assert.ErrorIs(t, err, errortypes.ErrEmptyInput)

	_, err = Mean([][]float32{{1, 2}, {1, 2, 3}})
	require.ErrorIs(t, err, errortypes.ErrDimensionMismatch)

	var dm *errortypes.DimensionMismatchError
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	n := Normalize(v)
	assert.InDelta(t, 1.0, L2Norm(n), 1e-6)
	assert.InDelta(t, 0.6, n[0], 1e-6)
	assert.Equal(t, []float32{3, 4}, v, "input must not be modified")

	zero := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
}

func TestEuclideanDistance(t *testing.T) {
	d, err := EuclideanDistance([]float32{0, 0}, []float32{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, d, 1e-9)

	_, err = EuclideanDistance([]float32{1}, []float32{1, 2})
	assert.ErrorIs(t, err, errortypes.ErrDimensionMismatch)

	_, err = EuclideanDistance(nil, []float32{1})
	assert.ErrorIs(t, err, errortypes.ErrEmptyInput)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite", []float32{1, 2, 3}, []float32{-1, -2, -3}, -1},
		{"scaled", []float32{1, 1}, []float32{10, 10}, 1},
		{"zero operand", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
			assert.LessOrEqual(t, got, 1.0)
			assert.GreaterOrEqual(t, got, -1.0)
		})
	}
}

func TestCosineSimilarityErrors(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1})
	assert.ErrorIs(t, err, errortypes.ErrDimensionMismatch)

	_, err = CosineSimilarity([]float32{}, []float32{})
	assert.ErrorIs(t, err, errortypes.ErrEmptyInput)
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite([]float32{1, -2, 0}))
	assert.False(t, IsFinite([]float32{1, float32(math.NaN())}))
	assert.False(t, IsFinite([]float32{float32(math.Inf(1))}))
}
