package partition

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/model"
)

func items(vectors ...[]float32) []model.Item {
	out := make([]model.Item, len(vectors))
	for i, v := range vectors {
		out[i] = model.Item{ID: fmt.Sprintf("item-%d", i), Vector: v}
	}
	return out
}

func randomItems(r *rand.Rand, n, dim int) []model.Item {
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = make([]float32, dim)
		for d := range vecs[i] {
			vecs[i][d] = r.Float32()*2 - 1
		}
	}
	return items(vecs...)
}

func memberIDs(p Partition) []string {
	var ids []string
	for _, members := range p {
		for _, m := range members {
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func TestPartitionCoverage(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	e := NewEngine()

	for _, n := range []int{1, 2, 5, 17, 40} {
		for _, k := range []int{1, 2, 3, 5, 8} {
			t.Run(fmt.Sprintf("n=%d/k=%d", n, k), func(t *testing.T) {
				in := randomItems(r, n, 4)
				p, err := e.Partition(in, k)
				require.NoError(t, err)

				want := make([]string, n)
				for i, it := range in {
					want[i] = it.ID
				}
				sort.Strings(want)
				assert.Equal(t, want, memberIDs(p), "every id exactly once")
				assert.LessOrEqual(t, len(p), min(n, k))

				for id, members := range p {
					assert.NotEmpty(t, members, "group %s is empty", id)
				}
			})
		}
	}
}

func TestPartitionGroupIDsAreContiguous(t *testing.T) {
	in := randomItems(rand.New(rand.NewPCG(1, 2)), 20, 3)
	p, err := NewEngine().Partition(in, 4)
	require.NoError(t, err)

	ids := p.IDs()
	for i, id := range ids {
		assert.Equal(t, model.GroupID(i), id)
	}
}

func TestPartitionReducesKToItemCount(t *testing.T) {
	p, err := NewEngine().Partition(items([]float32{0, 1}, []float32{1, 0}, []float32{1, 1}), 10)
	require.NoError(t, err)
	assert.Len(t, p, 3)
}

func TestPartitionReducesKToDistinctVectors(t *testing.T) {
	same := []float32{0.5, 0.5}
	p, err := NewEngine().Partition(items(same, same, same, same), 3)
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.Len(t, p[model.GroupID(0)], 4)
}

func TestPartitionIsDeterministic(t *testing.T) {
	in := randomItems(rand.New(rand.NewPCG(3, 4)), 30, 5)
	e := NewEngine()

	first, err := e.Partition(in, 4)
	require.NoError(t, err)
	second, err := e.Partition(in, 4)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPartitionSeparatesNaturalGroups(t *testing.T) {
	in := items(
		[]float32{1, 0, 0},
		[]float32{0, 1, 0},
		[]float32{0.9, 0.1, 0},
		[]float32{0.1, 0.9, 0},
		[]float32{0.95, 0, 0.05},
		[]float32{0, 0.95, 0.05},
	)

	p, err := NewEngine().Partition(in, 2)
	require.NoError(t, err)
	require.Len(t, p, 2)

	a, ok := p.GroupOf("item-0")
	require.True(t, ok)
	b, ok := p.GroupOf("item-1")
	require.True(t, ok)
	assert.NotEqual(t, a, b)

	for _, id := range []string{"item-2", "item-4"} {
		g, _ := p.GroupOf(id)
		assert.Equal(t, a, g, id)
	}
	for _, id := range []string{"item-3", "item-5"} {
		g, _ := p.GroupOf(id)
		assert.Equal(t, b, g, id)
	}

	// Members keep input order.
	assert.Equal(t, "item-0", p[a][0].ID)
	assert.Equal(t, "item-2", p[a][1].ID)
}

func TestPartitionEmptyInput(t *testing.T) {
	p, err := NewEngine().Partition(nil, 3)
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestPartitionRejectsNonPositiveK(t *testing.T) {
	_, err := NewEngine().Partition(items([]float32{1}), 0)
	assert.ErrorIs(t, err, errortypes.ErrInvalidParameter)
}

func TestPartitionInvalidVectors(t *testing.T) {
	tests := []struct {
		name     string
		in       []model.Item
		wantID   string
		wantDims bool
	}{
		{
			name:   "empty vector",
			in:     []model.Item{{ID: "a", Vector: []float32{1, 2}}, {ID: "b"}},
			wantID: "b",
		},
		{
			name:     "dimension mismatch",
			in:       []model.Item{{ID: "a", Vector: []float32{1, 2}}, {ID: "b", Vector: []float32{1, 2}}, {ID: "c", Vector: []float32{1}}},
			wantID:   "c",
			wantDims: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine().Partition(tt.in, 2)
			require.ErrorIs(t, err, errortypes.ErrInvalidVector)

			var ive *errortypes.InvalidVectorError
			require.True(t, errors.As(err, &ive))
			assert.Equal(t, tt.wantID, ive.ItemID)
			assert.Equal(t, tt.wantDims, errors.Is(err, errortypes.ErrDimensionMismatch))
		})
	}
}

func TestPartitionRespectsIterationCap(t *testing.T) {
	in := randomItems(rand.New(rand.NewPCG(5, 6)), 25, 3)
	p, err := NewEngine(WithMaxIterations(1)).Partition(in, 5)
	require.NoError(t, err)
	assert.Len(t, memberIDs(p), 25)
}
