// Package partition groups items by vector similarity with Lloyd-style
// k-means and answers the per-group centroid and representative queries.
package partition

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/model"
	"github.com/localrivet/latentfs/internal/vector"
)

// DefaultMaxIterations caps the Lloyd iterations of one partition run.
const DefaultMaxIterations = 300

// Partition maps a group id to its members, kept in input order.
type Partition map[string][]model.Item

// IDs returns the group ids ordered by their numeric index.
func (p Partition) IDs() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return groupIndex(ids[i]) < groupIndex(ids[j])
	})
	return ids
}

// GroupOf returns the id of the group containing itemID.
func (p Partition) GroupOf(itemID string) (string, bool) {
	for id, members := range p {
		for _, m := range members {
			if m.ID == itemID {
				return id, true
			}
		}
	}
	return "", false
}

func groupIndex(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, model.GroupIDPrefix))
	if err != nil {
		return math.MaxInt
	}
	return n
}

// Engine runs partitions. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	maxIterations int
	logger        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxIterations sets the iteration cap. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithLogger sets the logger used for skipped members and run summaries.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a partition engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		maxIterations: DefaultMaxIterations,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Partition splits items into at most targetK groups. The result is a pure
// function of (items, targetK): centroids are seeded farthest-first starting
// from the first item, and every tie goes to the lowest index.
//
// The effective k is min(targetK, len(items)), reduced further when the
// input holds fewer distinct vectors. Empty input yields an empty Partition.
func (e *Engine) Partition(items []model.Item, targetK int) (Partition, error) {
	if targetK < 1 {
		return nil, fmt.Errorf("%w: target k must be positive, got %d", errortypes.ErrInvalidParameter, targetK)
	}
	if len(items) == 0 {
		return Partition{}, nil
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(items))
	for i, it := range items {
		vectors[i] = it.Vector
	}

	centroids := seedCentroids(vectors, min(targetK, len(items)))
	assign, iterations := e.lloyd(vectors, centroids)
	p := buildPartition(items, assign, len(centroids))

	e.logger.Debug("partition complete",
		"items", len(items),
		"target_k", targetK,
		"groups", len(p),
		"iterations", iterations)
	return p, nil
}

func validateItems(items []model.Item) error {
	dim := len(items[0].Vector)
	for _, it := range items {
		switch {
		case len(it.Vector) == 0:
			return &errortypes.InvalidVectorError{ItemID: it.ID, Reason: "empty vector", Err: errortypes.ErrEmptyInput}
		case len(it.Vector) != dim:
			return &errortypes.InvalidVectorError{
				ItemID: it.ID,
				Reason: "dimensionality differs from the rest of the set",
				Err:    &errortypes.DimensionMismatchError{Expected: dim, Actual: len(it.Vector)},
			}
		case !vector.IsFinite(it.Vector):
			return &errortypes.InvalidVectorError{ItemID: it.ID, Reason: "non-finite component"}
		}
	}
	return nil
}

// seedCentroids picks k starting centroids farthest-first: the first vector,
// then repeatedly the vector farthest from every centroid chosen so far.
// It stops early once no vector is distinct from the chosen centroids.
func seedCentroids(vectors [][]float32, k int) [][]float32 {
	centroids := make([][]float32, 0, k)
	centroids = append(centroids, clone(vectors[0]))

	nearest := make([]float64, len(vectors))
	for i, v := range vectors {
		nearest[i] = vector.SquaredDistance(v, centroids[0])
	}

	for len(centroids) < k {
		best, bestDist := -1, 0.0
		for i, d := range nearest {
			if d > bestDist {
				best, bestDist = i, d
			}
		}
		if best < 0 {
			break
		}

		c := clone(vectors[best])
		centroids = append(centroids, c)
		for i, v := range vectors {
			if d := vector.SquaredDistance(v, c); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
	return centroids
}

// lloyd refines centroids in place and returns the final assignment and the
// number of iterations run.
func (e *Engine) lloyd(vectors [][]float32, centroids [][]float32) ([]int, int) {
	assign := make([]int, len(vectors))
	for i := range assign {
		assign[i] = -1
	}

	iter := 0
	for ; iter < e.maxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			if c := nearestCentroid(v, centroids); assign[i] != c {
				assign[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}
		updateCentroids(vectors, assign, centroids)
	}
	return assign, iter
}

func nearestCentroid(v []float32, centroids [][]float32) int {
	best, bestDist := 0, math.Inf(1)
	for j, c := range centroids {
		if d := vector.SquaredDistance(v, c); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// updateCentroids moves every centroid to the mean of its members. A
// centroid left without members takes over the vector farthest from its own
// centroid among clusters that can spare one.
func updateCentroids(vectors [][]float32, assign []int, centroids [][]float32) {
	k := len(centroids)
	counts := make([]int, k)
	for _, a := range assign {
		counts[a]++
	}

	for j := 0; j < k; j++ {
		if counts[j] > 0 {
			continue
		}
		donor, far := -1, -1.0
		for i, v := range vectors {
			if counts[assign[i]] < 2 {
				continue
			}
			if d := vector.SquaredDistance(v, centroids[assign[i]]); d > far {
				donor, far = i, d
			}
		}
		if donor < 0 {
			continue
		}
		counts[assign[donor]]--
		assign[donor] = j
		counts[j] = 1
	}

	dim := len(vectors[0])
	sums := make([][]float64, k)
	for j := range sums {
		sums[j] = make([]float64, dim)
	}
	for i, v := range vectors {
		s := sums[assign[i]]
		for d, x := range v {
			s[d] += float64(x)
		}
	}
	for j := range centroids {
		if counts[j] == 0 {
			continue
		}
		for d := range centroids[j] {
			centroids[j][d] = float32(sums[j][d] / float64(counts[j]))
		}
	}
}

// buildPartition numbers the non-empty clusters contiguously in centroid
// order so every emitted group has at least one member.
func buildPartition(items []model.Item, assign []int, k int) Partition {
	members := make([][]model.Item, k)
	for i, a := range assign {
		members[a] = append(members[a], items[i])
	}

	p := make(Partition, k)
	next := 0
	for _, m := range members {
		if len(m) == 0 {
			continue
		}
		p[model.GroupID(next)] = m
		next++
	}
	return p
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
