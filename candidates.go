package boost

import (
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
)

// DuplicateTolerance is the Euclidean distance under which two points are
// considered the same point.
const DuplicateTolerance = 1e-5

// maxSamplingRounds bounds the Latin-hypercube retries when the grid is too
// small to produce enough distinct points.
const maxSamplingRounds = 1000

//////
// Parameter ranges.
//////

// Linspace returns the range of n evenly spaced values from min to max.
func Linspace(min, max float64, n int) ParameterRange[float64] {
	if n < 2 {
		return ParameterRange[float64]{Min: min, Max: min, Step: 1}
	}

	return ParameterRange[float64]{Min: min, Max: max, Step: (max - min) / float64(n-1)}
}

// Validate checks that the range is non-empty and has a positive step.
func (r ParameterRange[T]) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("%w: range min %v above max %v", ErrUnsupportedConfiguration, r.Min, r.Max)
	}

	if r.Step <= 0 {
		return fmt.Errorf("%w: range step %v must be positive", ErrUnsupportedConfiguration, r.Step)
	}

	return nil
}

// Values returns the grid points of the range: Min, Min+Step, ... up to Max.
// Points are computed as Min+i*Step to avoid accumulating rounding error.
func (r ParameterRange[T]) Values() []float64 {
	lo, hi, step := float64(r.Min), float64(r.Max), float64(r.Step)

	n := int(math.Floor((hi-lo)/step+1e-9)) + 1

	values := make([]float64, n)
	for i := range values {
		values[i] = lo + float64(i)*step
	}

	return values
}

//////
// Candidate pools.
//////

// Grid returns the Cartesian product of the ranges' values. The first range
// varies slowest.
//
// Usage example:
//
//	pool, err := Grid(
//	    ParameterRange[int64]{Min: 0, Max: 10, Step: 1},
//	    ParameterRange[int64]{Min: 0, Max: 4, Step: 2},
//	)
//	// pool = [[0 0] [0 2] [0 4] [1 0] ... [10 4]]
func Grid[T constraints.Integer | constraints.Float](ranges ...ParameterRange[T]) ([][]float64, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: no parameter ranges", ErrUnsupportedConfiguration)
	}

	axes := make([][]float64, len(ranges))

	for d, r := range ranges {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("dimension %d: %w", d, err)
		}

		axes[d] = r.Values()
	}

	return cartesian(axes), nil
}

func cartesian(axes [][]float64) [][]float64 {
	points := [][]float64{{}}

	for _, axis := range axes {
		next := make([][]float64, 0, len(points)*len(axis))

		for _, p := range points {
			for _, v := range axis {
				point := make([]float64, len(p), len(p)+1)
				copy(point, p)
				next = append(next, append(point, v))
			}
		}

		points = next
	}

	return points
}

// FilterEvaluated returns the candidates that are farther than tol from
// every evaluated point, in their original order.
func FilterEvaluated(candidates, evaluated [][]float64, tol float64) [][]float64 {
	out := make([][]float64, 0, len(candidates))

	for _, c := range candidates {
		if !containsPoint(evaluated, c, tol) {
			out = append(out, c)
		}
	}

	return out
}

// nearest returns the index of the first point within tol of x, -1 if none.
func nearest(points [][]float64, x []float64, tol float64) int {
	for i, p := range points {
		if len(p) == len(x) && floats.Distance(p, x, 2) < tol {
			return i
		}
	}

	return -1
}

func containsPoint(points [][]float64, x []float64, tol float64) bool {
	return nearest(points, x, tol) >= 0
}

// LatinHypercube draws n distinct points from the grid spanned by ranges.
//
// Each dimension contributes min(n, m) evenly spaced, centred grid values (m
// being its number of values), shuffled independently; the shuffled columns
// are zipped into points. Rounds repeat until n distinct points exist, which
// is how a sample larger than one axis is filled.
func LatinHypercube[T constraints.Integer | constraints.Float](rng *rand.Rand, n int, ranges ...ParameterRange[T]) ([][]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: cannot sample %d points", ErrUnsupportedConfiguration, n)
	}

	axes := make([][]float64, len(ranges))
	total := 1

	for d, r := range ranges {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("dimension %d: %w", d, err)
		}

		axes[d] = r.Values()
		total *= len(axes[d])
	}

	if len(axes) == 0 || total < n {
		return nil, fmt.Errorf("%w: grid of %d points cannot provide %d samples", ErrInsufficientData, total, n)
	}

	samples := make([][]float64, 0, n)

	for round := 0; len(samples) < n; round++ {
		if round == maxSamplingRounds {
			return nil, fmt.Errorf("%w: %d distinct samples after %d rounds, want %d", ErrInsufficientData, len(samples), round, n)
		}

		columns := make([][]float64, len(axes))
		for d, axis := range axes {
			columns[d] = strata(axis, n)
			rng.Shuffle(len(columns[d]), func(i, j int) {
				columns[d][i], columns[d][j] = columns[d][j], columns[d][i]
			})
		}

		for i := 0; i < len(columns[0]) && len(samples) < n; i++ {
			point := make([]float64, len(columns))
			for d := range columns {
				point[d] = columns[d][i]
			}

			if !containsPoint(samples, point, DuplicateTolerance) {
				samples = append(samples, point)
			}
		}
	}

	return samples, nil
}

// strata picks min(n, len(axis)) values of axis at a constant index stride,
// centred in the axis.
func strata(axis []float64, n int) []float64 {
	m := len(axis)
	if n > m {
		n = m
	}

	stride := 1
	if n > 1 {
		stride = max(1, (m-1)/(n-1))
	}

	start := max(0, ((m-1)-stride*(n-1))/2)

	out := make([]float64, n)
	for i := range out {
		out[i] = axis[start+i*stride]
	}

	return out
}

//////
// Fixed tables.
//////

// Table is a finite, fully evaluated search space.
type Table struct {
	Observations
}

// NewTable validates obs and wraps it. Every row must have a value.
func NewTable(obs Observations) (*Table, error) {
	if obs.Len() == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrInsufficientData)
	}

	if obs.Y == nil {
		return nil, fmt.Errorf("%w: table has no values", ErrDimensionMismatch)
	}

	if err := obs.Validate(); err != nil {
		return nil, err
	}

	return &Table{Observations: obs}, nil
}

// Lookup returns the value of the first row within DuplicateTolerance of x.
func (t *Table) Lookup(x []float64) (float64, bool) {
	i := nearest(t.X, x, DuplicateTolerance)
	if i < 0 {
		return 0, false
	}

	return t.Y[i], true
}

// Min returns the lowest value in the table.
func (t *Table) Min() float64 {
	return minValue(t.Y)
}

// Objective exposes the table as an ObjectiveFunc.
func (t *Table) Objective() ObjectiveFunc {
	return func(xs [][]float64) ([]float64, error) {
		ys := make([]float64, len(xs))

		for i, x := range xs {
			y, ok := t.Lookup(x)
			if !ok {
				return nil, fmt.Errorf("%w: %v", ErrUnknownPoint, x)
			}

			ys[i] = y
		}

		return ys, nil
	}
}
