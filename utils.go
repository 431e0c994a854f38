package boost

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

//////
// Helper functions.
//////

// checkDims verifies that every row of xs has the dimension of the first.
func checkDims(xs [][]float64) error {
	if len(xs) == 0 {
		return nil
	}

	d := len(xs[0])
	if d == 0 {
		return fmt.Errorf("%w: zero-dimensional points", ErrDimensionMismatch)
	}

	for i, x := range xs {
		if len(x) != d {
			return fmt.Errorf("%w: point %d has dimension %d, want %d", ErrDimensionMismatch, i, len(x), d)
		}
	}

	return nil
}

// cloneMatrix returns a deep copy of xs. The copies are what make each
// internal simulation own its train and candidate state.
func cloneMatrix(xs [][]float64) [][]float64 {
	if xs == nil {
		return nil
	}

	out := make([][]float64, len(xs))
	for i, x := range xs {
		out[i] = append([]float64(nil), x...)
	}

	return out
}

// cloneVector returns a copy of v, preserving nil.
func cloneVector(v []float64) []float64 {
	if v == nil {
		return nil
	}

	return append([]float64(nil), v...)
}

// removeRow returns xs without row i. The backing array of xs is not reused.
func removeRow(xs [][]float64, i int) [][]float64 {
	out := make([][]float64, 0, len(xs)-1)
	out = append(out, xs[:i]...)

	return append(out, xs[i+1:]...)
}

// removeAt returns v without element i, preserving nil.
func removeAt(v []float64, i int) []float64 {
	if v == nil {
		return nil
	}

	out := make([]float64, 0, len(v)-1)
	out = append(out, v[:i]...)

	return append(out, v[i+1:]...)
}

// minValue returns the smallest value of v, +Inf when empty.
func minValue(v []float64) float64 {
	if len(v) == 0 {
		return math.Inf(1)
	}

	return floats.Min(v)
}

// argsort returns the indices that sort v ascending. Equal values keep
// their original order.
func argsort(v []float64) []int {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	return idx
}

// sigmoid is the logistic function.
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// softplus is log(1+e^x), computed without overflow for large x.
func softplus(x float64) float64 {
	if x > 30 {
		return x
	}

	return math.Log1p(math.Exp(x))
}
