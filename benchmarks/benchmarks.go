// Package benchmarks provides synthetic objectives with known minima for
// exercising the optimiser: Ackley, Levy, Rosenbrock and SumSquares.
package benchmarks

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/thalesfsp/boost"
	"gonum.org/v1/gonum/floats"
)

// Func evaluates a single point.
type Func func(x []float64) float64

// Benchmark is a synthetic objective together with its reference search
// space.
type Benchmark struct {
	// Name is the lowercase benchmark name.
	Name string

	// Lower and Upper bound every dimension.
	Lower, Upper float64

	// GridPoints is the number of grid values per dimension.
	GridPoints int

	// Dim is the reference dimensionality.
	Dim int

	// Target is the global minimum value.
	Target float64

	// Func evaluates one point.
	Func Func
}

var registry = map[string]Benchmark{
	"ackley": {
		Name: "ackley", Lower: -31.5, Upper: 31.5, GridPoints: 37, Dim: 4, Func: Ackley,
	},
	"levy": {
		Name: "levy", Lower: -10, Upper: 10, GridPoints: 41, Dim: 4, Func: Levy,
	},
	"rosenbrock": {
		Name: "rosenbrock", Lower: -5, Upper: 10, GridPoints: 31, Dim: 4, Func: Rosenbrock,
	},
	"sumsquares": {
		Name: "sumsquares", Lower: -10, Upper: 10, GridPoints: 41, Dim: 4, Func: SumSquares,
	},
}

// Lookup returns the benchmark registered under name, case-insensitively.
func Lookup(name string) (Benchmark, error) {
	b, ok := registry[strings.ToLower(name)]
	if !ok {
		return Benchmark{}, fmt.Errorf("%w: benchmark %q, want one of %s",
			boost.ErrUnsupportedConfiguration, name, strings.Join(Names(), ", "))
	}

	return b, nil
}

// Names returns the registered benchmark names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Ranges returns the benchmark's grid, one range per dimension.
func (b Benchmark) Ranges() []boost.ParameterRange[float64] {
	ranges := make([]boost.ParameterRange[float64], b.Dim)
	for d := range ranges {
		ranges[d] = boost.Linspace(b.Lower, b.Upper, b.GridPoints)
	}

	return ranges
}

// Objective evaluates the benchmark on a batch of points.
func (b Benchmark) Objective() boost.ObjectiveFunc {
	return func(xs [][]float64) ([]float64, error) {
		ys := make([]float64, len(xs))

		for i, x := range xs {
			if len(x) == 0 {
				return nil, fmt.Errorf("%w: point %d is empty", boost.ErrDimensionMismatch, i)
			}

			ys[i] = b.Func(x)
		}

		return ys, nil
	}
}

// Problem returns the benchmark as a driver problem on its reference grid.
func (b Benchmark) Problem() boost.Problem {
	target := b.Target

	return boost.Problem{
		Ranges:    b.Ranges(),
		Objective: b.Objective(),
		Target:    &target,
	}
}

//////
// Functions.
//////

// Ackley has its global minimum f(0, ..., 0) = 0.
func Ackley(x []float64) float64 {
	n := float64(len(x))

	var cosines float64
	for _, v := range x {
		cosines += math.Cos(2 * math.Pi * v)
	}

	return -20*math.Exp(-0.2*math.Sqrt(floats.Dot(x, x)/n)) - math.Exp(cosines/n) + 20 + math.E
}

// Levy has its global minimum f(1, ..., 1) = 0.
func Levy(x []float64) float64 {
	w := make([]float64, len(x))
	for i, v := range x {
		w[i] = 1 + (v-1)/4
	}

	last := w[len(w)-1]

	sum := math.Pow(math.Sin(math.Pi*w[0]), 2)
	for _, wi := range w[:len(w)-1] {
		sum += (wi - 1) * (wi - 1) * (1 + 10*math.Pow(math.Sin(math.Pi*wi+1), 2))
	}

	return sum + (last-1)*(last-1)*(1+math.Pow(math.Sin(2*math.Pi*last), 2))
}

// Rosenbrock has its global minimum f(1, ..., 1) = 0.
func Rosenbrock(x []float64) float64 {
	var sum float64

	for i := 0; i+1 < len(x); i++ {
		a := x[i+1] - x[i]*x[i]
		b := x[i] - 1
		sum += 100*a*a + b*b
	}

	return sum
}

// SumSquares has its global minimum f(0, ..., 0) = 0.
func SumSquares(x []float64) float64 {
	var sum float64
	for i, v := range x {
		sum += float64(i+1) * v * v
	}

	return sum
}
