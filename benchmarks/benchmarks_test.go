package benchmarks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thalesfsp/boost"
)

func TestGlobalMinima(t *testing.T) {
	tests := []struct {
		name    string
		f       Func
		minimum []float64
	}{
		{"ackley", Ackley, []float64{0, 0, 0, 0}},
		{"levy", Levy, []float64{1, 1, 1, 1}},
		{"rosenbrock", Rosenbrock, []float64{1, 1, 1, 1}},
		{"sumsquares", SumSquares, []float64{0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, 0, tt.f(tt.minimum), 1e-12)
			assert.Greater(t, tt.f([]float64{3, -2, 4, 2}), 0.0)
		})
	}
}

func TestKnownValues(t *testing.T) {
	assert.Equal(t, 1.0+2*4+3*9, SumSquares([]float64{1, 2, 3}))
	assert.Equal(t, 100.0+1.0, Rosenbrock([]float64{0, 1}))
}

func TestLookup(t *testing.T) {
	b, err := Lookup("Ackley")
	require.NoError(t, err)

	assert.Equal(t, "ackley", b.Name)
	assert.Equal(t, 4, b.Dim)
	assert.Equal(t, 37, b.GridPoints)

	_, err = Lookup("branin")
	assert.ErrorIs(t, err, boost.ErrUnsupportedConfiguration)

	assert.Equal(t, []string{"ackley", "levy", "rosenbrock", "sumsquares"}, Names())
}

func TestGridContainsMinimiser(t *testing.T) {
	minimisers := map[string]float64{"ackley": 0, "levy": 1, "rosenbrock": 1, "sumsquares": 0}

	for _, name := range Names() {
		b, err := Lookup(name)
		require.NoError(t, err)

		ranges := b.Ranges()
		require.Len(t, ranges, b.Dim)

		values := ranges[0].Values()
		require.Len(t, values, b.GridPoints)
		assert.Equal(t, b.Lower, values[0], name)
		assert.InDelta(t, b.Upper, values[len(values)-1], 1e-9, name)

		found := false
		for _, v := range values {
			if v > minimisers[name]-1e-9 && v < minimisers[name]+1e-9 {
				found = true
			}
		}

		assert.True(t, found, "%s grid misses its minimiser", name)
	}
}

func TestObjective(t *testing.T) {
	b, err := Lookup("sumsquares")
	require.NoError(t, err)

	ys, err := b.Objective()([][]float64{{0, 0, 0, 0}, {1, 1, 1, 1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10}, ys)

	_, err = b.Objective()([][]float64{{}})
	assert.ErrorIs(t, err, boost.ErrDimensionMismatch)

	problem := b.Problem()
	require.NotNil(t, problem.Target)
	assert.Equal(t, 0.0, *problem.Target)
	assert.Len(t, problem.Ranges, 4)
}
