package boost

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStep() *Step {
	return NewStep(NewSurrogate(DefaultSurrogateConfig(), nil), DefaultKappa, nil)
}

func TestNextPointFixedTable(t *testing.T) {
	trainX := [][]float64{{0}, {2}, {8}, {10}}
	trainY := []float64{5, 3, 3, 5}
	candX := [][]float64{{4}, {5}, {6}}
	candY := []float64{1, 0, 1}

	for _, acq := range AllAcquisitions() {
		t.Run(acq.String(), func(t *testing.T) {
			x, y, idx, err := newTestStep().NextPoint(trainX, trainY, candX, candY, Matern52, acq, nil)
			require.NoError(t, err)

			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, len(candX))
			assert.Equal(t, candX[idx], x)
			assert.Equal(t, candY[idx], y)

			assert.Len(t, candX, 3, "inputs are not modified")
			assert.Len(t, trainX, 4, "inputs are not modified")
		})
	}
}

func TestNextPointObjective(t *testing.T) {
	var calls [][]float64

	objective := ObjectiveFunc(func(xs [][]float64) ([]float64, error) {
		calls = append(calls, xs...)

		ys := make([]float64, len(xs))
		for i, x := range xs {
			ys[i] = math.Abs(x[0] - 5)
		}

		return ys, nil
	})

	x, y, idx, err := newTestStep().NextPoint(
		[][]float64{{0}, {10}, {3}},
		[]float64{5, 5, 2},
		[][]float64{{1}, {4}, {9}},
		nil,
		RBF, PM, objective,
	)
	require.NoError(t, err)

	require.Len(t, calls, 1, "objective is evaluated once, on the chosen point")
	assert.Equal(t, x, calls[0])
	assert.Equal(t, math.Abs(x[0]-5), y)
	assert.Equal(t, []float64{1, 4, 9}[idx], x[0])
}

func TestNextPointErrors(t *testing.T) {
	s := newTestStep()
	trainX := [][]float64{{0}, {1}}
	trainY := []float64{1, 0}

	_, _, _, err := s.NextPoint(trainX, trainY, [][]float64{{2}}, nil, RBF, EI, nil)
	assert.ErrorIs(t, err, ErrMissingObjective)

	_, _, _, err = s.NextPoint(trainX, trainY, nil, []float64{}, RBF, EI, nil)
	assert.ErrorIs(t, err, ErrEmptyCandidatePool)

	_, _, _, err = s.NextPoint(trainX, trainY, [][]float64{{2}, {3}}, []float64{1}, RBF, EI, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, _, _, err = s.NextPoint(trainX, trainY, [][]float64{{2}}, []float64{1}, KernelType(9), EI, nil)
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)

	_, _, _, err = s.NextPoint(trainX, trainY, [][]float64{{2}}, []float64{1}, RBF, AcquisitionType(9), nil)
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)

	failing := ObjectiveFunc(func([][]float64) ([]float64, error) { return nil, errors.New("boom") })
	_, _, _, err = s.NextPoint(trainX, trainY, [][]float64{{2}}, nil, RBF, EI, failing)
	assert.EqualError(t, err, "evaluate objective: boom")
}
