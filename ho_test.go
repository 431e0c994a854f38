package boost

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumSquares(xs [][]float64) ([]float64, error) {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		for j, v := range x {
			ys[i] += float64(j+1) * v * v
		}
	}

	return ys, nil
}

func TestOptimizeGrid(t *testing.T) {
	config := DefaultConfig()
	config.InitialSamples = 5
	config.MaxIterations = 12
	config.Seed = 1

	result, err := Optimize(context.Background(), config, Problem{
		Ranges:    []ParameterRange[float64]{Linspace(-2, 2, 5), Linspace(-2, 2, 5)},
		Objective: sumSquares,
	})
	require.NoError(t, err)

	require.Len(t, result.History, config.MaxIterations)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 0.0, result.Target)
	assert.LessOrEqual(t, len(result.TrainY), config.MaxIterations)
	assert.Len(t, result.TrainX, len(result.TrainY))
	assert.Equal(t, minValue(result.TrainY), result.BestY)

	for i := 1; i < len(result.History); i++ {
		assert.Equal(t, i, result.History[i].Iteration)
		assert.LessOrEqual(t, result.History[i].Regret, result.History[i-1].Regret, "regret never increases")
	}

	for i, x := range result.TrainX {
		assert.False(t, containsPoint(result.TrainX[:i], x, DuplicateTolerance), "%v evaluated twice", x)
	}

	if result.Converged {
		assert.Equal(t, 0.0, result.History[len(result.History)-1].Regret)
		assert.Equal(t, []float64{0, 0}, result.BestX)
	}

	again, err := Optimize(context.Background(), config, Problem{
		Ranges:    []ParameterRange[float64]{Linspace(-2, 2, 5), Linspace(-2, 2, 5)},
		Objective: sumSquares,
	})
	require.NoError(t, err)
	assert.Equal(t, result.TrainX, again.TrainX, "same seed, same trajectory")
}

func TestOptimizeTableWithBoost(t *testing.T) {
	xs := fullGrid()
	ys, _ := absDistanceToFive(xs)

	table, err := NewTable(Observations{X: xs, Y: ys})
	require.NoError(t, err)

	config := DefaultConfig()
	config.InitialSamples = 6
	config.MaxIterations = 11
	config.UseBoost = true
	config.Seed = 3

	sink := NewMemorySink()

	result, err := Optimize(context.Background(), config, Problem{Table: table}, WithSink(sink))
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.Equal(t, 0.0, result.BestY)
	assert.Equal(t, []float64{5}, result.BestX)
	assert.Equal(t, 0.0, result.Target)
	assert.Len(t, result.History, config.MaxIterations)

	assert.Equal(t, sink.Records(), result.Recommendations)

	for _, r := range result.Recommendations {
		assert.Equal(t, result.RunID, r.RunID)
		assert.Equal(t, config.Seed, r.Seed)
		assert.GreaterOrEqual(t, r.Iteration, config.InitialSamples)
	}
}

func TestOptimizeTieBreakSeededByIteration(t *testing.T) {
	xs := fullGrid()
	ys, _ := absDistanceToFive(xs)

	table, err := NewTable(Observations{X: xs, Y: ys})
	require.NoError(t, err)

	config := DefaultConfig()
	config.InitialSamples = 6
	config.MaxIterations = 10
	config.UseBoost = true
	config.Seed = 3
	config.Engine.RandomTieBreak = true

	target := -1.0 // unreachable, so every iteration recommends

	var seeds []int64

	withPicked := func(e *Engine) {
		e.picked = func(seed int64) { seeds = append(seeds, seed) }
	}

	result, err := Optimize(context.Background(), config, Problem{Table: table, Target: &target}, withPicked)
	require.NoError(t, err)

	var iterations []int64

	for _, r := range result.Recommendations {
		assert.Equal(t, config.Seed, r.Seed, "records keep the run seed")

		if !r.Skipped {
			iterations = append(iterations, int64(r.Iteration))
		}
	}

	require.NotEmpty(t, iterations)
	assert.Equal(t, iterations, seeds)
	assert.Len(t, result.Recommendations, config.MaxIterations-config.InitialSamples)
}

func TestOptimizeSkipsRecommendationOnInsufficientData(t *testing.T) {
	xs := fullGrid()[:8]
	ys := make([]float64, len(xs))
	for i := range ys {
		ys[i] = 1
	}

	table, err := NewTable(Observations{X: xs, Y: ys})
	require.NoError(t, err)

	config := DefaultConfig()
	config.InitialSamples = 3
	config.MaxIterations = 6
	config.UseBoost = true
	config.Kernel = RBF
	config.Acquisition = PI

	logger, hook := test.NewNullLogger()
	sink := NewMemorySink()

	result, err := Optimize(context.Background(), config, Problem{Table: table}, WithLogger(logger), WithSink(sink))
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.Equal(t, 1, result.SkippedRecommendations)
	assert.Equal(t, []RecommendationRecord{{
		RunID:       result.RunID,
		Iteration:   config.InitialSamples,
		Seed:        config.Seed,
		Kernel:      RBF,
		Acquisition: PI,
		Skipped:     true,
	}}, result.Recommendations)
	assert.Empty(t, sink.Records(), "skipped steps are not sent to the sink")
	assert.Equal(t, RBF, result.Kernel)
	assert.Equal(t, PI, result.Acquisition)

	var warnings int

	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "keeping previous combination" {
			warnings++
		}
	}

	assert.Equal(t, 1, warnings)
}

func TestOptimizeProgressChannel(t *testing.T) {
	config := DefaultConfig()
	config.InitialSamples = 3
	config.MaxIterations = 8

	// Buffered so no update is dropped.
	progressChan := make(chan ProgressUpdate, config.MaxIterations)
	config.ProgressChan = progressChan

	target := -1.0 // unreachable, so every iteration runs

	_, err := Optimize(context.Background(), config, Problem{
		Ranges:    []ParameterRange[float64]{Linspace(0, 10, 11)},
		Objective: absDistanceToFive,
		Target:    &target,
	})
	require.NoError(t, err)

	close(progressChan)

	var counter int32
	var phases []string

	for update := range progressChan {
		atomic.AddInt32(&counter, 1)
		phases = append(phases, update.Phase)

		assert.Equal(t, config.MaxIterations, update.TotalIterations)
		assert.Equal(t, math.Abs(update.CurrentParams[0]-5), update.LastValue)
		assert.LessOrEqual(t, update.CurrentBestValue, update.LastValue)
	}

	assert.Equal(t, int32(config.MaxIterations), atomic.LoadInt32(&counter))
	assert.Equal(t, []string{"InitialSampling", "InitialSampling", "InitialSampling"}, phases[:3])
	assert.Equal(t, "Optimization", phases[len(phases)-1])
}

func TestOptimizeErrors(t *testing.T) {
	ctx := context.Background()
	ranges := []ParameterRange[float64]{Linspace(0, 10, 11)}

	table, err := NewTable(Observations{X: [][]float64{{0}, {1}}, Y: []float64{1, 0}})
	require.NoError(t, err)

	_, err = Optimize(ctx, DefaultConfig(), Problem{})
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)

	_, err = Optimize(ctx, DefaultConfig(), Problem{Ranges: ranges, Table: table})
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)

	_, err = Optimize(ctx, DefaultConfig(), Problem{Ranges: ranges})
	assert.ErrorIs(t, err, ErrMissingObjective)

	_, err = Optimize(ctx, DefaultConfig(), Problem{Table: table})
	assert.ErrorIs(t, err, ErrInsufficientData)

	config := DefaultConfig()
	config.InitialSamples = 20
	config.MaxIterations = 10
	_, err = Optimize(ctx, config, Problem{Ranges: ranges, Objective: absDistanceToFive})
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)

	config = DefaultConfig()
	config.Kernel = 0
	_, err = Optimize(ctx, config, Problem{Ranges: ranges, Objective: absDistanceToFive})
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	config = DefaultConfig()
	config.InitialSamples = 3
	_, err = Optimize(cancelled, config, Problem{Ranges: ranges, Objective: absDistanceToFive})
	assert.ErrorIs(t, err, context.Canceled)
}
