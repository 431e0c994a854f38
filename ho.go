package boost

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// convergenceSlack is added to the target when checking whether a run
// reached it.
const convergenceSlack = 1e-10

//////
// Const, vars, types.
//////

// Config holds the parameters of a driver run.
//
// Fields explanation:
// - MaxIterations: total evaluation budget, initial samples included
// - InitialSamples: size of the initial design
// - Kernel, Acquisition: combination used when UseBoost is off, and the
// fallback when a recommendation has too little data
// - UseBoost: ask the engine for a combination before every step
// - Seed: drives the initial design and is stored on every recommendation
// record. The tie-break of each Recommend call is seeded by its iteration
// - Engine: recommendation engine configuration
// - ProgressChan: optional channel for progress updates, never blocks
type Config struct {
	MaxIterations  int
	InitialSamples int

	Kernel      KernelType
	Acquisition AcquisitionType
	UseBoost    bool

	Seed   int64
	Engine EngineConfig

	ProgressChan chan<- ProgressUpdate
}

// DefaultConfig returns a default configuration: 100 evaluations, 10 of
// them initial, Matern52/EI, no recommendation.
func DefaultConfig() Config {
	return Config{
		MaxIterations:  100,
		InitialSamples: 10,
		Kernel:         Matern52,
		Acquisition:    EI,
		Engine:         DefaultEngineConfig(),
		ProgressChan:   nil, // Default to no progress updates.
	}
}

// Problem describes what a driver run optimises. Exactly one of Ranges and
// Table must be set.
type Problem struct {
	// Ranges span a grid search space, evaluated through Objective.
	Ranges []ParameterRange[float64]

	// Objective evaluates grid points.
	Objective ObjectiveFunc

	// Table is a fixed, fully evaluated search space.
	Table *Table

	// Target is the value regret is measured against. When nil it is the
	// table minimum, or 0 on a grid.
	Target *float64
}

// HistoryEntry is the regret after one evaluation.
type HistoryEntry struct {
	Iteration int     `yaml:"iteration"`
	Regret    float64 `yaml:"regret"`
}

// Result is the outcome of a driver run.
type Result struct {
	RunID string `yaml:"run_id"`
	Seed  int64  `yaml:"seed"`

	BestX []float64 `yaml:"best_x"`
	BestY float64   `yaml:"best_y"`

	Target    float64 `yaml:"target"`
	Converged bool    `yaml:"converged"`

	// Kernel and Acquisition are the last combination used.
	Kernel      KernelType      `yaml:"kernel"`
	Acquisition AcquisitionType `yaml:"acquisition"`

	TrainX [][]float64 `yaml:"train_x"`
	TrainY []float64   `yaml:"train_y"`

	// History holds one entry per iteration of the budget. Iterations after
	// convergence are padded with zero regret.
	History []HistoryEntry `yaml:"history"`

	// Recommendations holds one record per Recommend call. Calls that had
	// too little data are marked Skipped and carry the combination kept.
	Recommendations []RecommendationRecord `yaml:"recommendations,omitempty"`

	// SkippedRecommendations counts the Skipped records.
	SkippedRecommendations int `yaml:"skipped_recommendations"`
}

//////
// Exported functionalities.
//////

// Optimize runs Bayesian optimisation over problem and returns the best point
// found together with the regret history.
//
// Usage example:
//
//	config := DefaultConfig()
//	config.UseBoost = true
//
//	result, err := Optimize(ctx, config, Problem{
//	    Ranges:    []ParameterRange[float64]{Linspace(-10, 10, 41), Linspace(-10, 10, 41)},
//	    Objective: sumSquares,
//	}, WithLogger(logger))
//
// How it works:
// 1. Initial design: a discrete Latin hypercube on the grid, or
// InitialSamples table rows drawn without replacement
// 2. The candidate pool is every other grid point or table row
// 3. For each remaining evaluation:
//   - Optionally asks the engine for a kernel and acquisition
//   - Takes one Bayesian-optimisation step on the pool
//   - Moves the chosen point from the pool to the train set
//   - Records the regret and publishes progress
//   - Stops once the best value is within 1e-10 of the target
//
// opts configure the engine used for recommendations and steps.
func Optimize(ctx context.Context, config Config, problem Problem, opts ...Option) (Result, error) {
	if (problem.Table == nil) == (len(problem.Ranges) == 0) {
		return Result{}, fmt.Errorf("%w: exactly one of ranges and table is required", ErrUnsupportedConfiguration)
	}

	if config.InitialSamples < 1 || config.MaxIterations < config.InitialSamples {
		return Result{}, fmt.Errorf("%w: %d initial samples for %d iterations", ErrUnsupportedConfiguration, config.InitialSamples, config.MaxIterations)
	}

	if !config.Kernel.Valid() {
		return Result{}, unsupportedKernel(config.Kernel)
	}

	if !config.Acquisition.Valid() {
		return Result{}, unsupportedAcquisition(config.Acquisition)
	}

	engine := NewEngine(config.Engine, opts...)
	logger := engine.logger.WithField("component", "driver")

	runID := uuid.NewString()
	sampling := NewPartitionedRNG(config.Seed).ForSubsystem(SubsystemSampling)

	var (
		trainX, candX [][]float64
		trainY, candY []float64
		objective     ObjectiveFunc
		target        float64
		poolSize      int
	)

	if problem.Table != nil {
		table := problem.Table
		if table.Len() < config.InitialSamples {
			return Result{}, fmt.Errorf("%w: table of %d rows for %d initial samples", ErrInsufficientData, table.Len(), config.InitialSamples)
		}

		picked := make([]bool, table.Len())
		for _, i := range sampling.Perm(table.Len())[:config.InitialSamples] {
			picked[i] = true
			trainX = append(trainX, cloneVector(table.X[i]))
			trainY = append(trainY, table.Y[i])
		}

		for i, x := range table.X {
			if !picked[i] {
				candX = append(candX, x)
				candY = append(candY, table.Y[i])
			}
		}

		objective = table.Objective()
		target = table.Min()
		poolSize = table.Len()
	} else {
		if problem.Objective == nil {
			return Result{}, ErrMissingObjective
		}

		var err error

		trainX, err = LatinHypercube(sampling, config.InitialSamples, problem.Ranges...)
		if err != nil {
			return Result{}, fmt.Errorf("initial design: %w", err)
		}

		trainY, err = problem.Objective(trainX)
		if err != nil {
			return Result{}, fmt.Errorf("evaluate initial design: %w", err)
		}

		if len(trainY) != len(trainX) {
			return Result{}, fmt.Errorf("%w: objective returned %d values for %d points", ErrDimensionMismatch, len(trainY), len(trainX))
		}

		grid, err := Grid(problem.Ranges...)
		if err != nil {
			return Result{}, err
		}

		candX = FilterEvaluated(grid, trainX, DuplicateTolerance)
		objective = problem.Objective
		poolSize = len(grid)
	}

	if problem.Target != nil {
		target = *problem.Target
	}

	result := Result{
		RunID:       runID,
		Seed:        config.Seed,
		Target:      target,
		Kernel:      config.Kernel,
		Acquisition: config.Acquisition,
	}

	// Helper function to send progress updates.
	sendProgress := func(phase string, iteration, seen int, current []float64, value float64) {
		if config.ProgressChan == nil {
			return
		}

		best := argsort(trainY[:seen])[0]

		update := ProgressUpdate{
			Phase:             phase,
			CurrentIteration:  iteration,
			TotalIterations:   config.MaxIterations,
			Kernel:            result.Kernel,
			Acquisition:       result.Acquisition,
			CurrentParams:     cloneVector(current),
			CurrentBestParams: cloneVector(trainX[best]),
			CurrentBestValue:  trainY[best],
			LastValue:         value,
		}

		select {
		case config.ProgressChan <- update:
		default:
			// Skip update if channel is full.
		}
	}

	// Phase 1: initial design.
	for i := range trainX {
		result.History = append(result.History, HistoryEntry{
			Iteration: i,
			Regret:    minValue(trainY[:i+1]) - target,
		})

		sendProgress("InitialSampling", i+1, i+1, trainX[i], trainY[i])
	}

	logger.WithFields(logrus.Fields{
		"run_id":     runID,
		"seed":       config.Seed,
		"initial":    len(trainX),
		"candidates": len(candX),
		"target":     target,
		"boost":      config.UseBoost,
	}).Info("starting optimization")

	// Phase 2: Bayesian optimisation loop.
	for iter := config.InitialSamples; iter < config.MaxIterations && len(candX) > 0; iter++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if config.UseBoost {
			rec, err := engine.Recommend(ctx, RecommendInput{
				Observations: Observations{X: trainX, Y: trainY},
				Objective:    objective,
				Seed:         int64(iter),
				RunID:        runID,
				RunSeed:      config.Seed,
				Iteration:    iter,
			})

			switch {
			case errors.Is(err, ErrInsufficientData):
				logger.WithError(err).WithField("iteration", iter).Warn("keeping previous combination")

				result.SkippedRecommendations++
				result.Recommendations = append(result.Recommendations, RecommendationRecord{
					RunID:       runID,
					Iteration:   iter,
					Seed:        config.Seed,
					Kernel:      result.Kernel,
					Acquisition: result.Acquisition,
					Skipped:     true,
				})
			case err != nil:
				return result, fmt.Errorf("recommend at iteration %d: %w", iter, err)
			default:
				result.Kernel, result.Acquisition = rec.Kernel, rec.Acquisition
				result.Recommendations = append(result.Recommendations, newRecord(runID, iter, config.Seed, rec))
			}
		}

		x, y, idx, err := engine.step.NextPoint(trainX, trainY, candX, candY, result.Kernel, result.Acquisition, objective)
		if err != nil {
			return result, fmt.Errorf("step at iteration %d: %w", iter, err)
		}

		trainX = append(trainX, x)
		trainY = append(trainY, y)
		candX = removeRow(candX, idx)
		candY = removeAt(candY, idx)

		if len(candX)+len(trainX) != poolSize {
			return result, fmt.Errorf("candidate pool out of sync: %d candidates and %d evaluated for a pool of %d", len(candX), len(trainX), poolSize)
		}

		best := minValue(trainY)
		result.History = append(result.History, HistoryEntry{Iteration: iter, Regret: best - target})

		sendProgress("Optimization", iter+1, len(trainY), x, y)

		logger.WithFields(logrus.Fields{
			"iteration":   iter,
			"kernel":      result.Kernel.String(),
			"acquisition": result.Acquisition.String(),
			"value":       y,
			"regret":      best - target,
		}).Debug("evaluated point")

		if best <= target+convergenceSlack {
			result.Converged = true

			for rest := iter + 1; rest < config.MaxIterations; rest++ {
				result.History = append(result.History, HistoryEntry{Iteration: rest})
			}

			break
		}
	}

	best := argsort(trainY)[0]
	result.BestX = cloneVector(trainX[best])
	result.BestY = trainY[best]
	result.TrainX = trainX
	result.TrainY = trainY

	logger.WithFields(logrus.Fields{
		"run_id":      runID,
		"best":        result.BestY,
		"converged":   result.Converged,
		"evaluations": len(trainY),
	}).Info("optimization finished")

	return result, nil
}
