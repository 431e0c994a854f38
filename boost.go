package boost

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

//////
// Const, vars, types.
//////

// SimulationState is the lifecycle of one internal simulation.
type SimulationState int

const (
	// SimulationSeeded: private train set holds only the seed points.
	SimulationSeeded SimulationState = iota

	// SimulationIterating: at least one step has been taken.
	SimulationIterating

	// SimulationConverged: the best value reached the target.
	SimulationConverged

	// SimulationCapped: the iteration cap was exceeded.
	SimulationCapped

	// SimulationExhausted: every observed point was drawn.
	SimulationExhausted
)

func (s SimulationState) String() string {
	switch s {
	case SimulationSeeded:
		return "SEEDED"
	case SimulationIterating:
		return "ITERATING"
	case SimulationConverged:
		return "CONVERGED"
	case SimulationCapped:
		return "CAPPED"
	case SimulationExhausted:
		return "EXHAUSTED"
	default:
		return fmt.Sprintf("SimulationState(%d)", int(s))
	}
}

// SimulationResult is the score of one (acquisition, kernel) combination.
type SimulationResult struct {
	Combination

	// Iterations is the counter value at which the simulation stopped. A
	// capped simulation scores MaxIterations+1.
	Iterations int

	// State is the terminal state.
	State SimulationState

	// Best is the lowest value in the simulation's train set at the end.
	Best float64
}

// Recommendation is the outcome of one Recommend call.
type Recommendation struct {
	Kernel      KernelType
	Acquisition AcquisitionType

	// Iterations is the winning simulation's score.
	Iterations int

	// Target is the value the simulations had to reach.
	Target float64

	// SeedSize is the number of seed points each simulation started from.
	SeedSize int

	// Simulations holds every combination's result, acquisition-major in
	// the order the combinations were tried.
	Simulations []SimulationResult
}

// EngineConfig holds the parameters of the recommendation engine.
//
// Fields explanation:
// - Kernels, Acquisitions: default candidate lists, tried as the Cartesian
// product with acquisitions in the outer loop
// - MinInit, MaxInit, InitRatio: seed size is round(n/InitRatio) clamped to
// [MinInit, MaxInit] where n is the number of observations
// - MaxIterations: iteration cap of one simulation
// - TargetPercentile: starting percentile of the target search
// - Workers: size of the simulation worker pool, 0 for
// min(10, max(8, combinations/2))
// - RandomTieBreak: choose uniformly among equally fast combinations
// instead of the first one
// - Kappa: exploration weight of UCB
type EngineConfig struct {
	Kernels      []KernelType
	Acquisitions []AcquisitionType

	MinInit   int
	MaxInit   int
	InitRatio float64

	MaxIterations    int
	TargetPercentile float64

	Workers        int
	RandomTieBreak bool
	Kappa          float64

	Surrogate SurrogateConfig
	Selector  SelectorConfig
}

// DefaultEngineConfig returns the reference configuration: all four
// kernels and acquisitions, seed size in [3, 20], cap 20, 5th percentile.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Kernels:          AllKernels(),
		Acquisitions:     AllAcquisitions(),
		MinInit:          3,
		MaxInit:          20,
		InitRatio:        3,
		MaxIterations:    20,
		TargetPercentile: 0.05,
		Kappa:            DefaultKappa,
		Surrogate:        DefaultSurrogateConfig(),
		Selector:         DefaultSelectorConfig(),
	}
}

// RecommendInput is the data handed to Recommend.
type RecommendInput struct {
	// Observations are the points evaluated so far. When Y is nil the
	// values are obtained from Objective.
	Observations

	// Objective evaluates points when Observations.Y is nil. It is also
	// used by the simulations to resolve drawn points in that mode.
	Objective ObjectiveFunc

	// Kernels and Acquisitions override the engine defaults when set.
	Kernels      []KernelType
	Acquisitions []AcquisitionType

	// Seed drives the random tie-break. The driver passes the outer
	// iteration index so each step draws afresh.
	Seed int64

	// RunID, RunSeed and Iteration are copied into the emitted record.
	RunID     string
	RunSeed   int64
	Iteration int
}

// Engine recommends the kernel and acquisition function for the next
// Bayesian-optimisation step by simulating every combination on the data
// observed so far and choosing the one that reaches a percentile target in
// the fewest iterations.
//
// Engine is safe for concurrent use.
type Engine struct {
	config   EngineConfig
	step     *Step
	selector *RepresentativeSelector
	logger   logrus.FieldLogger
	metrics  *Metrics
	sink     RecommendationSink

	// trace, when set, observes the pool sizes after every simulation step.
	trace func(c Combination, trainSize, candidateSize int)

	// picked, when set, observes the seed handed to every selection.
	picked func(seed int64)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records engine and surrogate metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithSink emits a record to sink after every successful recommendation.
func WithSink(sink RecommendationSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

//////
// Factory.
//////

// NewEngine creates an engine from config.
func NewEngine(config EngineConfig, opts ...Option) *Engine {
	e := &Engine{
		config: config,
		logger: logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	surrogate := NewSurrogate(config.Surrogate, e.logger)
	surrogate.metrics = e.metrics

	e.step = NewStep(surrogate, config.Kappa, e.logger)
	e.selector = NewRepresentativeSelector(config.Selector)
	e.logger = e.logger.WithField("component", "engine")

	return e
}

//////
// Methods.
//////

// Recommend returns the (kernel, acquisition) pair whose simulated
// optimisation reaches the target fastest on in.Observations.
//
// How it works:
// 1. Seed size n_init = clamp(round(n/InitRatio), MinInit, MaxInit)
// 2. Target = the value at the TargetPercentile rank of the sorted
// observations, relaxed towards rank 0 until at least n_init observations
// lie strictly above it
// 3. n_init seeds are chosen among those observations by k-means; every
// other observation becomes the simulated candidate pool
// 4. Every combination runs its own simulation on private copies, in a
// bounded worker pool, until it reaches the target, exhausts the pool or
// exceeds MaxIterations
// 5. The lowest iteration count wins; the first one in combination order
// unless RandomTieBreak is set
//
// Errors:
// - *InsufficientDataError (matches ErrInsufficientData) when step 2 fails
// - ErrUnsupportedConfiguration for unknown kernels or acquisitions
// - ErrMissingObjective when neither Y nor Objective is provided
// - any simulation failure
func (e *Engine) Recommend(ctx context.Context, in RecommendInput) (Recommendation, error) {
	started := time.Now()

	rec, err := e.recommend(ctx, in)
	if err != nil {
		e.metrics.observeFailure()

		return Recommendation{}, err
	}

	e.metrics.observeRecommendation(rec, started)

	e.logger.WithFields(logrus.Fields{
		"run_id":      in.RunID,
		"iteration":   in.Iteration,
		"kernel":      rec.Kernel.String(),
		"acquisition": rec.Acquisition.String(),
		"iterations":  rec.Iterations,
		"target":      rec.Target,
		"seeds":       rec.SeedSize,
		"elapsed":     time.Since(started),
	}).Info("recommended combination")

	if e.sink != nil {
		if err := e.sink.Record(ctx, newRecord(in.RunID, in.Iteration, in.RunSeed, rec)); err != nil {
			return rec, fmt.Errorf("record recommendation: %w", err)
		}
	}

	return rec, nil
}

func (e *Engine) recommend(ctx context.Context, in RecommendInput) (Recommendation, error) {
	if err := in.Validate(); err != nil {
		return Recommendation{}, err
	}

	combos, err := e.combinations(in.Kernels, in.Acquisitions)
	if err != nil {
		return Recommendation{}, err
	}

	ys := in.Y
	if ys == nil {
		if in.Objective == nil {
			return Recommendation{}, ErrMissingObjective
		}

		if len(in.X) > 0 {
			ys, err = in.Objective(in.X)
			if err != nil {
				return Recommendation{}, fmt.Errorf("evaluate objective: %w", err)
			}

			if len(ys) != len(in.X) {
				return Recommendation{}, fmt.Errorf("%w: objective returned %d values for %d points", ErrDimensionMismatch, len(ys), len(in.X))
			}
		}
	}

	nInit := e.seedSize(len(in.X))

	target, valid, err := selectTarget(ys, nInit, e.config.TargetPercentile)
	if err != nil {
		return Recommendation{}, err
	}

	validX := make([][]float64, len(valid))
	for i, idx := range valid {
		validX[i] = in.X[idx]
	}

	local, err := e.selector.Select(validX, nInit)
	if err != nil {
		return Recommendation{}, fmt.Errorf("select seeds: %w", err)
	}

	isSeed := make([]bool, len(in.X))
	seedX := make([][]float64, 0, nInit)
	seedY := make([]float64, 0, nInit)

	for _, l := range local {
		idx := valid[l]
		isSeed[idx] = true
		seedX = append(seedX, in.X[idx])
		seedY = append(seedY, ys[idx])
	}

	candX := make([][]float64, 0, len(in.X)-nInit)

	var candY []float64
	if in.Y != nil {
		candY = make([]float64, 0, len(in.X)-nInit)
	}

	for i, x := range in.X {
		if isSeed[i] {
			continue
		}

		candX = append(candX, x)
		if candY != nil {
			candY = append(candY, ys[i])
		}
	}

	sp := simulationPool{
		seedX:     seedX,
		seedY:     seedY,
		candX:     candX,
		candY:     candY,
		total:     len(in.X),
		target:    target,
		objective: in.Objective,
	}

	results, err := e.runAll(ctx, combos, sp)
	if err != nil {
		return Recommendation{}, err
	}

	winner := e.pick(results, in.Seed)

	return Recommendation{
		Kernel:      winner.Kernel,
		Acquisition: winner.Acquisition,
		Iterations:  winner.Iterations,
		Target:      target,
		SeedSize:    nInit,
		Simulations: results,
	}, nil
}

// combinations resolves and validates the candidate lists.
func (e *Engine) combinations(kernels []KernelType, acquisitions []AcquisitionType) ([]Combination, error) {
	if len(kernels) == 0 {
		kernels = e.config.Kernels
	}

	if len(acquisitions) == 0 {
		acquisitions = e.config.Acquisitions
	}

	if len(kernels) == 0 || len(acquisitions) == 0 {
		return nil, fmt.Errorf("%w: no kernel or acquisition candidates", ErrUnsupportedConfiguration)
	}

	for _, k := range kernels {
		if !k.Valid() {
			return nil, unsupportedKernel(k)
		}
	}

	for _, a := range acquisitions {
		if !a.Valid() {
			return nil, unsupportedAcquisition(a)
		}
	}

	combos := make([]Combination, 0, len(kernels)*len(acquisitions))
	for _, a := range acquisitions {
		for _, k := range kernels {
			combos = append(combos, Combination{Acquisition: a, Kernel: k})
		}
	}

	return combos, nil
}

// seedSize returns round(n/InitRatio) clamped to [MinInit, MaxInit].
func (e *Engine) seedSize(n int) int {
	size := int(math.Round(float64(n) / e.config.InitRatio))
	size = max(size, e.config.MinInit)

	return min(size, e.config.MaxInit)
}

// workers returns the size of the simulation pool for n combinations.
func (e *Engine) workers(n int) int {
	w := e.config.Workers
	if w <= 0 {
		w = min(10, max(8, n/2))
	}

	return max(1, min(w, n))
}

// runAll simulates every combination and returns the results in
// combination order. No simulation is aborted because another finished
// early; the first failure cancels the rest.
func (e *Engine) runAll(ctx context.Context, combos []Combination, sp simulationPool) ([]SimulationResult, error) {
	results := make([]SimulationResult, len(combos))

	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(e.workers(len(combos))).
		WithCancelOnError().
		WithFirstError()

	for i, c := range combos {
		i, c := i, c

		p.Go(func(ctx context.Context) error {
			r, err := e.simulate(ctx, c, sp)
			if err != nil {
				return fmt.Errorf("simulate %s: %w", c, err)
			}

			results[i] = r

			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// pick returns the fastest simulation.
func (e *Engine) pick(results []SimulationResult, seed int64) SimulationResult {
	if e.picked != nil {
		e.picked(seed)
	}

	best := 0
	for i, r := range results {
		if r.Iterations < results[best].Iterations {
			best = i
		}
	}

	if !e.config.RandomTieBreak {
		return results[best]
	}

	var ties []int

	for i, r := range results {
		if r.Iterations == results[best].Iterations {
			ties = append(ties, i)
		}
	}

	rng := NewPartitionedRNG(seed).ForSubsystem(SubsystemTieBreak)

	return results[ties[rng.Intn(len(ties))]]
}

// simulationPool is the shared, read-only starting state of every
// simulation.
type simulationPool struct {
	seedX     [][]float64
	seedY     []float64
	candX     [][]float64
	candY     []float64
	total     int
	target    float64
	objective ObjectiveFunc
}

// simulate runs one combination's miniature optimisation on private copies
// of the seed and candidate sets.
func (e *Engine) simulate(ctx context.Context, c Combination, sp simulationPool) (SimulationResult, error) {
	trainX := cloneMatrix(sp.seedX)
	trainY := cloneVector(sp.seedY)
	candX := cloneMatrix(sp.candX)
	candY := cloneVector(sp.candY)

	res := SimulationResult{Combination: c, State: SimulationSeeded}
	iterations := 0

	for len(trainX) < sp.total {
		iterations++
		if iterations > e.config.MaxIterations {
			res.State = SimulationCapped

			break
		}

		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.State = SimulationIterating

		x, y, idx, err := e.step.NextPoint(trainX, trainY, candX, candY, c.Kernel, c.Acquisition, sp.objective)
		if err != nil {
			return res, err
		}

		trainX = append(trainX, x)
		trainY = append(trainY, y)
		candX = removeRow(candX, idx)
		candY = removeAt(candY, idx)

		if e.trace != nil {
			e.trace(c, len(trainX), len(candX))
		}

		if minValue(trainY) <= sp.target {
			res.State = SimulationConverged

			break
		}
	}

	if res.State == SimulationSeeded || res.State == SimulationIterating {
		res.State = SimulationExhausted
	}

	res.Iterations = iterations
	res.Best = minValue(trainY)

	e.logger.WithFields(logrus.Fields{
		"kernel":      c.Kernel.String(),
		"acquisition": c.Acquisition.String(),
		"iterations":  res.Iterations,
		"state":       res.State.String(),
		"best":        res.Best,
	}).Debug("simulation finished")

	return res, nil
}

// selectTarget finds the percentile target and the indices of the values
// strictly above it. The rank starts at round(n*percentile), at least 1,
// and moves towards 0 until nInit values lie above the target.
func selectTarget(ys []float64, nInit int, percentile float64) (float64, []int, error) {
	sorted := append([]float64(nil), ys...)
	sort.Float64s(sorted)

	rank := int(math.RoundToEven(float64(len(sorted)) * percentile))
	rank = min(max(rank, 1), len(sorted)-1)

	for ; rank >= 0; rank-- {
		target := sorted[rank]

		var valid []int

		for i, y := range ys {
			if y > target {
				valid = append(valid, i)
			}
		}

		if len(valid) >= nInit {
			return target, valid, nil
		}
	}

	return 0, nil, &InsufficientDataError{Observed: len(ys), Required: nInit}
}
