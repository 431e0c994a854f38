// Package boost recommends, at every step of a Bayesian optimisation, which
// Gaussian Process kernel and which acquisition function to use next. It does
// so by replaying a miniature optimisation for every combination on the data
// observed so far and picking the one that reaches a good value fastest.
//
// # Features
//
// The package includes the following key features:
//
//   - Recommendation Engine: Simulates every (acquisition, kernel) pair on
//     the observed data and returns the fastest, with a per-combination trace
//   - Gaussian Process Surrogate: Exact GP with RBF, Matérn 3/2, Matérn 5/2
//     and Rational-Quadratic kernels, trained on the marginal log-likelihood
//   - Four Acquisition Functions: Expected Improvement (EI), Probability of
//     Improvement (PI), confidence bound (UCB) and Posterior Mean (PM)
//   - Representative Seeding: k-means picks geometrically diverse seed points
//   - Deterministic: Same data and seed give the same recommendation, no
//     matter how many workers run the simulations
//   - Driver Loop: Optimize runs a full optimisation over a grid or a fixed
//     table, optionally asking for a recommendation before every step
//   - Progress Monitoring: Real-time updates on optimisation progress via
//     channels
//   - Observability: logrus logging, Prometheus metrics and recommendation
//     sinks
//
// # Installation
//
// To install the package, use:
//
//	go get github.com/thalesfsp/boost
//
// # Recommendation
//
// Given evaluated points, the engine returns the combination to use next:
//
//	engine := NewEngine(DefaultEngineConfig())
//
//	rec, err := engine.Recommend(ctx, RecommendInput{
//	    Observations: Observations{X: xs, Y: ys},
//	})
//	// rec.Kernel, rec.Acquisition, rec.Simulations
//
// How a recommendation is made:
//  1. Seed size n_init = clamp(round(n/3), 3, 20)
//  2. The target is the value at the 5th percentile of the observations,
//     relaxed until n_init observations lie strictly above it
//  3. n_init representative seeds are taken among those observations
//  4. Every combination replays an optimisation from the seeds over the
//     remaining observations, for at most 20 iterations
//  5. The fewest iterations to reach the target wins, earlier combinations
//     first on ties
//
// When Y is nil, an Objective must be provided and is used to evaluate the
// observations and every point a simulation draws.
//
// # Acquisition Functions
//
// All acquisition functions assume minimisation:
//
//   - EI: expected amount of improvement over the best value, maximised
//   - PI: probability of improving on the best value, maximised
//   - UCB: mean - kappa·sigma with kappa = 0.1, minimised
//   - PM: posterior mean, minimised
//
// # Configuration
//
// Every component takes a plain configuration struct with a Default...
// constructor:
//
//	config := DefaultEngineConfig()
//	config.Workers = 1             // sequential simulations
//	config.RandomTieBreak = true   // seeded choice among equally fast pairs
//
//	engine := NewEngine(config,
//	    WithLogger(logger),
//	    WithMetrics(metrics),
//	    WithSink(NewMemorySink()),
//	)
//
// # Thread Safety
//
//   - Engine, Surrogate and Step are safe for concurrent use
//   - Every simulation works on private copies of the train and candidate
//     sets
//   - Progress channel updates never block
package boost
