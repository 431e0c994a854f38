package boost

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

//////
// Acquisition functions for Bayesian optimisation under minimisation.
// Each scores one candidate from its posterior mean and standard deviation.
//////

const (
	// DefaultKappa is the exploration weight of the UCB rule.
	DefaultKappa = 0.1

	// sigmaFloor keeps EI and PI finite when the posterior is certain.
	sigmaFloor = 1e-6
)

// ExpectedImprovement returns the expected amount by which a point with
// posterior N(mean, sigma²) improves on bestF.
//
//	z  = (bestF - mean) / sigma
//	EI = (bestF - mean)·Φ(z) + sigma·φ(z)
//
// Higher is better.
func ExpectedImprovement(bestF, mean, sigma float64) float64 {
	sigma = math.Max(sigma, sigmaFloor)
	improvement := bestF - mean
	z := improvement / sigma

	return improvement*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z)
}

// ProbabilityOfImprovement returns Φ((bestF - mean) / sigma). Higher is
// better.
func ProbabilityOfImprovement(bestF, mean, sigma float64) float64 {
	sigma = math.Max(sigma, sigmaFloor)

	return distuv.UnitNormal.CDF((bestF - mean) / sigma)
}

// LowerConfidenceBound returns mean - kappa·sigma. Lower is better.
func LowerConfidenceBound(mean, sigma, kappa float64) float64 {
	return mean - kappa*sigma
}

// PosteriorMean returns the mean itself. Lower is better.
func PosteriorMean(mean float64) float64 {
	return mean
}

// SelectNextIndex scores every candidate with acquisition and returns the
// index of the best one. Ties go to the lowest index.
//
// Parameters:
// - acquisition: scoring rule
// - mean, stddev: posterior at each candidate, same length
// - bestF: best (lowest) value observed so far
//
// Usage example:
//
//	idx, err := SelectNextIndex(EI, []float64{5, 1, 3}, []float64{1, 1, 1}, 2)
//	// idx == 1
func SelectNextIndex(acquisition AcquisitionType, mean, stddev []float64, bestF float64) (int, error) {
	return selectNextIndex(acquisition, mean, stddev, bestF, DefaultKappa)
}

func selectNextIndex(acquisition AcquisitionType, mean, stddev []float64, bestF, kappa float64) (int, error) {
	if len(mean) == 0 {
		return 0, ErrEmptyCandidatePool
	}

	if len(stddev) != len(mean) {
		return 0, fmt.Errorf("%w: %d means but %d standard deviations", ErrDimensionMismatch, len(mean), len(stddev))
	}

	values := make([]float64, len(mean))

	switch acquisition {
	case EI:
		for i := range mean {
			values[i] = ExpectedImprovement(bestF, mean[i], stddev[i])
		}

		return floats.MaxIdx(values), nil
	case PI:
		for i := range mean {
			values[i] = ProbabilityOfImprovement(bestF, mean[i], stddev[i])
		}

		return floats.MaxIdx(values), nil
	case UCB:
		for i := range mean {
			values[i] = LowerConfidenceBound(mean[i], stddev[i], kappa)
		}

		return floats.MinIdx(values), nil
	case PM:
		for i := range mean {
			values[i] = PosteriorMean(mean[i])
		}

		return floats.MinIdx(values), nil
	default:
		return 0, unsupportedAcquisition(acquisition)
	}
}
