package boost

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Step performs single Bayesian-optimisation iterations: fit the surrogate,
// score the candidates, pick one and resolve its value.
type Step struct {
	surrogate *Surrogate
	kappa     float64
	logger    logrus.FieldLogger
}

// NewStep creates a step around surrogate. kappa <= 0 selects DefaultKappa.
func NewStep(surrogate *Surrogate, kappa float64, logger logrus.FieldLogger) *Step {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if kappa <= 0 {
		kappa = DefaultKappa
	}

	return &Step{
		surrogate: surrogate,
		kappa:     kappa,
		logger:    logger.WithField("component", "step"),
	}
}

// NextPoint chooses the next point to evaluate from candidateX.
//
// Parameters:
// - trainX, trainY: evaluated points and their values
// - candidateX: not-yet-evaluated points
// - candidateY: values of candidateX in fixed-table mode, nil otherwise
// - kernel, acquisition: surrogate and scoring rule for this iteration
// - objective: used to evaluate the chosen point when candidateY is nil
//
// Returns the chosen point, its value and its index in candidateX. Neither
// input is modified; removing the point from the pool is the caller's job.
//
// Errors:
// - ErrMissingObjective when both candidateY and objective are nil
// - ErrEmptyCandidatePool when candidateX is empty
// - any surrogate failure, returned as is
func (s *Step) NextPoint(
	trainX [][]float64,
	trainY []float64,
	candidateX [][]float64,
	candidateY []float64,
	kernel KernelType,
	acquisition AcquisitionType,
	objective ObjectiveFunc,
) (nextX []float64, nextY float64, nextIdx int, err error) {
	if candidateY == nil && objective == nil {
		return nil, 0, 0, ErrMissingObjective
	}

	if len(candidateX) == 0 {
		return nil, 0, 0, ErrEmptyCandidatePool
	}

	if candidateY != nil && len(candidateY) != len(candidateX) {
		return nil, 0, 0, fmt.Errorf("%w: %d candidates but %d candidate values", ErrDimensionMismatch, len(candidateX), len(candidateY))
	}

	if !acquisition.Valid() {
		return nil, 0, 0, unsupportedAcquisition(acquisition)
	}

	mean, stddev, err := s.surrogate.FitAndPredict(trainX, trainY, candidateX, kernel)
	if err != nil {
		return nil, 0, 0, err
	}

	bestF := minValue(trainY)

	nextIdx, err = selectNextIndex(acquisition, mean, stddev, bestF, s.kappa)
	if err != nil {
		return nil, 0, 0, err
	}

	nextX = append([]float64(nil), candidateX[nextIdx]...)

	if candidateY != nil {
		nextY = candidateY[nextIdx]
	} else {
		ys, err := objective([][]float64{nextX})
		if err != nil {
			return nil, 0, 0, fmt.Errorf("evaluate objective: %w", err)
		}

		if len(ys) != 1 {
			return nil, 0, 0, fmt.Errorf("%w: objective returned %d values for 1 point", ErrDimensionMismatch, len(ys))
		}

		nextY = ys[0]
	}

	s.logger.WithFields(logrus.Fields{
		"kernel":      kernel.String(),
		"acquisition": acquisition.String(),
		"train":       len(trainX),
		"candidates":  len(candidateX),
		"index":       nextIdx,
		"value":       nextY,
	}).Debug("selected next point")

	return nextX, nextY, nextIdx, nil
}
