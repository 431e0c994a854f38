package boost

import (
	"errors"
	"fmt"
)

//////
// Error taxonomy.
//////

var (
	// ErrInsufficientData is returned by Recommend when target selection
	// cannot leave enough points above the target to seed the internal
	// simulations, even after relaxing the percentile down to index 0.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnsupportedConfiguration signals an unknown kernel or acquisition
	// value. It is a caller bug and is never retried.
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")

	// ErrMissingObjective is returned when a step has neither a value table
	// nor an objective function to resolve the value of the next point.
	ErrMissingObjective = errors.New("missing objective: neither candidate values nor an objective function were provided")

	// ErrEmptyCandidatePool is returned when a step is asked to choose from
	// an empty candidate pool.
	ErrEmptyCandidatePool = errors.New("empty candidate pool")

	// ErrDimensionMismatch is returned when x vectors, y vectors or
	// candidate tables disagree in length or dimensionality.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrUnknownPoint is returned by a Table objective for a point that is
	// not within DuplicateTolerance of any table row.
	ErrUnknownPoint = errors.New("point not in table")
)

// InsufficientDataError carries the sizes that made target selection fail.
type InsufficientDataError struct {
	// Observed is the number of observations handed to Recommend.
	Observed int

	// Required is the number of seed points each simulation needs.
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %d observations cannot provide %d seed points above the target",
		ErrInsufficientData, e.Observed, e.Required)
}

// Is makes errors.Is(err, ErrInsufficientData) hold.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

func unsupportedKernel(k KernelType) error {
	return fmt.Errorf("%w: kernel %d", ErrUnsupportedConfiguration, int(k))
}

func unsupportedAcquisition(a AcquisitionType) error {
	return fmt.Errorf("%w: acquisition %d", ErrUnsupportedConfiguration, int(a))
}
