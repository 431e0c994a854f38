package boost

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
	"gopkg.in/yaml.v3"
)

// KernelType selects the covariance function of the Gaussian Process
// surrogate. The zero value is not a valid kernel.
type KernelType int

const (
	// RBF is the squared exponential kernel.
	RBF KernelType = iota + 1

	// Matern32 is the Matérn kernel with ν=1.5.
	Matern32

	// Matern52 is the Matérn kernel with ν=2.5.
	Matern52

	// RQ is the Rational-Quadratic kernel.
	RQ
)

// String returns the canonical name of the kernel.
func (k KernelType) String() string {
	switch k {
	case RBF:
		return "RBF"
	case Matern32:
		return "Matern32"
	case Matern52:
		return "Matern52"
	case RQ:
		return "RQ"
	default:
		return fmt.Sprintf("KernelType(%d)", int(k))
	}
}

// Valid reports whether k is one of the known kernels.
func (k KernelType) Valid() bool {
	return k >= RBF && k <= RQ
}

// AllKernels returns every kernel in the order the recommendation engine
// tries them by default.
func AllKernels() []KernelType {
	return []KernelType{Matern32, Matern52, RBF, RQ}
}

// ParseKernelType parses a kernel name, case-insensitively.
func ParseKernelType(s string) (KernelType, error) {
	for _, k := range AllKernels() {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}

	return 0, fmt.Errorf("%w: kernel %q", ErrUnsupportedConfiguration, s)
}

// MarshalYAML encodes the kernel by name.
func (k KernelType) MarshalYAML() (interface{}, error) {
	if !k.Valid() {
		return nil, unsupportedKernel(k)
	}

	return k.String(), nil
}

// UnmarshalYAML decodes a kernel name.
func (k *KernelType) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseKernelType(value.Value)
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}

// AcquisitionType selects the scoring rule used to pick the next candidate.
// All rules assume minimisation.
type AcquisitionType int

const (
	// EI is Expected Improvement.
	EI AcquisitionType = iota + 1

	// PI is Probability of Improvement.
	PI

	// UCB is the confidence-bound rule. Under minimisation it scores
	// mean - kappa*sigma and the lowest score wins.
	UCB

	// PM is greedy exploitation of the posterior mean.
	PM
)

// String returns the canonical name of the acquisition function.
func (a AcquisitionType) String() string {
	switch a {
	case EI:
		return "EI"
	case PI:
		return "PI"
	case UCB:
		return "UCB"
	case PM:
		return "PM"
	default:
		return fmt.Sprintf("AcquisitionType(%d)", int(a))
	}
}

// Valid reports whether a is one of the known acquisition functions.
func (a AcquisitionType) Valid() bool {
	return a >= EI && a <= PM
}

// AllAcquisitions returns every acquisition function in default order.
func AllAcquisitions() []AcquisitionType {
	return []AcquisitionType{EI, PI, UCB, PM}
}

// ParseAcquisitionType parses an acquisition name, case-insensitively.
func ParseAcquisitionType(s string) (AcquisitionType, error) {
	for _, a := range AllAcquisitions() {
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}

	return 0, fmt.Errorf("%w: acquisition %q", ErrUnsupportedConfiguration, s)
}

// MarshalYAML encodes the acquisition function by name.
func (a AcquisitionType) MarshalYAML() (interface{}, error) {
	if !a.Valid() {
		return nil, unsupportedAcquisition(a)
	}

	return a.String(), nil
}

// UnmarshalYAML decodes an acquisition name.
func (a *AcquisitionType) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseAcquisitionType(value.Value)
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

// Combination is one (acquisition, kernel) pair evaluated by the engine.
type Combination struct {
	Acquisition AcquisitionType
	Kernel      KernelType
}

func (c Combination) String() string {
	return c.Kernel.String() + "/" + c.Acquisition.String()
}

// ParameterRange defines the grid for one dimension of the search space.
//
// Type Parameter:
//   - T: The numeric type for this dimension (integer or float)
//
// Fields:
// - Min: The minimum (inclusive) value
// - Max: The maximum (inclusive) value
// - Step: The grid resolution. Grid points are Min, Min+Step, ... <= Max.
//
// Usage:
//
//	// Example: x in [0, 10] with unit resolution
//	r := ParameterRange[float64]{Min: 0, Max: 10, Step: 1}
//
// Validation:
// - Min must be less than or equal to Max
// - Step must be positive
type ParameterRange[T constraints.Integer | constraints.Float] struct {
	// Min defines the minimum allowed value (inclusive).
	Min T

	// Max defines the maximum allowed value (inclusive).
	Max T

	// Step is the distance between neighbouring grid points.
	Step T
}

// ObjectiveFunc evaluates a batch of points. It must be free of side effects
// and deterministic for a fixed input: Recommend relies on re-evaluation
// yielding the values it already saw.
//
// Usage example:
//
//	f := ObjectiveFunc(func(xs [][]float64) ([]float64, error) {
//	    ys := make([]float64, len(xs))
//	    for i, x := range xs {
//	        ys[i] = math.Abs(x[0] - 5)
//	    }
//	    return ys, nil
//	})
type ObjectiveFunc func(xs [][]float64) ([]float64, error)

// Observations is an ordered set of evaluated points.
type Observations struct {
	// X holds one vector per observation, all of the same dimension.
	X [][]float64 `yaml:"x"`

	// Y holds the observed value of each X. May be nil when the values are
	// to be produced by an objective.
	Y []float64 `yaml:"y,omitempty"`
}

// Len returns the number of observations.
func (o Observations) Len() int {
	return len(o.X)
}

// Dim returns the search-space dimensionality, 0 when empty.
func (o Observations) Dim() int {
	if len(o.X) == 0 {
		return 0
	}

	return len(o.X[0])
}

// Validate checks that all vectors share one dimension and, when Y is set,
// that it has one value per vector.
func (o Observations) Validate() error {
	if err := checkDims(o.X); err != nil {
		return err
	}

	if o.Y != nil && len(o.Y) != len(o.X) {
		return fmt.Errorf("%w: %d points but %d values", ErrDimensionMismatch, len(o.X), len(o.Y))
	}

	return nil
}

// ProgressUpdate represents the current state of a driver run.
type ProgressUpdate struct {
	// Phase is "InitialSampling" or "Optimization".
	Phase string

	// CurrentIteration is the outer iteration number.
	CurrentIteration int

	// TotalIterations is the iteration budget of the run.
	TotalIterations int

	// Kernel and Acquisition used for this iteration.
	Kernel      KernelType
	Acquisition AcquisitionType

	// CurrentParams holds the point evaluated in this iteration.
	CurrentParams []float64

	// CurrentBestParams holds the best point found so far.
	CurrentBestParams []float64

	// CurrentBestValue holds the best value found so far.
	CurrentBestValue float64

	// LastValue holds the value of CurrentParams.
	LastValue float64
}
