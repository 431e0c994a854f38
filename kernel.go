package boost

import "math"

// constraint is a box constraint on a hyperparameter. The optimiser works on
// an unconstrained raw value which is squashed into [lower, upper].
type constraint struct {
	lower float64
	upper float64
}

func (c constraint) transform(raw float64) float64 {
	return c.lower + (c.upper-c.lower)*sigmoid(raw)
}

// Raw hyperparameter layout. rawAlpha only exists for the RQ kernel.
const (
	rawMean = iota
	rawNoise
	rawLengthscale
	rawOutputscale
	rawAlpha
)

// initialRQAlpha is the starting raw value of the RQ shape parameter.
const initialRQAlpha = 2.0

// hyperparameters are the constrained values of one GP fit.
type hyperparameters struct {
	mean        float64
	noise       float64
	lengthscale float64
	outputscale float64
	alpha       float64
}

// correlationFunc maps a squared, lengthscale-scaled distance to a
// correlation in [0, 1].
type correlationFunc func(r2, alpha float64) float64

func rbfCorrelation(r2, _ float64) float64 {
	return math.Exp(-0.5 * r2)
}

func matern32Correlation(r2, _ float64) float64 {
	r := math.Sqrt(3 * r2)

	return (1 + r) * math.Exp(-r)
}

func matern52Correlation(r2, _ float64) float64 {
	r := math.Sqrt(5 * r2)

	return (1 + r + r*r/3) * math.Exp(-r)
}

func rqCorrelation(r2, alpha float64) float64 {
	return math.Pow(1+r2/(2*alpha), -alpha)
}

// correlationFor resolves the covariance shape of a kernel.
func correlationFor(k KernelType) (correlationFunc, error) {
	switch k {
	case RBF:
		return rbfCorrelation, nil
	case Matern32:
		return matern32Correlation, nil
	case Matern52:
		return matern52Correlation, nil
	case RQ:
		return rqCorrelation, nil
	default:
		return nil, unsupportedKernel(k)
	}
}

// numRaw returns the length of the raw hyperparameter vector for k.
func numRaw(k KernelType) int {
	if k == RQ {
		return rawAlpha + 1
	}

	return rawOutputscale + 1
}

// initialRaw returns the starting point of the marginal-likelihood fit.
func initialRaw(k KernelType) []float64 {
	raw := make([]float64, numRaw(k))
	if k == RQ {
		raw[rawAlpha] = initialRQAlpha
	}

	return raw
}

// kernelFunc is a fully parameterised covariance function.
type kernelFunc struct {
	corr correlationFunc
	hp   hyperparameters
}

// cov returns the prior covariance between a and b, without noise.
func (k kernelFunc) cov(a, b []float64) float64 {
	var sum float64

	for i := range a {
		d := (a[i] - b[i]) / k.hp.lengthscale
		sum += d * d
	}

	return k.hp.outputscale * k.corr(sum, k.hp.alpha)
}
