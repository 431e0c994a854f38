package boost

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//////
// Const, vars, types.
//////

// choleskyJitter is added to the covariance diagonal, in increasing order,
// when the plain factorisation fails.
var choleskyJitter = []float64{1e-8, 1e-7, 1e-6}

// Adam moment decay rates and denominator offset.
const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
)

// SurrogateConfig holds the box constraints and training schedule of the
// Gaussian Process surrogate.
//
// Fields explanation:
// - NoiseLower/NoiseUpper: bounds of the observation-noise variance
// - LengthscaleLower: lower bound of the lengthscale; the upper bound is
// sqrt(D) where D is the search-space dimension
// - OutputscaleLower/OutputscaleUpper: bounds of the signal variance
// - TrainingIterations: Adam steps on the marginal log-likelihood
// - LearningRate: Adam step size
// - XRangeFloor: floor of the per-dimension training range in min-max scaling
// - YStdFloor: floor of the standard deviation used to standardise y
type SurrogateConfig struct {
	NoiseLower       float64
	NoiseUpper       float64
	LengthscaleLower float64
	OutputscaleLower float64
	OutputscaleUpper float64

	TrainingIterations int
	LearningRate       float64

	XRangeFloor float64
	YStdFloor   float64
}

// DefaultSurrogateConfig returns the configuration used by every
// recommendation and driver step unless overridden.
func DefaultSurrogateConfig() SurrogateConfig {
	return SurrogateConfig{
		NoiseLower:         5e-4,
		NoiseUpper:         0.2,
		LengthscaleLower:   5e-6,
		OutputscaleLower:   0.05,
		OutputscaleUpper:   20.0,
		TrainingIterations: 50,
		LearningRate:       0.05,
		XRangeFloor:        1e-8,
		YStdFloor:          1e-6,
	}
}

// Surrogate fits a fresh Gaussian Process on every call and returns the
// posterior at the query points. It keeps no state between calls and is
// safe for concurrent use.
type Surrogate struct {
	config  SurrogateConfig
	logger  logrus.FieldLogger
	metrics *Metrics
}

// NewSurrogate creates a surrogate. A nil logger falls back to the logrus
// standard logger.
func NewSurrogate(config SurrogateConfig, logger logrus.FieldLogger) *Surrogate {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Surrogate{
		config: config,
		logger: logger.WithField("component", "surrogate"),
	}
}

// normalization maps raw data into the space the GP is trained in. All
// statistics come from the training set only.
type normalization struct {
	xMin    []float64
	xRange  []float64
	yMedian float64
	yStd    float64
}

func newNormalization(trainX [][]float64, trainY []float64, cfg SurrogateConfig) normalization {
	d := len(trainX[0])
	n := normalization{
		xMin:   make([]float64, d),
		xRange: make([]float64, d),
	}

	for j := 0; j < d; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, x := range trainX {
			lo = math.Min(lo, x[j])
			hi = math.Max(hi, x[j])
		}

		n.xMin[j] = lo
		n.xRange[j] = math.Max(hi-lo, cfg.XRangeFloor)
	}

	sorted := append([]float64(nil), trainY...)
	sort.Float64s(sorted)

	// The empirical quantile at 0.5 is the lower median for even counts.
	n.yMedian = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	n.yStd = math.NaN()
	if len(trainY) > 1 {
		n.yStd = stat.StdDev(trainY, nil)
	}

	if !(n.yStd >= cfg.YStdFloor) {
		n.yStd = cfg.YStdFloor
	}

	return n
}

func (n normalization) x(v []float64) []float64 {
	out := make([]float64, len(v))
	for j := range v {
		out[j] = (v[j] - n.xMin[j]) / n.xRange[j]
	}

	return out
}

func (n normalization) y(v float64) float64 {
	return (v - n.yMedian) / n.yStd
}

// gpModel is one exact GP on normalised data.
type gpModel struct {
	x    [][]float64
	y    []float64
	corr correlationFunc

	noise       constraint
	lengthscale constraint
	outputscale constraint
	kernel      KernelType
}

func (m *gpModel) decode(raw []float64) hyperparameters {
	hp := hyperparameters{
		mean:        raw[rawMean],
		noise:       m.noise.transform(raw[rawNoise]),
		lengthscale: m.lengthscale.transform(raw[rawLengthscale]),
		outputscale: m.outputscale.transform(raw[rawOutputscale]),
	}

	if m.kernel == RQ {
		hp.alpha = softplus(raw[rawAlpha])
	}

	return hp
}

// factorize builds K + noise*I and returns its Cholesky factor, retrying
// with diagonal jitter when it is not numerically positive definite.
func (m *gpModel) factorize(hp hyperparameters) (*mat.Cholesky, error) {
	k := kernelFunc{corr: m.corr, hp: hp}
	n := len(m.x)
	cov := mat.NewSymDense(n, nil)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, k.cov(m.x[i], m.x[j]))
		}
	}

	for i := 0; i < n; i++ {
		cov.SetSym(i, i, cov.At(i, i)+hp.noise)
	}

	var chol mat.Cholesky
	if chol.Factorize(cov) {
		return &chol, nil
	}

	for _, jitter := range choleskyJitter {
		shifted := mat.NewSymDense(n, nil)
		shifted.CopySym(cov)

		for i := 0; i < n; i++ {
			shifted.SetSym(i, i, shifted.At(i, i)+jitter)
		}

		if chol.Factorize(shifted) {
			return &chol, nil
		}
	}

	return nil, fmt.Errorf("covariance matrix is not positive definite (n=%d)", n)
}

// loss is the negative exact marginal log-likelihood divided by N. It
// returns NaN when the covariance cannot be factorised.
func (m *gpModel) loss(raw []float64) float64 {
	hp := m.decode(raw)

	chol, err := m.factorize(hp)
	if err != nil {
		return math.NaN()
	}

	n := len(m.y)
	resid := mat.NewVecDense(n, nil)

	for i, v := range m.y {
		resid.SetVec(i, v-hp.mean)
	}

	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, resid); err != nil {
		return math.NaN()
	}

	quad := mat.Dot(resid, &alpha)
	nll := 0.5*quad + 0.5*chol.LogDet() + 0.5*float64(n)*math.Log(2*math.Pi)

	return nll / float64(n)
}

//////
// Methods.
//////

// FitAndPredict trains a GP with the given kernel on (trainX, trainY) and
// returns the posterior mean and standard deviation at every query point,
// in the units of trainY.
//
// Preprocessing:
// - x is min-max scaled per dimension with the training min/max
// - y is centred on its median and divided by its standard deviation
//
// Training runs TrainingIterations Adam steps on the exact marginal
// log-likelihood. A NaN loss stops training early and keeps the last
// parameters with a finite loss; this is logged, not returned.
//
// Any failure to factorise the final covariance is returned to the caller.
func (s *Surrogate) FitAndPredict(trainX [][]float64, trainY []float64, queryX [][]float64, kernel KernelType) (mean, stddev []float64, err error) {
	corr, err := correlationFor(kernel)
	if err != nil {
		return nil, nil, err
	}

	if len(trainX) == 0 {
		return nil, nil, fmt.Errorf("%w: empty training set", ErrInsufficientData)
	}

	if len(trainY) != len(trainX) {
		return nil, nil, fmt.Errorf("%w: %d training points but %d values", ErrDimensionMismatch, len(trainX), len(trainY))
	}

	if err := checkDims(trainX); err != nil {
		return nil, nil, err
	}

	d := len(trainX[0])
	for i, q := range queryX {
		if len(q) != d {
			return nil, nil, fmt.Errorf("%w: query %d has dimension %d, want %d", ErrDimensionMismatch, i, len(q), d)
		}
	}

	norm := newNormalization(trainX, trainY, s.config)

	model := &gpModel{
		x:           make([][]float64, len(trainX)),
		y:           make([]float64, len(trainY)),
		corr:        corr,
		kernel:      kernel,
		noise:       constraint{lower: s.config.NoiseLower, upper: s.config.NoiseUpper},
		lengthscale: constraint{lower: s.config.LengthscaleLower, upper: math.Sqrt(float64(d))},
		outputscale: constraint{lower: s.config.OutputscaleLower, upper: s.config.OutputscaleUpper},
	}

	for i := range trainX {
		model.x[i] = norm.x(trainX[i])
		model.y[i] = norm.y(trainY[i])
	}

	raw := s.train(model)
	hp := model.decode(raw)

	chol, err := model.factorize(hp)
	if err != nil {
		return nil, nil, fmt.Errorf("fit %s surrogate: %w", kernel, err)
	}

	resid := mat.NewVecDense(len(model.y), nil)
	for i, v := range model.y {
		resid.SetVec(i, v-hp.mean)
	}

	var weights mat.VecDense
	if err := chol.SolveVecTo(&weights, resid); err != nil {
		return nil, nil, fmt.Errorf("fit %s surrogate: %w", kernel, err)
	}

	kf := kernelFunc{corr: corr, hp: hp}
	mean = make([]float64, len(queryX))
	stddev = make([]float64, len(queryX))

	// One query row at a time keeps memory at O(N) per candidate.
	kstar := mat.NewVecDense(len(model.x), nil)

	var v mat.VecDense

	for q, point := range queryX {
		xq := norm.x(point)
		for i, xi := range model.x {
			kstar.SetVec(i, kf.cov(xq, xi))
		}

		mu := hp.mean + mat.Dot(kstar, &weights)

		if err := chol.SolveVecTo(&v, kstar); err != nil {
			return nil, nil, fmt.Errorf("predict %s surrogate: %w", kernel, err)
		}

		variance := math.Max(hp.outputscale-mat.Dot(kstar, &v), 0) + hp.noise

		mean[q] = mu*norm.yStd + norm.yMedian
		stddev[q] = math.Sqrt(variance) * norm.yStd
	}

	return mean, stddev, nil
}

// train runs Adam on the raw hyperparameters and returns the final point.
func (s *Surrogate) train(model *gpModel) []float64 {
	raw := initialRaw(model.kernel)
	last := append([]float64(nil), raw...)
	m1 := make([]float64, len(raw))
	m2 := make([]float64, len(raw))
	grad := make([]float64, len(raw))
	settings := &fd.Settings{Formula: fd.Central}

	var loss float64

	for t := 1; t <= s.config.TrainingIterations; t++ {
		loss = model.loss(raw)
		if math.IsNaN(loss) {
			s.nanStop(model, t, last)

			return last
		}

		copy(last, raw)

		fd.Gradient(grad, model.loss, raw, settings)

		for _, g := range grad {
			if math.IsNaN(g) || math.IsInf(g, 0) {
				s.nanStop(model, t, last)

				return last
			}
		}

		c1 := 1 - math.Pow(adamBeta1, float64(t))
		c2 := 1 - math.Pow(adamBeta2, float64(t))

		for i, g := range grad {
			m1[i] = adamBeta1*m1[i] + (1-adamBeta1)*g
			m2[i] = adamBeta2*m2[i] + (1-adamBeta2)*g*g
			raw[i] -= s.config.LearningRate * (m1[i] / c1) / (math.Sqrt(m2[i]/c2) + adamEpsilon)
		}
	}

	hp := model.decode(raw)
	s.logger.WithFields(logrus.Fields{
		"kernel":      model.kernel.String(),
		"n":           len(model.x),
		"loss":        loss,
		"noise":       hp.noise,
		"lengthscale": hp.lengthscale,
		"outputscale": hp.outputscale,
	}).Debug("fitted surrogate")

	return raw
}

func (s *Surrogate) nanStop(model *gpModel, iteration int, kept []float64) {
	s.metrics.observeNaNStop(model.kernel)

	s.logger.WithFields(logrus.Fields{
		"kernel":    model.kernel.String(),
		"iteration": iteration,
		"n":         len(model.x),
		"kept":      kept,
	}).Warn("numerical instability: marginal log-likelihood is NaN, stopping training early")
}
