package boost

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalization(t *testing.T) {
	cfg := DefaultSurrogateConfig()

	t.Run("lower median and sample std", func(t *testing.T) {
		n := newNormalization([][]float64{{0, 5}, {2, 5}, {4, 5}, {10, 5}}, []float64{4, 1, 3, 2}, cfg)

		assert.Equal(t, []float64{0, 5}, n.xMin)
		assert.Equal(t, 10.0, n.xRange[0])
		assert.Equal(t, cfg.XRangeFloor, n.xRange[1], "constant dimension is floored")
		assert.Equal(t, 2.0, n.yMedian)
		assert.InDelta(t, math.Sqrt(5.0/3.0), n.yStd, 1e-12)
		assert.InDelta(t, 0.2, n.x([]float64{2, 5})[0], 1e-12)
	})

	t.Run("single value is floored", func(t *testing.T) {
		n := newNormalization([][]float64{{1}}, []float64{7}, cfg)

		assert.Equal(t, 7.0, n.yMedian)
		assert.Equal(t, cfg.YStdFloor, n.yStd)
	})
}

func TestFitAndPredict(t *testing.T) {
	s := NewSurrogate(DefaultSurrogateConfig(), nil)

	var trainX [][]float64
	var trainY []float64

	for x := 0.0; x <= 10; x++ {
		trainX = append(trainX, []float64{x})
		trainY = append(trainY, x)
	}

	query := [][]float64{{1}, {5}, {9}, {4.5}}

	for _, k := range AllKernels() {
		t.Run(k.String(), func(t *testing.T) {
			mean, stddev, err := s.FitAndPredict(trainX, trainY, query, k)
			require.NoError(t, err)
			require.Len(t, mean, len(query))
			require.Len(t, stddev, len(query))

			for i := range query {
				assert.False(t, math.IsNaN(mean[i]))
				assert.Greater(t, stddev[i], 0.0)
			}

			assert.InDelta(t, 1, mean[0], 1)
			assert.InDelta(t, 5, mean[1], 1)
			assert.InDelta(t, 9, mean[2], 1)
			assert.Less(t, mean[0], mean[2])
		})
	}
}

func TestFitAndPredictStopsOnNaN(t *testing.T) {
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()

	s := NewSurrogate(DefaultSurrogateConfig(), logger)
	s.metrics = metrics

	mean, stddev, err := s.FitAndPredict([][]float64{{0}, {1}, {2}}, []float64{1, math.NaN(), 2}, [][]float64{{0.5}}, RBF)
	require.NoError(t, err, "instability is reported, not returned")
	assert.Len(t, mean, 1)
	assert.Len(t, stddev, 1)

	var warnings []*logrus.Entry

	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings = append(warnings, e)
		}
	}

	require.Len(t, warnings, 1)
	assert.Equal(t, "RBF", warnings[0].Data["kernel"])
	assert.Equal(t, 1, warnings[0].Data["iteration"])
	assert.Equal(t, initialRaw(RBF), warnings[0].Data["kept"], "the last finite parameters are kept")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.nanStops.WithLabelValues("RBF")))
}

func TestFitAndPredictErrors(t *testing.T) {
	s := NewSurrogate(DefaultSurrogateConfig(), nil)

	_, _, err := s.FitAndPredict([][]float64{{1}}, []float64{1}, [][]float64{{2}}, KernelType(0))
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)

	_, _, err = s.FitAndPredict(nil, nil, [][]float64{{2}}, RBF)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, _, err = s.FitAndPredict([][]float64{{1}, {2}}, []float64{1}, [][]float64{{2}}, RBF)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, _, err = s.FitAndPredict([][]float64{{1}, {2}}, []float64{1, 2}, [][]float64{{2, 3}}, RBF)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestKernelCovariance(t *testing.T) {
	hp := hyperparameters{lengthscale: 1, outputscale: 2, alpha: softplus(initialRQAlpha)}

	for _, k := range AllKernels() {
		corr, err := correlationFor(k)
		require.NoError(t, err)

		kf := kernelFunc{corr: corr, hp: hp}

		assert.InDelta(t, 2.0, kf.cov([]float64{1, 1}, []float64{1, 1}), 1e-12, k.String())
		assert.Greater(t, kf.cov([]float64{0}, []float64{0.5}), kf.cov([]float64{0}, []float64{2}), k.String())
	}
}
