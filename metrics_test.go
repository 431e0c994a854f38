package boost

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.observeRecommendation(Recommendation{Kernel: RBF, Acquisition: EI}, time.Now())
		m.observeFailure()
		m.observeNaNStop(RBF)
	})
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err, "collectors cannot be registered twice")

	m.observeNaNStop(RQ)
	m.observeNaNStop(RQ)
	m.observeRecommendation(Recommendation{
		Kernel:      RBF,
		Acquisition: PM,
		Simulations: []SimulationResult{
			{State: SimulationConverged, Iterations: 2},
			{State: SimulationCapped, Iterations: 21},
		},
	}, time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.nanStops.WithLabelValues("RQ")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recommendations.WithLabelValues("RBF", "PM")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.simulationIterations))
	assert.Equal(t, 1, testutil.CollectAndCount(m.recommendDuration))
}
