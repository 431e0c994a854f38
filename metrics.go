package boost

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "boost"

// Metrics holds the Prometheus collectors of a recommendation engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	recommendDuration    prometheus.Histogram
	recommendations      *prometheus.CounterVec
	simulationIterations *prometheus.HistogramVec
	nanStops             *prometheus.CounterVec
	failures             prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		recommendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "recommend_duration_seconds",
			Help:      "Wall time of one recommendation, including all simulations.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recommendations_total",
			Help:      "Recommendations returned, by winning kernel and acquisition.",
		}, []string{"kernel", "acquisition"}),
		simulationIterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "simulation_iterations",
			Help:      "Iterations scored by internal simulations, by terminal state.",
			Buckets:   prometheus.LinearBuckets(1, 1, 21),
		}, []string{"state"}),
		nanStops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "surrogate_nan_stops_total",
			Help:      "Surrogate fits stopped early on a NaN marginal log-likelihood.",
		}, []string{"kernel"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recommend_failures_total",
			Help:      "Recommendations that returned an error.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.recommendDuration,
		m.recommendations,
		m.simulationIterations,
		m.nanStops,
		m.failures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observeRecommendation(rec Recommendation, started time.Time) {
	if m == nil {
		return
	}

	m.recommendDuration.Observe(time.Since(started).Seconds())
	m.recommendations.WithLabelValues(rec.Kernel.String(), rec.Acquisition.String()).Inc()

	for _, r := range rec.Simulations {
		m.simulationIterations.WithLabelValues(r.State.String()).Observe(float64(r.Iterations))
	}
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}

	m.failures.Inc()
}

func (m *Metrics) observeNaNStop(k KernelType) {
	if m == nil {
		return
	}

	m.nanStops.WithLabelValues(k.String()).Inc()
}
