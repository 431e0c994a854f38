package boost

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// RecommendationRecord is what the engine emits after every successful
// recommendation. The driver also keeps Skipped records for steps where
// there was too little data to recommend; those are never sent to a sink.
type RecommendationRecord struct {
	RunID       string          `yaml:"run_id"`
	Iteration   int             `yaml:"iteration"`
	Seed        int64           `yaml:"seed"`
	Kernel      KernelType      `yaml:"kernel"`
	Acquisition AcquisitionType `yaml:"acquisition"`
	Iterations  int             `yaml:"iterations"`
	Skipped     bool            `yaml:"skipped,omitempty"`
}

// RecommendationSink persists recommendation records. Implementations must
// be safe for concurrent use.
type RecommendationSink interface {
	Record(ctx context.Context, rec RecommendationRecord) error
}

// MemorySink keeps records in memory.
type MemorySink struct {
	mu      sync.Mutex
	records []RecommendationRecord
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends rec.
func (s *MemorySink) Record(_ context.Context, rec RecommendationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)

	return nil
}

// Records returns a copy of everything recorded so far, in order.
func (s *MemorySink) Records() []RecommendationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RecommendationRecord(nil), s.records...)
}

// LogSink writes records to a logrus logger at Info level.
type LogSink struct {
	Logger logrus.FieldLogger
}

// Record logs rec.
func (s LogSink) Record(_ context.Context, rec RecommendationRecord) error {
	logger := s.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	logger.WithFields(logrus.Fields{
		"run_id":      rec.RunID,
		"iteration":   rec.Iteration,
		"seed":        rec.Seed,
		"kernel":      rec.Kernel.String(),
		"acquisition": rec.Acquisition.String(),
		"iterations":  rec.Iterations,
	}).Info("recommendation")

	return nil
}

// MultiSink fans a record out to every sink, stopping at the first error.
type MultiSink []RecommendationSink

// Record forwards rec to each sink in order.
func (m MultiSink) Record(ctx context.Context, rec RecommendationRecord) error {
	for _, s := range m {
		if err := s.Record(ctx, rec); err != nil {
			return err
		}
	}

	return nil
}

func newRecord(runID string, iteration int, seed int64, rec Recommendation) RecommendationRecord {
	return RecommendationRecord{
		RunID:       runID,
		Iteration:   iteration,
		Seed:        seed,
		Kernel:      rec.Kernel,
		Acquisition: rec.Acquisition,
		Iterations:  rec.Iterations,
	}
}
