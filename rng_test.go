package boost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionedRNG(t *testing.T) {
	tests := []struct {
		name string
		a, b func() int64
		same bool
	}{
		{
			name: "same seed and subsystem repeat",
			a:    func() int64 { return NewPartitionedRNG(7).ForSubsystem(SubsystemSampling).Int63() },
			b:    func() int64 { return NewPartitionedRNG(7).ForSubsystem(SubsystemSampling).Int63() },
			same: true,
		},
		{
			name: "subsystems are independent",
			a:    func() int64 { return NewPartitionedRNG(7).ForSubsystem(SubsystemSampling).Int63() },
			b:    func() int64 { return NewPartitionedRNG(7).ForSubsystem(SubsystemTieBreak).Int63() },
			same: false,
		},
		{
			name: "seeds are independent",
			a:    func() int64 { return NewPartitionedRNG(7).ForSubsystem(SubsystemSampling).Int63() },
			b:    func() int64 { return NewPartitionedRNG(8).ForSubsystem(SubsystemSampling).Int63() },
			same: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.same {
				assert.Equal(t, tt.a(), tt.b())
			} else {
				assert.NotEqual(t, tt.a(), tt.b())
			}
		})
	}
}

func TestPartitionedRNGCachesSubsystems(t *testing.T) {
	p := NewPartitionedRNG(3)

	assert.Same(t, p.ForSubsystem(SubsystemTieBreak), p.ForSubsystem(SubsystemTieBreak))
	assert.Equal(t, int64(3), p.Seed())
}
