package boost

import (
	"hash/fnv"
	"math/rand"
)

// RNG subsystem names.
const (
	// SubsystemSampling draws the initial design of a driver run.
	SubsystemSampling = "sampling"

	// SubsystemTieBreak resolves equal iteration counts when random
	// tie-breaking is enabled.
	SubsystemTieBreak = "tiebreak"
)

// PartitionedRNG hands out one deterministic *rand.Rand per named
// subsystem, all derived from a single seed.
//
// Derivation: seed XOR fnv1a64(name).
//
// Thread-safety: NOT thread-safe. Derive every stream on the coordinating
// goroutine and pass each *rand.Rand to exactly one worker.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the cached RNG for name, creating it on first use.
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	rng := rand.New(rand.NewSource(p.seed ^ fnv1a64(name)))
	p.subsystems[name] = rng

	return rng
}

// Seed returns the seed the partitions derive from.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))

	return int64(h.Sum64())
}
