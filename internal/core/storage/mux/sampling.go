package mux

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// Telemetry holds the shared per-operation counter and the sampling
// decision source for a multiplexed topology. One instance is shared
// between the multiplexed store and the scrub layer so that repair
// puts are tagged by the same sequence as regular operations.
//
// The counter orders logged operations deterministically for debugging;
// it has no effect on correctness. Sampling bounds verbose telemetry
// volume and is purely observational.
type Telemetry struct {
	seq  atomic.Uint64
	rate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewTelemetry creates a telemetry source. rate is the probability in
// [0, 1] that an operation is logged verbosely; seed makes the sampling
// sequence reproducible so tests can force both branches.
func NewTelemetry(rate float64, seed uint64) *Telemetry {
	return &Telemetry{
		rate: rate,
		rnd:  rand.New(rand.NewPCG(seed, seed)),
	}
}

// NextOp returns the next operation sequence number.
func (t *Telemetry) NextOp() uint64 {
	return t.seq.Add(1)
}

// Sampled decides whether the current operation is logged verbosely.
// Safe for concurrent use from fan-out branches.
func (t *Telemetry) Sampled() bool {
	if t.rate >= 1 {
		return true
	}
	if t.rate <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rnd.Float64() < t.rate
}
