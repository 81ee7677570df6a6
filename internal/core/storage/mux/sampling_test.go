package mux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTelemetryNextOp(t *testing.T) {
	tel := NewTelemetry(0, 1)

	assert.Equal(t, uint64(1), tel.NextOp())
	assert.Equal(t, uint64(2), tel.NextOp())
	assert.Equal(t, uint64(3), tel.NextOp())
}

func TestTelemetrySampled(t *testing.T) {
	t.Run("rate zero never samples", func(t *testing.T) {
		tel := NewTelemetry(0, 1)
		for i := 0; i < 100; i++ {
			assert.False(t, tel.Sampled())
		}
	})

	t.Run("rate one always samples", func(t *testing.T) {
		tel := NewTelemetry(1, 1)
		for i := 0; i < 100; i++ {
			assert.True(t, tel.Sampled())
		}
	})

	t.Run("seed makes the sequence reproducible", func(t *testing.T) {
		a := NewTelemetry(0.5, 42)
		b := NewTelemetry(0.5, 42)
		for i := 0; i < 1000; i++ {
			assert.Equal(t, a.Sampled(), b.Sampled())
		}
	})

	t.Run("rate bounds the sampled fraction", func(t *testing.T) {
		tel := NewTelemetry(0.1, 7)
		hits := 0
		for i := 0; i < 10000; i++ {
			if tel.Sampled() {
				hits++
			}
		}
		assert.InDelta(t, 1000, hits, 200)
	})
}
