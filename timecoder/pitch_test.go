package timecoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlphaBetaEstimatorConvergesToConstantVelocity(t *testing.T) {
	dt := 1.0 / 44100
	e := NewAlphaBetaEstimator(dt)

	v := 0.25
	dx := v * dt // a steady quarter of nominal forward speed
	for i := 0; i < 500000; i++ {
		e.Observe(dx)
	}
	assert.InDelta(t, v, e.Current(), v*0.25, "alpha-beta tracker should converge near the true constant velocity")
}

func TestAlphaBetaEstimatorZeroInputStaysNearZero(t *testing.T) {
	e := NewAlphaBetaEstimator(1.0 / 44100)
	for i := 0; i < 1000; i++ {
		e.Observe(0)
	}
	assert.InDelta(t, 0, e.Current(), 1e-6)
}
