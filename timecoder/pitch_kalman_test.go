package timecoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKalmanEstimatorConvergesToConstantVelocity(t *testing.T) {
	dt := 1.0 / 44100
	k := NewKalmanEstimator(dt, DefaultKalmanTuning())

	v := 0.25
	dx := v * dt
	for i := 0; i < 100000; i++ {
		k.Observe(dx)
	}
	assert.InDelta(t, v, k.Current(), v*0.25)
}

func TestKalmanEstimatorSelectsReactiveModeOnLargeInnovation(t *testing.T) {
	tuning := DefaultKalmanTuning()
	k := NewKalmanEstimator(1.0/44100, tuning)

	k.Observe(10.0) // huge jump relative to the tiny dt-scaled deltas this tracker expects
	assert.Equal(t, &k.tuning.Reactive, k.current)
}

func TestKalmanEstimatorTuneSensitivityOverridesMode(t *testing.T) {
	tuning := DefaultKalmanTuning()
	k := NewKalmanEstimator(1.0/44100, tuning)

	custom := &KalmanCoeffs{Q: 1, R: 1}
	k.TuneSensitivity(custom)
	assert.Same(t, custom, k.current)

	k.TuneSensitivity(nil)
	assert.Same(t, custom, k.current, "a nil override should be ignored")
}

func TestFrequencyKalmanEstimatorTracksStepChange(t *testing.T) {
	k := NewFrequencyKalmanEstimator(1.0/1000, 100, 1e-3, 1e-2)
	var last float64
	for i := 0; i < 5000; i++ {
		last = k.Update(150)
	}
	assert.InDelta(t, 150, last, 1)
	assert.InDelta(t, 150, k.FrequencyHz(), 1)
}
