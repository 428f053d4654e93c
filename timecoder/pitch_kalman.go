package timecoder

import "math"

// KalmanCoeffs is one rung of the adaptive mode-switch ladder: process
// noise Q and measurement noise R for a constant-velocity model.
// Grounded on original_source/lib/xwax/pitch_kalman.h's
// struct kalman_coeffs / KALMAN_COEFFS.
type KalmanCoeffs struct {
	Q, R float64
}

// KalmanTuning bundles the three ladder rungs and the innovation
// thresholds that pick between them. Exposed as tunable fields (per
// the Open Questions note in spec §9 — the thresholds were hard-coded
// in the original) rather than compiled-in constants.
type KalmanTuning struct {
	Stable, Medium, Reactive     KalmanCoeffs
	MediumThreshold              float64
	ScratchThreshold             float64
}

// DefaultKalmanTuning reproduces the implied stable/medium/reactive
// ladder from the original implementation: tight process noise and
// loose measurement noise for steady playback, the opposite for
// scratching, with a modest middle ground.
func DefaultKalmanTuning() KalmanTuning {
	return KalmanTuning{
		Stable:           KalmanCoeffs{Q: 1e-8, R: 1e-2},
		Medium:           KalmanCoeffs{Q: 1e-5, R: 1e-3},
		Reactive:         KalmanCoeffs{Q: 1e-2, R: 1e-4},
		MediumThreshold:  0.01,
		ScratchThreshold: 0.1,
	}
}

// KalmanEstimator is a constant-velocity Kalman pitch tracker, state
// [x, v] with a 2x2 symmetric covariance. Grounded on
// original_source/lib/xwax/pitch_kalman.h.
type KalmanEstimator struct {
	dt float64

	x, v float64
	p00, p01, p11 float64

	tuning  KalmanTuning
	current *KalmanCoeffs
}

// NewKalmanEstimator returns a Kalman tracker for observations spaced
// dt seconds apart, with large initial covariance so early
// observations dominate (spec §4.4).
func NewKalmanEstimator(dt float64, tuning KalmanTuning) *KalmanEstimator {
	k := &KalmanEstimator{
		dt:      dt,
		p00:     1e6,
		p11:     1e6,
		tuning:  tuning,
	}
	k.current = &k.tuning.Stable
	return k
}

// TuneSensitivity overrides the active coefficient set without
// resetting filter state, mirroring kalman_tune_sensitivity.
func (k *KalmanEstimator) TuneSensitivity(c *KalmanCoeffs) {
	if c == nil {
		return
	}
	k.current = c
}

// selectMode picks the coefficient rung from the magnitude of the
// most recent innovation, reactivity increasing with |innovation|.
func (k *KalmanEstimator) selectMode(innovation float64) {
	abs := math.Abs(innovation)
	switch {
	case abs >= k.tuning.ScratchThreshold:
		k.current = &k.tuning.Reactive
	case abs >= k.tuning.MediumThreshold:
		k.current = &k.tuning.Medium
	default:
		k.current = &k.tuning.Stable
	}
}

// Observe runs one predict/update cycle given position delta dx
// observed over the last dt seconds.
func (k *KalmanEstimator) Observe(dx float64) {
	dt := k.dt

	// Predict: F = [[1, dt], [0, 1]]
	xPred := k.x + dt*k.v
	vPred := k.v

	q := k.current.Q
	q00 := q * (dt * dt * dt / 3.0)
	q01 := q * (dt * dt / 2.0)
	q11 := q * dt

	p00 := k.p00 + dt*(k.p01+k.p01) + dt*dt*k.p11 + q00
	p01 := k.p01 + dt*k.p11 + q01
	p11 := k.p11 + q11

	// Update: H = [1, 0]
	innovation := dx - xPred
	s := p00 + k.current.R
	invS := 1.0 / s
	k0 := p00 * invS
	k1 := p01 * invS

	k.x = xPred + k0*innovation
	k.v = vPred + k1*innovation

	k.p00 = (1 - k0) * p00
	k.p01 = (1 - k0) * p01
	k.p11 = p11 - k1*p01

	k.x -= dx // keep x relative to the previous observation

	k.selectMode(innovation)
}

// Current returns the current velocity estimate.
func (k *KalmanEstimator) Current() float64 {
	return k.v
}

var _ Estimator = (*KalmanEstimator)(nil)

// FrequencyKalmanEstimator is a supplemental constant-acceleration
// Kalman tracker operating directly on instantaneous carrier
// frequency (state [f, fdot]) rather than LFSR-bit position deltas.
// It is not wired into Decoder (whose pitch input is position
// deltas), but is grounded on
// original_source/lib/xwax/pitch_kalman_freq.h and provided as a
// standalone utility for hosts that track frequency directly (e.g.
// from an FFT or zero-crossing period estimator upstream of this
// package).
type FrequencyKalmanEstimator struct {
	dt float64

	f, fdot       float64
	p00, p01, p11 float64

	q, r float64
}

// NewFrequencyKalmanEstimator returns a frequency tracker seeded at
// f0 Hz, with process noise spectral density q and measurement
// variance r.
func NewFrequencyKalmanEstimator(dt, f0, q, r float64) *FrequencyKalmanEstimator {
	return &FrequencyKalmanEstimator{
		dt:  dt,
		f:   f0,
		p00: 1e6,
		p11: 1e6,
		q:   q,
		r:   r,
	}
}

// SetProcessNoise retunes q without resetting filter state.
func (k *FrequencyKalmanEstimator) SetProcessNoise(q float64) { k.q = q }

// SetMeasurementNoise retunes r without resetting filter state.
func (k *FrequencyKalmanEstimator) SetMeasurementNoise(r float64) { k.r = r }

// Update feeds one instantaneous-frequency measurement z (Hz) and
// returns the filtered frequency.
func (k *FrequencyKalmanEstimator) Update(z float64) float64 {
	dt := k.dt

	fPred := k.f + dt*k.fdot
	fdotPred := k.fdot

	q00 := k.q * (dt * dt * dt / 3.0)
	q01 := k.q * (dt * dt / 2.0)
	q11 := k.q * dt

	p00 := k.p00 + dt*(k.p01+k.p01) + dt*dt*k.p11 + q00
	p01 := k.p01 + dt*k.p11 + q01
	p11 := k.p11 + q11

	y := z - fPred
	s := p00 + k.r
	invS := 1.0 / s
	k0 := p00 * invS
	k1 := p01 * invS

	k.f = fPred + k0*y
	k.fdot = fdotPred + k1*y

	k.p00 = (1 - k0) * p00
	k.p01 = (1 - k0) * p01
	k.p11 = p11 - k1*p01

	return k.f
}

// FrequencyHz returns the current filtered frequency.
func (k *FrequencyKalmanEstimator) FrequencyHz() float64 { return k.f }

// FrequencyDotHzPerSec returns the current rate of change of frequency.
func (k *FrequencyKalmanEstimator) FrequencyDotHzPerSec() float64 { return k.fdot }
