package timecoder

// Estimator is the shared contract for the decoder's pitch tracker:
// feed it a sequence of position deltas observed every dt seconds,
// read back a smoothed velocity. The alpha-beta tracker (this file)
// and the Kalman tracker (pitch_kalman.go) are interchangeable
// implementations of it, selected once at Decoder construction so the
// sample path never branches on which is active (design note §9).
type Estimator interface {
	// Observe feeds one dt-spaced position delta.
	Observe(dx float64)
	// Current returns the current smoothed velocity estimate.
	Current() float64
}

// Alpha-beta tuning constants, concluded experimentally in the
// original xwax implementation (pitch.h).
const (
	alphaBetaAlpha = 1e-3
	alphaBetaBeta  = 1e-6
)

// AlphaBetaEstimator is the legacy two-state (x, v) pitch tracker.
type AlphaBetaEstimator struct {
	dt   float64
	x, v float64
}

// NewAlphaBetaEstimator returns an alpha-beta tracker for observations
// spaced dt seconds apart.
func NewAlphaBetaEstimator(dt float64) *AlphaBetaEstimator {
	return &AlphaBetaEstimator{dt: dt}
}

// Observe feeds one position delta observed over the last dt seconds.
func (p *AlphaBetaEstimator) Observe(dx float64) {
	predictedX := p.x + p.v*p.dt
	predictedV := p.v

	residual := dx - predictedX

	p.x = predictedX + residual*alphaBetaAlpha
	p.v = predictedV + residual*alphaBetaBeta/p.dt

	p.x -= dx // keep x relative to the previous observation
}

// Current returns the current smoothed velocity (pitch).
func (p *AlphaBetaEstimator) Current() float64 {
	return p.v
}

var _ Estimator = (*AlphaBetaEstimator)(nil)
