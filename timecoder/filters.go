package timecoder

import "math"

// This file collects the scalar filters used by the decoder
// (EMA/Derivative/RMS, grounded on original_source/lib/xwax/filters.c)
// and the IIR library filters: an all-pass bandpass, a generic
// direct-form IIR, and a 4th-order Butterworth lowpass built on it.
// There are no FIR filters or window functions here.

// EMA is an exponential moving average filter: y = alpha*x + (1-alpha)*y_prev.
// Alpha in [0,1]; 1 behaves as identity, 0 holds the initial value
// forever (spec §8 invariant 5).
type EMA struct {
	Alpha float64
	y     int
}

// NewEMA returns an EMA filter with the given smoothing factor and a
// zero initial state.
func NewEMA(alpha float64) *EMA {
	return &EMA{Alpha: alpha}
}

// Step feeds one sample and returns the filtered output.
func (e *EMA) Step(x int) int {
	y := int(e.Alpha*float64(x) + (1-e.Alpha)*float64(e.y))
	e.y = y
	return y
}

// EMAf is the floating-point counterpart of EMA, for callers that
// already work in float64.
type EMAf struct {
	Alpha float64
	y     float64
}

// NewEMAf returns a float EMA filter.
func NewEMAf(alpha float64) *EMAf {
	return &EMAf{Alpha: alpha}
}

// Step feeds one float64 sample.
func (e *EMAf) Step(x float64) float64 {
	e.y = e.Alpha*x + (1-e.Alpha)*e.y
	return e.y
}

// Derivative computes y = x - x_prev, the discrete slope of its input.
type Derivative struct {
	xOld int
}

// NewDerivative returns a derivative filter with zero history.
func NewDerivative() *Derivative {
	return &Derivative{}
}

// Step feeds one sample and returns the slope since the last call.
func (d *Derivative) Step(x int) int {
	y := x - d.xOld
	d.xOld = x
	return y
}

// RMS maintains an EMA of x^2 and returns floor(sqrt(state)). A
// constant input c converges to |c| (spec §8 invariant 6).
type RMS struct {
	Alpha float64
	state uint64
}

// DefaultRMSAlpha is the smoothing factor the original implementation
// hard-codes for RMS tracking.
const DefaultRMSAlpha = 1e-3

// NewRMS returns an RMS tracker using DefaultRMSAlpha.
func NewRMS() *RMS {
	return &RMS{Alpha: DefaultRMSAlpha}
}

// NewRMSWithAlpha returns an RMS tracker with an explicit smoothing
// factor, for callers that need faster or slower convergence.
func NewRMSWithAlpha(alpha float64) *RMS {
	return &RMS{Alpha: alpha}
}

// Step feeds one sample and returns the current RMS estimate.
func (r *RMS) Step(x int) int {
	squared := uint64(x) * uint64(x)
	if x < 0 {
		// uint64(x) of a negative int wraps; square via int64 math
		// instead so the sign doesn't corrupt the magnitude.
		xx := int64(x)
		squared = uint64(xx * xx)
	}
	r.state = uint64((1-r.Alpha)*float64(r.state) + r.Alpha*float64(squared))
	return int(math.Sqrt(float64(r.state)))
}

// Clamp returns x capped at max, mirroring the original's branchless
// `clamp` helper (kept branchy here — it's clearer and just as fast
// for a once-per-sample scalar operation).
func Clamp(x, max float64) float64 {
	if x > max {
		return max
	}
	return x
}

// AllPassBandpass is a first-order all-pass filter tuned to behave as
// a bandpass around a centre frequency Fc with bandwidth Fb, in the
// style of filters.h's apbp_filter.
type AllPassBandpass struct {
	c, d float64
	xh   [2]int
}

// NewAllPassBandpass designs an all-pass bandpass filter for centre
// frequency fc and bandwidth fb, both in Hz, at the given sample rate.
func NewAllPassBandpass(fc, fb float64, sampleRate uint) *AllPassBandpass {
	tanArg := math.Pi * fb / float64(sampleRate)
	t := math.Tan(tanArg)
	c := (t - 1) / (t + 1)
	d := -math.Cos(2 * math.Pi * fc / float64(sampleRate))
	return &AllPassBandpass{c: c, d: d}
}

// Step runs one sample through the all-pass bandpass.
func (f *AllPassBandpass) Step(x int) int {
	xh0 := float64(x) - f.d*(1-f.c)*float64(f.xh[0]) + f.c*float64(f.xh[1])
	y := -f.c*xh0 + f.d*(1-f.c)*float64(f.xh[0]) + float64(f.xh[1])
	f.xh[1] = f.xh[0]
	f.xh[0] = int(xh0)
	bp := (float64(x) - y) / 2
	return int(bp)
}

// IIR is a generic direct-form-II transposed filter of arbitrary
// order N, driven by coefficient arrays b (feedforward) and a
// (feedback, a[0] implicitly 1). It backs Butterworth4 below and is
// also exposed directly as a library utility per spec §4.3.
type IIR struct {
	b, a  []float64
	state []float64
}

// NewIIR builds a direct-form-II transposed IIR filter. b and a may
// differ in length; missing coefficients are treated as zero. a[0] is
// assumed to be 1 (already normalized).
func NewIIR(b, a []float64) *IIR {
	n := len(b)
	if len(a) > n {
		n = len(a)
	}
	return &IIR{
		b:     append([]float64(nil), b...),
		a:     append([]float64(nil), a...),
		state: make([]float64, n),
	}
}

// Step runs one sample through the filter.
func (f *IIR) Step(x float64) float64 {
	y := f.b[0]*x + f.state[0]
	n := len(f.state)
	for i := 0; i < n-1; i++ {
		bi, ai := 0.0, 0.0
		if i+1 < len(f.b) {
			bi = f.b[i+1]
		}
		if i+1 < len(f.a) {
			ai = f.a[i+1]
		}
		f.state[i] = bi*x + f.state[i+1] - ai*y
	}
	if n > 0 {
		bi, ai := 0.0, 0.0
		if n < len(f.b) {
			bi = f.b[n]
		}
		if n < len(f.a) {
			ai = f.a[n]
		}
		f.state[n-1] = bi*x - ai*y
	}
	return y
}

// Butterworth4 is a 4th-order Butterworth lowpass, assembled as two
// cascaded biquads via IIR. cutoff is expressed as a fraction of the
// sample rate (0, 0.5).
type Butterworth4 struct {
	stage1, stage2 *IIR
}

// NewButterworth4 designs a 4th-order Butterworth lowpass filter with
// the given normalized cutoff (cutoffHz / sampleRate).
func NewButterworth4(cutoff float64) *Butterworth4 {
	// Bilinear-transform design for two second-order sections, using
	// the standard pole pairs for a 4th-order Butterworth
	// (sin((2k-1)pi/8) for k=1,2).
	wc := math.Tan(math.Pi * cutoff)
	mk := func(q float64) *IIR {
		k := wc
		norm := 1 / (1 + k/q + k*k)
		b0 := k * k * norm
		b1 := 2 * b0
		b2 := b0
		a1 := 2 * (k*k - 1) * norm
		a2 := (1 - k/q + k*k) * norm
		return NewIIR([]float64{b0, b1, b2}, []float64{1, a1, a2})
	}
	q1 := 1 / (2 * math.Cos(math.Pi/8))
	q2 := 1 / (2 * math.Cos(3*math.Pi/8))
	return &Butterworth4{stage1: mk(q1), stage2: mk(q2)}
}

// Step runs one sample through both cascaded biquad sections.
func (f *Butterworth4) Step(x float64) float64 {
	return f.stage2.Step(f.stage1.Step(x))
}
