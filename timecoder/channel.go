package timecoder

// zeroRC is the time constant, in seconds, of the DC/rumble tracking
// filter applied to each channel. Grounded on timecoder.c's ZERO_RC.
const zeroRC = 0.001

// mk2EMAAlpha is the smoothing factor used for the MK2 channel's
// EMA-then-derivative feature pipeline (process_sample's ALPHA_EMA).
const mk2EMAAlpha = 3e-1

// maxGainCompensation caps the derivative gain-compensation factor;
// above this the pitch tracker becomes oversensitive to noise.
const maxGainCompensation = 30.0

// channel holds one audio channel's zero-crossing detector state,
// plus (for MK2 definitions) its derivative/RMS feature-extraction
// pipeline. Grounded on timecoder.c's `struct timecoder_channel`.
type channel struct {
	positive       bool
	zero           float64
	swapped        bool
	crossingTicker uint64

	// MK2-only feature extraction state.
	mk2 mk2ChannelState
}

type mk2ChannelState struct {
	ema      *EMA
	deriv    *Derivative
	rms      *RMS
	rmsDeriv *RMS

	// rmsMagnitude / rmsDerivMagnitude are the sqrt'd RMS readings
	// from the last mk2Extract call (rms.Step/rmsDeriv.Step's return
	// values) — the actual signal magnitudes, as opposed to RMS's
	// internal pre-sqrt squared-EMA state. timecoder.c's
	// mk2.rms/mk2.rms_deriv fields hold exactly this.
	rmsMagnitude      int
	rmsDerivMagnitude int

	derivScaled int
	delay       *DelayLine
}

func newChannel(isMK2 bool) *channel {
	ch := &channel{}
	if isMK2 {
		ch.mk2 = mk2ChannelState{
			ema:      NewEMA(mk2EMAAlpha),
			deriv:    NewDerivative(),
			rms:      NewRMS(),
			rmsDeriv: NewRMS(),
			delay:    NewDelayLine(),
		}
	}
	return ch
}

func (ch *channel) reset(isMK2 bool) {
	ch.positive = false
	ch.zero = 0
	ch.swapped = false
	ch.crossingTicker = 0
	if isMK2 {
		ch.mk2 = mk2ChannelState{
			ema:      NewEMA(mk2EMAAlpha),
			deriv:    NewDerivative(),
			rms:      NewRMS(),
			rmsDeriv: NewRMS(),
			delay:    NewDelayLine(),
		}
	}
}

// detectZeroCrossing updates the DC tracker and crossing flag for one
// sample value v, given the zero-filter's alpha and hysteresis
// threshold. Grounded on timecoder.c's detect_zero_crossing.
func (ch *channel) detectZeroCrossing(v float64, alpha float64, threshold float64) {
	ch.crossingTicker++
	ch.swapped = false

	if v > ch.zero+threshold && !ch.positive {
		ch.swapped = true
		ch.positive = true
		ch.crossingTicker = 0
	} else if v < ch.zero-threshold && ch.positive {
		ch.swapped = true
		ch.positive = false
		ch.crossingTicker = 0
	}

	ch.zero += alpha * (v - ch.zero)
}

// mk2Extract runs the EMA -> derivative -> RMS pipeline for one raw
// sample, updating this channel's MK2 RMS state, and returns the raw
// (unscaled) derivative along with this channel's own gain-
// compensation factor (rms-of-x / rms-of-derivative, clamped).
// Grounded on timecoder.c's process_sample MK2 branch.
//
// The original computes gain_compensation once from the secondary
// channel and applies that single value to scale both channels'
// derivatives, so scaling is left to the caller rather than baked in
// here — a caller that wants a channel to scale itself by its own
// gain can simply multiply the two return values together.
func (ch *channel) mk2Extract(raw int) (deriv int, gainCompensation float64) {
	ema := ch.mk2.ema.Step(raw)
	deriv = ch.mk2.deriv.Step(ema)

	rmsX := ch.mk2.rms.Step(raw)
	rmsDeriv := ch.mk2.rmsDeriv.Step(deriv)
	ch.mk2.rmsMagnitude = rmsX
	ch.mk2.rmsDerivMagnitude = rmsDeriv

	gain := maxGainCompensation
	if rmsDeriv != 0 {
		gain = float64(rmsX) / float64(rmsDeriv)
		if gain > maxGainCompensation {
			gain = maxGainCompensation
		}
	}

	return deriv, gain
}
