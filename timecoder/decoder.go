package timecoder

import (
	"fmt"
	"math"
	"time"
)

const (
	// validBits is the lock threshold: a position is reported only
	// once the count of consecutive matching LFSR steps exceeds it.
	// Grounded on timecoder.c's VALID_BITS.
	validBits = 24

	// refPeaksAvg is the number of wave cycles the reference-level
	// peak tracker averages over. Grounded on REF_PEAKS_AVG.
	refPeaksAvg = 48

	// zeroThreshold is the zero-crossing hysteresis for a line-level
	// input, in the same 32-bit-shifted-sample units as PCM ingest.
	// Grounded on ZERO_THRESHOLD (128 << 16).
	zeroThreshold = 128 << 16

	// phonoAttenuationShift divides the hysteresis threshold by 32
	// (about -30dB) for phono-preamped input.
	phonoAttenuationShift = 5

	// forwardBitFlipFactor / reverseBitFlipFactor scale the
	// secondary channel's RMS into the MK2 bit-flip detection
	// threshold. Grounded on FORWARD_FACTOR / REVERSE_FACTOR.
	forwardBitFlipFactor = 1.5
	reverseBitFlipFactor = 1.75

	// subcodeEMAAlpha smooths the MK2 subcode's reading/slope
	// averages. Grounded on mk2_process_subcode's hard-coded 0.01.
	subcodeEMAAlpha = 0.01
)

// mk2Subcode is one of the two parallel bit-accumulators a Traktor
// MK2 decoder runs, selected by the secondary channel's current
// polarity. Grounded on timecoder.c's `struct mk2_subcode`.
type mk2Subcode struct {
	readings *DelayLine

	avgReading float64
	avgSlope   float64

	bit           U128
	recentBitFlip bool

	timecode, bitstream U128
	validCounter        uint64
}

func newMK2Subcode() *mk2Subcode {
	return &mk2Subcode{readings: NewDelayLine()}
}

// Decoder is the top-level per-sample decoding pipeline: it owns a
// pair of channel processors, the active LFSR bitstream/timecode
// state, a pitch estimator, and an optional monitor. Grounded on
// timecoder.c's `struct timecoder`.
type Decoder struct {
	def   *Definition
	dt    float64
	speed float64

	threshold float64
	zeroAlpha float64

	forwards bool

	primary, secondary *channel

	// legacy path state
	timecode, bitstream uint32
	validCounter        uint64

	// MK2 path state
	mk2Timecode, mk2Bitstream U128
	upperSubcode, lowerSubcode *mk2Subcode
	gainCompensation            float64
	dB                          float64

	refLevel       float64
	timecodeTicker uint64

	pitch Estimator

	monitor *Monitor

	// sampleFn is the legacy or MK2 per-sample pipeline, chosen at
	// construction and again by CycleDefinition. Submit and the
	// pipelines still test the PRIMARY, PHASE, POLARITY and MK2 flags
	// on every sample.
	sampleFn func(d *Decoder, primary, secondary int32)
}

// NewDecoder constructs a decoder bound to def at the given playback
// speed and sample rate. phono reduces the zero-crossing hysteresis
// for phono-preamped (rather than line-level) input. estimator
// supplies the pitch tracker implementation (AlphaBetaEstimator or
// KalmanEstimator); a nil estimator defaults to AlphaBetaEstimator.
func NewDecoder(def *Definition, speed float64, sampleRate uint, phono bool, estimator Estimator) (*Decoder, error) {
	if def == nil {
		return nil, ErrNilDefinition
	}
	if !def.Ready() {
		return nil, fmt.Errorf("timecoder: %s: lookup table not built", def.Name)
	}

	dt := 1.0 / float64(sampleRate)
	threshold := float64(zeroThreshold)
	if phono {
		threshold = float64(zeroThreshold >> phonoAttenuationShift)
	}

	if estimator == nil {
		estimator = NewAlphaBetaEstimator(dt)
	}

	d := &Decoder{
		def:          def,
		dt:           dt,
		speed:        speed,
		threshold:    threshold,
		zeroAlpha:    dt / (zeroRC + dt),
		forwards:     true,
		primary:      newChannel(def.IsMK2()),
		secondary:    newChannel(def.IsMK2()),
		refLevel:     float64(math.MaxInt32),
		upperSubcode: newMK2Subcode(),
		lowerSubcode: newMK2Subcode(),
		pitch:        estimator,
	}

	if def.IsMK2() {
		d.gainCompensation = 1.0
		d.sampleFn = (*Decoder).processSampleMK2
	} else {
		d.sampleFn = (*Decoder).processSampleLegacy
	}

	return d, nil
}

// Clear releases the decoder's owned delay-line buffers and resets
// per-channel state, without touching the shared definition lookup
// table. Per the Open Questions note in spec §9, this actually
// releases and recreates buffers rather than silently reinitializing
// in place.
func (d *Decoder) Clear() {
	d.primary.reset(d.def.IsMK2())
	d.secondary.reset(d.def.IsMK2())
	d.upperSubcode = newMK2Subcode()
	d.lowerSubcode = newMK2Subcode()
	d.timecode, d.bitstream = 0, 0
	d.mk2Timecode, d.mk2Bitstream = U128Zero, U128Zero
	d.validCounter = 0
	d.timecodeTicker = 0
	d.forwards = true
}

// CycleDefinition switches to the next registry definition that has a
// ready lookup table, resetting lock state. Grounded on
// timecoder_cycle_definition.
func (d *Decoder) CycleDefinition() {
	wasMK2 := d.def.IsMK2()
	d.def = nextDefinition(d.def)
	if d.def.IsMK2() != wasMK2 {
		d.primary = newChannel(d.def.IsMK2())
		d.secondary = newChannel(d.def.IsMK2())
		if d.def.IsMK2() {
			d.gainCompensation = 1.0
			d.sampleFn = (*Decoder).processSampleMK2
		} else {
			d.sampleFn = (*Decoder).processSampleLegacy
		}
	}
	d.validCounter = 0
	d.timecodeTicker = 0
}

// Definition returns the decoder's currently active definition.
func (d *Decoder) Definition() *Definition { return d.def }

// Forwards reports the last-inferred playback direction.
func (d *Decoder) Forwards() bool { return d.forwards }

// Pitch returns the current smoothed playback velocity, where 1.0 is
// nominal forward speed.
func (d *Decoder) Pitch() float64 { return d.pitch.Current() }

// DB returns the MK2 secondary channel's tracked signal level in dB
// relative to full scale. Zero for legacy definitions (the measure
// has no legacy equivalent).
func (d *Decoder) DB() float64 { return d.dB }

// MonitorInit allocates a size*size scope raster buffer for this
// decoder.
func (d *Decoder) MonitorInit(size int) error {
	mon, err := NewMonitor(size)
	if err != nil {
		return err
	}
	d.monitor = mon
	return nil
}

// MonitorClear releases the decoder's monitor buffer.
func (d *Decoder) MonitorClear() error {
	if d.monitor == nil {
		return ErrMonitorNotInitialized
	}
	d.monitor = nil
	return nil
}

// Monitor returns the decoder's monitor buffer, or nil if none was
// allocated.
func (d *Decoder) Monitor() *Monitor { return d.monitor }

// Submit decodes one block of interleaved 16-bit stereo PCM samples
// (L, R, L, R, ...). Grounded on timecoder_submit.
func (d *Decoder) Submit(pcm []int16) {
	for i := 0; i+1 < len(pcm); i += 2 {
		left := int32(pcm[i]) << 16
		right := int32(pcm[i+1]) << 16

		var primary, secondary int32
		if d.def.Flags.Has(FlagPrimary) {
			primary, secondary = left, right
		} else {
			primary, secondary = right, left
		}

		if d.def.IsMK2() {
			d.primary.mk2.delay.Push(int(primary))
			d.secondary.mk2.delay.Push(int(secondary))

			d.sampleFn(d, primary, secondary)

			if d.monitor != nil {
				d.monitor.Plot(d.primary.mk2.derivScaled<<1, d.secondary.mk2.derivScaled<<1, int(d.refLevel))
			}
		} else {
			d.sampleFn(d, primary, secondary)

			if d.monitor != nil {
				d.monitor.Plot(int(left), int(right), int(d.refLevel))
			}
		}

		d.timecodeTicker++
	}
}

// inferDirection applies the common forwards/backwards inference from
// which channel crossed and its polarity relationship, invoked by
// both decode paths after running their zero-crossing detectors.
func (d *Decoder) inferDirection() {
	if !d.primary.swapped && !d.secondary.swapped {
		d.pitch.Observe(0)
		return
	}

	var forwards bool
	if d.primary.swapped {
		forwards = d.primary.positive != d.secondary.positive
	} else {
		forwards = d.primary.positive == d.secondary.positive
	}
	if d.def.Flags.Has(FlagPhase) {
		forwards = !forwards
	}

	if forwards != d.forwards {
		d.forwards = forwards
		d.validCounter = 0
		logger.Debug("direction changed", "name", d.def.Name, "forwards", forwards)
	}

	dx := 1.0 / float64(d.def.Resolution) / 4
	if !d.forwards {
		dx = -dx
	}
	d.pitch.Observe(dx)
}

// processSampleLegacy is the per-sample pipeline for 20/23-bit
// definitions: raw primary/secondary feed the crossing detectors
// directly. Grounded on timecoder.c's process_sample (non-MK2
// branch) and process_bitstream.
func (d *Decoder) processSampleLegacy(primary, secondary int32) {
	d.primary.detectZeroCrossing(float64(primary), d.zeroAlpha, d.threshold)
	d.secondary.detectZeroCrossing(float64(secondary), d.zeroAlpha, d.threshold)

	d.inferDirection()

	wantPositive := !d.def.Flags.Has(FlagPolarity)
	if d.secondary.swapped && d.primary.positive == wantPositive {
		m := absInt(primary/2 - int32(d.primary.zero)/2)
		d.processBitstream(m)
	}
}

// processBitstream extracts one bit from magnitude m against the
// tracked reference level, folds it into the rolling bitstream, and
// advances the expected timecode by one LFSR step. Grounded on
// process_bitstream.
func (d *Decoder) processBitstream(m int32) {
	b := uint32(0)
	if float64(m) > d.refLevel {
		b = 1
	}

	if d.forwards {
		d.timecode = d.def.Fwd(d.timecode)
		d.bitstream = (d.bitstream >> 1) | (b << (d.def.Bits - 1))
	} else {
		mask := uint32(1)<<d.def.Bits - 1
		d.timecode = d.def.Rev(d.timecode)
		d.bitstream = ((d.bitstream << 1) & mask) | b
	}

	if d.timecode == d.bitstream {
		d.validCounter++
	} else {
		d.timecode = d.bitstream
		d.validCounter = 0
	}

	d.timecodeTicker = 0
	d.refLevel -= d.refLevel / refPeaksAvg
	d.refLevel += float64(m) / refPeaksAvg
}

// processSampleMK2 is the per-sample pipeline for 110-bit Traktor MK2
// definitions. Grounded on process_sample's MK2 branch.
//
// gain_compensation is computed once from the secondary channel and
// applied to both channels' derivatives — the original never lets
// primary scale itself by its own gain, since the secondary channel
// (the one actually carrying the phase/offset-modulated bitstream) is
// the authoritative signal-level reference for both.
func (d *Decoder) processSampleMK2(primary, secondary int32) {
	pDeriv, _ := d.primary.mk2Extract(int(primary))
	sDeriv, gain := d.secondary.mk2Extract(int(secondary))
	d.gainCompensation = gain

	d.primary.mk2.derivScaled = int(float64(pDeriv) * gain)
	d.secondary.mk2.derivScaled = int(float64(sDeriv) * gain)

	if d.secondary.mk2.rmsMagnitude != 0 {
		d.dB = 20 * log10Safe(float64(d.secondary.mk2.rmsMagnitude)/float64(math.MaxInt32))
	}

	d.primary.detectZeroCrossing(float64(d.primary.mk2.derivScaled), d.zeroAlpha, d.threshold)
	d.secondary.detectZeroCrossing(float64(d.secondary.mk2.derivScaled), d.zeroAlpha, d.threshold)

	d.inferDirection()

	if d.secondary.swapped {
		reading := d.secondary.mk2.delay.At(3)
		d.mk2ProcessBitstream(reading)
	}
}

// mk2ProcessBitstream routes a reading to the upper or lower subcode
// depending on the secondary channel's current polarity, then
// publishes whichever subcode currently has the higher validity
// counter as the decoder's public MK2 bitstream/timecode. Grounded on
// mk2_process_bitstream.
func (d *Decoder) mk2ProcessBitstream(reading int) {
	if d.secondary.positive {
		d.mk2ProcessSubcode(d.upperSubcode, reading)
	} else {
		d.mk2ProcessSubcode(d.lowerSubcode, reading)
	}

	if d.lowerSubcode.validCounter > d.upperSubcode.validCounter {
		d.mk2Bitstream = d.lowerSubcode.bitstream
		d.mk2Timecode = d.lowerSubcode.timecode
		d.validCounter = d.lowerSubcode.validCounter
	} else {
		d.mk2Bitstream = d.upperSubcode.bitstream
		d.mk2Timecode = d.upperSubcode.timecode
		d.validCounter = d.upperSubcode.validCounter
	}

	d.timecodeTicker = 0

	d.refLevel -= d.refLevel / refPeaksAvg
	d.refLevel += absFloat(float64(d.secondary.mk2.rmsDerivMagnitude)*d.gainCompensation) / refPeaksAvg
}

// mk2ProcessSubcode updates one subcode's slope-based bit-flip
// detector and its independent LFSR-step/validity tracking. Grounded
// on mk2_process_subcode, detect_bit_flip and lfsr_verify.
func (d *Decoder) mk2ProcessSubcode(sc *mk2Subcode, reading int) {
	sc.readings.Push(reading)
	sc.avgReading = emaFloat(float64(reading), sc.avgReading, subcodeEMAAlpha)

	slope1 := reading - sc.readings.At(1)
	sc.avgSlope = emaFloat(absFloatInt(slope1), sc.avgSlope, subcodeEMAAlpha)

	currentSlope := [2]int{
		reading - sc.readings.At(1),
		reading - sc.readings.At(2),
	}

	one := U128{Lo: boolToUint64(!d.secondary.positive)}
	d.detectBitFlip(currentSlope, &sc.bit, &sc.recentBitFlip, one)

	if d.lfsrVerifyMK2(&sc.timecode, &sc.bitstream, sc.bit) {
		sc.validCounter++
	} else {
		sc.timecode = sc.bitstream
		sc.validCounter = 0
	}
}

// detectBitFlip implements the MK2 slope-threshold bit-flip state
// machine: once flipped, it locks out for exactly one sample.
// Grounded on detect_bit_flip.
func (d *Decoder) detectBitFlip(slope [2]int, bit *U128, flipped *bool, one U128) {
	if *flipped {
		*flipped = false
		return
	}

	rms := float64(d.secondary.mk2.rmsMagnitude)
	threshold := rms / forwardBitFlipFactor
	if !d.forwards {
		threshold = rms / reverseBitFlipFactor
		one = one.IsZeroAsOne()
	}

	notOne := one.IsZeroAsOne()
	switch {
	case bit.Eq(notOne) && float64(slope[0]) > threshold && float64(slope[1]) > threshold:
		*bit = one
		*flipped = true
	case bit.Eq(one) && float64(slope[0]) < -threshold && float64(slope[1]) < -threshold:
		*bit = notOne
		*flipped = true
	}
}

// lfsrVerifyMK2 advances timecode by one LFSR step (forward or
// reverse, per the decoder's current direction) and folds bit into
// bitstream, reporting whether the two agree. Grounded on
// lfsr_verify.
func (d *Decoder) lfsrVerifyMK2(timecode, bitstream *U128, bit U128) bool {
	if d.forwards {
		*timecode = d.def.FwdMK2(*timecode)
		*bitstream = bitstream.Rshift(1).Add(bit.Lshift(d.def.Bits - 1))
	} else {
		mask := U128One.Lshift(d.def.Bits).Sub(U128One)
		*timecode = d.def.RevMK2(*timecode)
		*bitstream = bitstream.Lshift(1).And(mask).Add(bit)
	}
	return timecode.Eq(*bitstream)
}

// GetPosition returns the last-known position of the timecode in
// milliseconds, along with the elapsed time since that position was
// decoded. It returns ErrNotLocked while the validity counter has not
// exceeded validBits, and ErrLookupMiss if the current bitstream is
// not present in the active definition's lookup table.
func (d *Decoder) GetPosition() (positionMS int64, age time.Duration, err error) {
	if d.validCounter <= validBits {
		return 0, 0, ErrNotLocked
	}

	var slot uint32
	var found bool
	if d.def.IsMK2() {
		slot, found = d.def.lutMK2.Lookup(d.mk2Bitstream)
	} else {
		slot, found = d.def.lut.Lookup(d.bitstream)
	}
	if !found {
		return 0, 0, ErrLookupMiss
	}

	ms := float64(slot) * (1000.0 / (float64(d.def.Resolution) * d.speed))
	return int64(ms), time.Duration(float64(d.timecodeTicker) * d.dt * float64(time.Second)), nil
}

func absInt(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func absFloatInt(x int) float64 {
	if x < 0 {
		return float64(-x)
	}
	return float64(x)
}

func emaFloat(x, prev, alpha float64) float64 {
	return alpha*x + (1-alpha)*prev
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func log10Safe(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Log10(x)
}
