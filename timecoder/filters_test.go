package timecoder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEMAIdentityAtAlphaOne(t *testing.T) {
	e := NewEMA(1.0)
	assert.Equal(t, 7, e.Step(7))
	assert.Equal(t, -3, e.Step(-3))
}

func TestEMAHoldsAtAlphaZero(t *testing.T) {
	e := NewEMA(0.0)
	assert.Equal(t, 0, e.Step(100))
	assert.Equal(t, 0, e.Step(-50))
}

func TestEMAfConverges(t *testing.T) {
	e := NewEMAf(0.2)
	for i := 0; i < 200; i++ {
		e.Step(10)
	}
	assert.InDelta(t, 10.0, e.y, 1e-6)
}

func TestDerivativeStep(t *testing.T) {
	d := NewDerivative()
	assert.Equal(t, 5, d.Step(5), "first call has zero history")
	assert.Equal(t, 3, d.Step(8))
	assert.Equal(t, -8, d.Step(0))
}

func TestRMSConvergesToMagnitudeOfConstantInput(t *testing.T) {
	r := NewRMSWithAlpha(0.1)
	var got int
	for i := 0; i < 2000; i++ {
		got = r.Step(-37)
	}
	assert.InDelta(t, 37, got, 1)
}

func TestRMSNegativeInputDoesNotCorruptMagnitude(t *testing.T) {
	pos := NewRMSWithAlpha(0.5)
	neg := NewRMSWithAlpha(0.5)
	for i := 0; i < 50; i++ {
		pos.Step(100)
		neg.Step(-100)
	}
	assert.Equal(t, pos.state, neg.state, "RMS of +x and -x must track identically")
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5.0, Clamp(10, 5))
	assert.Equal(t, 3.0, Clamp(3, 5))
}

func TestIIRPassesDCGainOfOne(t *testing.T) {
	// A simple one-pole lowpass with unity DC gain: b=[1-p], a=[1, -p].
	p := 0.9
	f := NewIIR([]float64{1 - p}, []float64{1, -p})
	var y float64
	for i := 0; i < 500; i++ {
		y = f.Step(1.0)
	}
	assert.InDelta(t, 1.0, y, 1e-6)
}

func TestButterworth4AttenuatesHighFrequency(t *testing.T) {
	f := NewButterworth4(0.01)
	var maxOut float64
	for i := 0; i < 2000; i++ {
		x := math.Cos(float64(i) * math.Pi) // Nyquist-rate input: +1, -1, +1, ...
		y := f.Step(x)
		if math.Abs(y) > maxOut {
			maxOut = math.Abs(y)
		}
	}
	assert.Less(t, maxOut, 0.1, "a lowpass at cutoff=0.01 should strongly attenuate a Nyquist-rate tone")
}

func TestAllPassBandpassIsStable(t *testing.T) {
	f := NewAllPassBandpass(1000, 200, 44100)
	for i := 0; i < 10000; i++ {
		y := f.Step(int(1000 * math.Sin(float64(i)*0.05)))
		assert.Less(t, math.Abs(float64(y)), 1e6, "filter output should not diverge")
	}
}
