package timecoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFwd32RevInverse(t *testing.T) {
	const taps = 0x361e4
	const bits = 20
	current := uint32(0x59017)
	for i := 0; i < 10000; i++ {
		next := fwd32(current, taps, bits)
		assert.Equal(t, current, rev32(next, taps, bits), "rev32 should invert fwd32 at step %d", i)
		current = next
	}
}

func TestFwd32StaysWithinWidth(t *testing.T) {
	const taps = 0x041040
	const bits = 23
	current := uint32(0x134503)
	mask := uint32(1)<<bits - 1
	for i := 0; i < 1000; i++ {
		current = fwd32(current, taps, bits)
		assert.Zero(t, current&^mask, "LFSR state must never exceed its configured bit width")
	}
}

func TestFwd128RevInverse(t *testing.T) {
	taps := NewU128(0x400000000040, 0x0000010800000001)
	current := NewU128(0xc6007c63e, 0x3fc00c60f8c1f00)
	const bits = 110

	for i := 0; i < 10000; i++ {
		next := fwd128(current, taps, bits)
		assert.True(t, rev128(next, taps, bits).Eq(current), "rev128 should invert fwd128 at step %d", i)
		current = next
	}
}

func TestLfsr32Parity(t *testing.T) {
	assert.Equal(t, uint32(0), lfsr32(0, 0xff))
	assert.Equal(t, uint32(1), lfsr32(1, 1))
	assert.Equal(t, uint32(0), lfsr32(0b11, 0b11))
	assert.Equal(t, uint32(1), lfsr32(0b11, 0b01))
}
