package timecoder

import "math/bits"

// lfsr32 computes the feedback bit for a 32-bit-window LFSR: the
// parity of (code & taps). Grounded on timecoder.c's `lfsr`.
func lfsr32(code, taps uint32) uint32 {
	return uint32(bits.OnesCount32(code&taps)) & 1
}

// fwd32 advances a legacy (20/23-bit) LFSR state one step forward.
// New bits enter at the MSB of the `bits`-wide window; the register
// shifts right.
func fwd32(current uint32, taps uint32, width uint) uint32 {
	l := lfsr32(current, taps|1)
	return (current >> 1) | (l << (width - 1))
}

// rev32 advances a legacy LFSR state one step backward (the exact
// inverse of fwd32 for the same definition).
func rev32(current uint32, taps uint32, width uint) uint32 {
	mask := uint32(1)<<width - 1
	l := lfsr32(current, (taps>>1)|(1<<(width-1)))
	return ((current << 1) & mask) | l
}

// lfsr128 computes the feedback bit for a 128-bit-window LFSR: the
// parity of (code & taps), folded down through U128's bit count.
// Grounded on timecoder.c's `lfsr_mk2`.
func lfsr128(code, taps U128) U128 {
	taken := code.And(taps)
	count := bits.OnesCount64(taken.Hi) + bits.OnesCount64(taken.Lo)
	return U128{Lo: uint64(count) & 1}
}

// fwd128 advances a 110-bit MK2 LFSR state one step forward.
func fwd128(current U128, taps U128, width uint) U128 {
	l := lfsr128(current, taps.Or(U128One))
	return current.Rshift(1).Or(l.Lshift(width - 1))
}

// rev128 advances a 110-bit MK2 LFSR state one step backward.
func rev128(current U128, taps U128, width uint) U128 {
	mask := U128One.Lshift(width).Sub(U128One)
	l := lfsr128(current, taps.Rshift(1).Or(U128One.Lshift(width-1)))
	return current.Lshift(1).And(mask).Or(l)
}
