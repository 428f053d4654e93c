package timecoder

// DelayLineSize is the default capacity of a DelayLine, matching the
// fixed-size ring buffer in original_source/lib/xwax/delayline.c.
const DelayLineSize = 256

// DelayLine is a fixed-length circular integer buffer with relative
// indexing: At(0) is the most recently pushed value, At(n-1) the
// oldest live one. It never allocates after construction, so it is
// safe to use on the per-sample hot path.
type DelayLine struct {
	array   [DelayLineSize]int
	current int
}

// NewDelayLine returns a zero-filled delay line, cursor positioned at
// the last slot the way delayline_init leaves `current` at size-1.
func NewDelayLine() *DelayLine {
	d := &DelayLine{}
	d.Reset()
	return d
}

// Reset zeroes the buffer and resets the cursor, without allocating.
func (d *DelayLine) Reset() {
	for i := range d.array {
		d.array[i] = 0
	}
	d.current = DelayLineSize - 1
}

// normalize brings a transiently negative cursor back into [0, size).
// The original implementation only ever decrements by one per push,
// so a single addition of the size is always sufficient.
func (d *DelayLine) normalize() {
	if d.current < 0 {
		d.current += DelayLineSize
	}
}

// Push writes x as the newest sample, decrementing the cursor first
// (mod DelayLineSize) exactly as delayline_push does.
func (d *DelayLine) Push(x int) {
	d.current--
	d.normalize()
	d.array[d.current] = x
}

// At returns the value i steps into the past; At(0) is the most
// recent push. i must be in [0, DelayLineSize); out-of-range i wraps
// via modular arithmetic rather than panicking, matching the
// original's unchecked pointer arithmetic but without the possibility
// of an actual out-of-bounds access.
func (d *DelayLine) At(i int) int {
	d.normalize()
	idx := (d.current + i) % DelayLineSize
	if idx < 0 {
		idx += DelayLineSize
	}
	return d.array[idx]
}

// Avg returns the integer mean of every cell currently held,
// including positions never explicitly pushed to (they remain zero).
func (d *DelayLine) Avg() int {
	sum := 0
	for _, v := range d.array {
		sum += v
	}
	return sum / DelayLineSize
}
