package timecoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDelayLinePushAndAt(t *testing.T) {
	d := NewDelayLine()
	for i := 1; i <= 5; i++ {
		d.Push(i)
	}
	assert.Equal(t, 5, d.At(0), "At(0) should be the most recently pushed value")
	assert.Equal(t, 4, d.At(1))
	assert.Equal(t, 1, d.At(4))
	assert.Equal(t, 0, d.At(5), "unpushed slots remain zero")
}

func TestDelayLineWrapsAroundCapacity(t *testing.T) {
	d := NewDelayLine()
	for i := 0; i < DelayLineSize+3; i++ {
		d.Push(i)
	}
	assert.Equal(t, DelayLineSize+2, d.At(0))
	assert.Equal(t, DelayLineSize+1, d.At(1))
}

func TestDelayLineReset(t *testing.T) {
	d := NewDelayLine()
	d.Push(42)
	d.Reset()
	assert.Equal(t, 0, d.At(0))
	assert.Equal(t, 0, d.Avg())
}

func TestDelayLineAvg(t *testing.T) {
	d := NewDelayLine()
	d.Push(DelayLineSize * 2)
	assert.Equal(t, 2, d.Avg(), "a single pushed value of 2*size averages to 2 across a zero-filled buffer")
}
