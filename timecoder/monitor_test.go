package timecoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMonitorRejectsNonPositiveSize(t *testing.T) {
	_, err := NewMonitor(0)
	assert.ErrorIs(t, err, ErrAllocation)

	_, err = NewMonitor(-5)
	assert.ErrorIs(t, err, ErrAllocation)
}

func TestMonitorPlotLightsCenterPixel(t *testing.T) {
	m, err := NewMonitor(64)
	require.NoError(t, err)

	m.Plot(0, 0, 1000)
	px := m.Pixels()
	center := 32*64 + 32
	assert.Equal(t, byte(0xff), px[center])
}

func TestMonitorPlotIgnoresNonPositiveRefLevel(t *testing.T) {
	m, err := NewMonitor(16)
	require.NoError(t, err)

	m.Plot(5, 5, 0)
	for _, v := range m.Pixels() {
		assert.Zero(t, v)
	}
}

func TestMonitorDecaysPeriodically(t *testing.T) {
	m, err := NewMonitor(8)
	require.NoError(t, err)

	m.Plot(0, 0, 1000)
	before := m.Pixels()[4*8+4]
	require.Equal(t, byte(0xff), before)

	for i := uint64(1); i < MonitorDecayEvery; i++ {
		m.Plot(1000000, 1000000, 1000) // out of bounds, just to tick the counter
	}
	after := m.Pixels()[4*8+4]
	assert.Less(t, after, before, "pixel should have decayed after MonitorDecayEvery samples")
}
