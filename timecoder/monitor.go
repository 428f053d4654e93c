package timecoder

// MonitorDecayEvery is the number of samples between pixel-decay
// passes over the monitor buffer. Grounded on timecoder.c's
// MONITOR_DECAY_EVERY.
const MonitorDecayEvery = 512

// Monitor is a decaying x/y intensity raster for scope display: a
// contiguous size*size byte buffer, values 0..255. Ownership is the
// Decoder's; the host renderer only reads Pixels(). Grounded on
// timecoder.c's timecoder_monitor_init/update_monitor.
type Monitor struct {
	size    int
	pixels  []byte
	counter uint64
}

// NewMonitor allocates a size*size monitor buffer, or returns
// ErrAllocation if size is non-positive.
func NewMonitor(size int) (*Monitor, error) {
	if size <= 0 {
		return nil, ErrAllocation
	}
	return &Monitor{size: size, pixels: make([]byte, size*size)}, nil
}

// Size returns the monitor's edge length.
func (m *Monitor) Size() int { return m.size }

// Pixels returns the raw row-major intensity buffer; callers must not
// retain it across a Plot call that might (conceptually) replace it —
// in practice the backing array is stable for the monitor's lifetime.
func (m *Monitor) Pixels() []byte { return m.pixels }

// decay multiplies every nonzero pixel by 7/8, called automatically
// every MonitorDecayEvery samples.
func (m *Monitor) decay() {
	for i, v := range m.pixels {
		if v != 0 {
			m.pixels[i] = byte(int(v) * 7 / 8)
		}
	}
}

// Plot maps one (x, y) sample, scaled by the decoder's tracked
// reference level, into the raster and lights the corresponding pixel
// full white. refLevel must be positive.
func (m *Monitor) Plot(x, y int, refLevel int) {
	m.counter++
	if m.counter%MonitorDecayEvery == 0 {
		m.decay()
	}
	if refLevel <= 0 {
		return
	}

	size := m.size
	px := size/2 + x*size/refLevel/8
	py := size/2 + y*size/refLevel/8

	if px < 0 || px >= size || py < 0 || py >= size {
		return
	}
	m.pixels[py*size+px] = 0xff
}
