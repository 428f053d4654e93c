package timecoder

import (
	"fmt"
	"sync"
)

// Flags are the per-definition behaviour switches the original
// implementation packs into a single bitfield.
type Flags uint8

const (
	// FlagPhase means the tone phase difference is 270 degrees rather
	// than the usual 90; direction inference is inverted.
	FlagPhase Flags = 1 << iota
	// FlagPrimary means the left channel (not right) is primary.
	FlagPrimary
	// FlagPolarity means bit values are read in negative polarity.
	FlagPolarity
	// FlagMK2 marks a 110-bit Traktor MK2 definition, routing it
	// through the MK2 decode path instead of the legacy one.
	FlagMK2
)

// Has reports whether f includes all bits of want.
func (f Flags) Has(want Flags) bool { return f&want == want }

// Definition is the static, immutable metadata for one timecode
// family: legacy (20/23-bit, flat LFSR on a square wave pair) or MK2
// (110-bit, phase/offset modulated). Grounded on timecoder.c's
// `struct timecode_def` and its `timecodes[]` table.
type Definition struct {
	Name       string
	Desc       string
	Resolution uint // Hz of the underlying tone
	Bits       uint // 20, 23, or 110
	Flags      Flags

	Seed, Taps         uint32 // legacy LFSR parameters
	SeedMK2, TapsMK2   U128   // MK2 LFSR parameters

	Length uint32 // number of LFSR cycles in the full code
	Safe   uint32 // usable prefix length

	once sync.Once
	lut    *LUT
	lutMK2 *LUTMK2
	ready  bool
	buildErr error
}

// IsMK2 reports whether this definition uses the 110-bit MK2 path.
func (d *Definition) IsMK2() bool { return d.Flags.Has(FlagMK2) }

// Ready reports whether the lookup table has been built (or loaded).
func (d *Definition) Ready() bool { return d.ready }

// definitions is the compiled-in registry of timecode families,
// transcribed from timecoder.c's `timecodes[]`. Values are taken
// verbatim from the original source; see
// _examples/original_source/lib/xwax/timecoder.c.
var definitions = []*Definition{
	{
		Name: "serato_2a", Desc: "Serato 2nd Ed., side A",
		Resolution: 1000, Bits: 20,
		Seed: 0x59017, Taps: 0x361e4,
		Length: 712000, Safe: 625000,
	},
	{
		Name: "serato_2b", Desc: "Serato 2nd Ed., side B",
		Resolution: 1000, Bits: 20,
		Seed: 0x8f3c6, Taps: 0x4f0d8,
		Length: 922000, Safe: 908000,
	},
	{
		Name: "serato_cd", Desc: "Serato CD",
		Resolution: 1000, Bits: 20,
		Seed: 0xd8b40, Taps: 0x34d54,
		Length: 950000, Safe: 890000,
	},
	{
		Name: "traktor_a", Desc: "Traktor Scratch, side A",
		Resolution: 2000, Bits: 23,
		Flags: FlagPrimary | FlagPolarity | FlagPhase,
		Seed:  0x134503, Taps: 0x041040,
		Length: 1500000, Safe: 605000,
	},
	{
		Name: "traktor_b", Desc: "Traktor Scratch, side B",
		Resolution: 2000, Bits: 23,
		Flags: FlagPrimary | FlagPolarity | FlagPhase,
		Seed:  0x32066c, Taps: 0x041040,
		Length: 2110000, Safe: 907000,
	},
	{
		Name: "traktor_mk2_a", Desc: "Traktor Scratch MK2, side A",
		Resolution: 2500, Bits: 110, Flags: FlagMK2,
		SeedMK2: U128{Hi: 0xc6007c63e, Lo: 0x3fc00c60f8c1f00},
		TapsMK2: U128{Hi: 0x400000000040, Lo: 0x0000010800000001},
		Length:  1820000, Safe: 1800000,
	},
	{
		Name: "traktor_mk2_b", Desc: "Traktor Scratch MK2, side B",
		Resolution: 2500, Bits: 110, Flags: FlagMK2,
		SeedMK2: U128{Hi: 0x1ff9f00003, Lo: 0xe73ff00f9fe0c7c1},
		TapsMK2: U128{Hi: 0x400000000040, Lo: 0x0000010800000001},
		Length:  2570000, Safe: 2550000,
	},
	{
		Name: "traktor_mk2_cd", Desc: "Traktor Scratch MK2, CD",
		Resolution: 3000, Bits: 110, Flags: FlagMK2,
		SeedMK2: U128{Hi: 0x7ce73, Lo: 0xe0e0fff1fc1cf8c1},
		TapsMK2: U128{Hi: 0x400000000000, Lo: 0x1000010800000001},
		Length:  4500000, Safe: 4495000,
	},
	{
		Name: "mixvibes_v2", Desc: "MixVibes V2",
		Resolution: 1300, Bits: 20, Flags: FlagPhase,
		Seed: 0x22c90, Taps: 0x00008,
		Length: 950000, Safe: 655000,
	},
	{
		Name: "mixvibes_7inch", Desc: `MixVibes 7"`,
		Resolution: 1300, Bits: 20, Flags: FlagPhase,
		Seed: 0x22c90, Taps: 0x00008,
		Length: 312000, Safe: 238000,
	},
	{
		Name: "pioneer_a", Desc: "Pioneer RekordBox DVS Control Vinyl, side A",
		Resolution: 1000, Bits: 20, Flags: FlagPolarity,
		Seed: 0x78370, Taps: 0x7933a,
		Length: 635000, Safe: 614000,
	},
	{
		Name: "pioneer_b", Desc: "Pioneer RekordBox DVS Control Vinyl, side B",
		Resolution: 1000, Bits: 20, Flags: FlagPolarity,
		Seed: 0xf7012, Taps: 0x2ef1c,
		Length: 918500, Safe: 913000,
	},
}

var registryMu sync.RWMutex

// Fwd advances this definition's LFSR one step forward from current.
func (d *Definition) Fwd(current uint32) uint32 {
	return fwd32(current, d.Taps, d.Bits)
}

// Rev advances this definition's LFSR one step backward from current.
func (d *Definition) Rev(current uint32) uint32 {
	return rev32(current, d.Taps, d.Bits)
}

// FwdMK2 advances this MK2 definition's LFSR one step forward.
func (d *Definition) FwdMK2(current U128) U128 {
	return fwd128(current, d.TapsMK2, d.Bits)
}

// RevMK2 advances this MK2 definition's LFSR one step backward.
func (d *Definition) RevMK2(current U128) U128 {
	return rev128(current, d.TapsMK2, d.Bits)
}

// buildLookup walks `Length` forward LFSR steps from the seed,
// filling a fresh LUT and asserting the structural invariants from
// spec §8 (non-wrapping orbit, fwd/rev involution) along the way.
// Grounded on timecoder.c's build_lookup.
func (d *Definition) buildLookup() error {
	logger.Info("building LUT", "name", d.Name, "bits", d.Bits, "resolution", d.Resolution)

	lut := NewLUT(int(d.Length))
	current := d.Seed
	for n := uint32(0); n < d.Length; n++ {
		if _, found := lut.Lookup(current); found {
			return fmt.Errorf("%w: %s: LFSR wrapped after %d of %d steps", ErrAllocation, d.Name, n, d.Length)
		}
		lut.Push(current)

		next := d.Fwd(current)
		if d.Rev(next) != current {
			panic(fmt.Sprintf("timecoder: %s: fwd/rev are not inverses at step %d", d.Name, n))
		}
		current = next
	}

	d.lut = lut
	return nil
}

// buildLookupMK2 is the 110-bit counterpart of buildLookup, grounded
// on timecoder.c's build_lookup_mk2.
func (d *Definition) buildLookupMK2() error {
	logger.Info("building MK2 LUT", "name", d.Name, "bits", d.Bits, "resolution", d.Resolution)

	lut := NewLUTMK2(int(d.Length))
	current := d.SeedMK2
	for n := uint32(0); n < d.Length; n++ {
		if _, found := lut.Lookup(current); found {
			return fmt.Errorf("%w: %s: LFSR wrapped after %d of %d steps", ErrAllocation, d.Name, n, d.Length)
		}
		lut.Push(current)

		next := d.FwdMK2(current)
		if !d.RevMK2(next).Eq(current) {
			panic(fmt.Sprintf("timecoder: %s: fwd/rev are not inverses at step %d", d.Name, n))
		}
		current = next
	}

	d.lutMK2 = lut
	return nil
}

// ensureBuilt builds (and for MK2, loads-from-disk-or-builds-then-
// stores) the lookup table exactly once, regardless of how many
// goroutines call FindDefinition concurrently. This is the
// "initialize-once latch" spec §5/§9 asks the registry to own.
func (d *Definition) ensureBuilt(persist Persister) error {
	d.once.Do(func() {
		if d.IsMK2() {
			if persist != nil {
				if lut, err := persist.Load(d); err == nil {
					d.lutMK2 = lut
					d.ready = true
					return
				}
				logger.Warn("LUT not found on disk, rebuilding", "name", d.Name)
			}
			if err := d.buildLookupMK2(); err != nil {
				d.buildErr = err
				return
			}
			if persist != nil {
				if err := persist.Store(d, d.lutMK2); err != nil {
					logger.Warn("could not store LUT to disk, continuing in-memory", "name", d.Name, "error", err)
				}
			}
			d.ready = true
			return
		}

		if err := d.buildLookup(); err != nil {
			d.buildErr = err
			return
		}
		d.ready = true
	})
	return d.buildErr
}

// Persister abstracts MK2 LUT disk persistence so the registry can be
// exercised without touching a filesystem (e.g. in tests).
type Persister interface {
	Load(def *Definition) (*LUTMK2, error)
	Store(def *Definition, lut *LUTMK2) error
}

// FindDefinition looks up a timecode definition by name and, on first
// use, builds (or for MK2, loads-or-builds-then-stores) its lookup
// table. persist may be nil to always build in memory.
func FindDefinition(name string, persist Persister) (*Definition, error) {
	registryMu.RLock()
	var def *Definition
	for _, d := range definitions {
		if d.Name == name {
			def = d
			break
		}
	}
	registryMu.RUnlock()

	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDefinition, name)
	}

	if err := def.ensureBuilt(persist); err != nil {
		return nil, err
	}
	return def, nil
}

// Definitions returns every compiled-in timecode definition, in
// registry order, without triggering a build.
func Definitions() []*Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]*Definition, len(definitions))
	copy(out, definitions)
	return out
}

// FreeLookup releases every definition's built lookup table and marks
// it not ready. Intended for process teardown: a definition's
// sync.Once is not reset, so a later FindDefinition does not rebuild
// the table, and NewDecoder rejects the definition — matching the
// original's process-lifetime LUTs.
func FreeLookup() {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, d := range definitions {
		d.lut = nil
		d.lutMK2 = nil
		d.ready = false
	}
}

// nextDefinition returns the next definition after cur, with ready
// lookup tables, wrapping around the registry. Grounded on
// timecoder.c's next_definition.
func nextDefinition(cur *Definition) *Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	idx := 0
	for i, d := range definitions {
		if d == cur {
			idx = i
			break
		}
	}
	for i := 1; i <= len(definitions); i++ {
		d := definitions[(idx+i)%len(definitions)]
		if d.ready {
			return d
		}
	}
	return cur
}
