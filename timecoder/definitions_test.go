package timecoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPersister is an in-memory Persister double, so registry tests
// never touch a filesystem.
type memPersister struct {
	stored map[string]*LUTMK2
}

func newMemPersister() *memPersister {
	return &memPersister{stored: make(map[string]*LUTMK2)}
}

func (m *memPersister) Load(def *Definition) (*LUTMK2, error) {
	lut, ok := m.stored[def.Name]
	if !ok {
		return nil, ErrLookupMiss
	}
	return lut, nil
}

func (m *memPersister) Store(def *Definition, lut *LUTMK2) error {
	m.stored[def.Name] = lut
	return nil
}

func TestFindDefinitionUnknownName(t *testing.T) {
	_, err := FindDefinition("does-not-exist", nil)
	assert.ErrorIs(t, err, ErrUnknownDefinition)
}

func TestFindDefinitionBuildsLegacyLUTOnce(t *testing.T) {
	def, err := FindDefinition("mixvibes_7inch", nil)
	require.NoError(t, err)
	assert.True(t, def.Ready())
	assert.Equal(t, int(def.Length), def.lut.Len())

	same, err := FindDefinition("mixvibes_7inch", nil)
	require.NoError(t, err)
	assert.Same(t, def, same, "the registry should hand back the same *Definition on repeat lookups")
}

func TestFlagsHas(t *testing.T) {
	f := FlagPrimary | FlagPolarity
	assert.True(t, f.Has(FlagPrimary))
	assert.True(t, f.Has(FlagPolarity))
	assert.False(t, f.Has(FlagPhase))
	assert.True(t, f.Has(FlagPrimary|FlagPolarity))
}

func TestDefinitionFwdRevInvolution(t *testing.T) {
	for _, d := range Definitions() {
		if d.IsMK2() {
			continue
		}
		current := d.Seed
		for i := 0; i < 500; i++ {
			next := d.Fwd(current)
			assert.Equal(t, current, d.Rev(next), "fwd/rev must be inverses for %s", d.Name)
			current = next
		}
	}
}

func TestEnsureBuiltMK2LoadsFromPersisterWithoutRebuilding(t *testing.T) {
	// A small synthetic MK2-shaped definition, kept out of the global
	// registry, so this test builds in milliseconds instead of
	// walking a real multi-million-cycle code.
	// Reuses serato_2a's real seed/taps (its registry Length is 712000
	// steps, which buildLookup checks for wrapping whenever that code
	// is built), so a 200-step prefix is certain not to collide.
	def := &Definition{
		Name: "test_mk2_small", Bits: 20, Flags: FlagMK2,
		SeedMK2: NewU128(0, 0x59017),
		TapsMK2: NewU128(0, 0x361e4),
		Length:  200, Safe: 190,
	}

	persist := newMemPersister()
	require.NoError(t, def.ensureBuilt(persist))
	require.True(t, def.ready)
	firstLUT := def.lutMK2

	fresh := &Definition{
		Name: def.Name, Bits: def.Bits, Flags: def.Flags,
		SeedMK2: def.SeedMK2, TapsMK2: def.TapsMK2,
		Length: def.Length, Safe: def.Safe,
	}
	require.NoError(t, fresh.ensureBuilt(persist))
	assert.Same(t, firstLUT, fresh.lutMK2, "loading from the persister should avoid rebuilding")
}

func TestNextDefinitionWrapsAndSkipsUnready(t *testing.T) {
	defs := Definitions()
	require.NotEmpty(t, defs)

	first := defs[0]
	first.ready = true
	got := nextDefinition(first)
	assert.NotNil(t, got)
	assert.True(t, got.Ready(), "unready definitions must be skipped")
	assert.Same(t, first, nextDefinition(defs[len(defs)-1]), "the last definition should wrap around to the first")
}
