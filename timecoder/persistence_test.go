package timecoder

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallMK2Def(name string) *Definition {
	return &Definition{
		Name: name, Bits: 20, Flags: FlagMK2,
		SeedMK2: NewU128(0, 0x59017),
		TapsMK2: NewU128(0, 0x361e4),
		Length:  200, Safe: 190,
	}
}

func TestDiskPersisterStoreThenLoadRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	def := smallMK2Def("test_roundtrip")
	require.NoError(t, def.buildLookupMK2())
	original := def.lutMK2

	p := &DiskPersister{}
	require.NoError(t, p.Store(def, original))

	loaded, err := p.Load(def)
	require.NoError(t, err)

	assert.Equal(t, original.Len(), loaded.Len())
	for i := 0; i < original.Len(); i++ {
		assert.True(t, original.slots[i].value.Eq(loaded.slots[i].value), "slot %d value mismatch", i)
		assert.Equal(t, original.slots[i].next, loaded.slots[i].next, "slot %d next mismatch", i)
	}
	assert.Equal(t, original.bucket, loaded.bucket)
	assert.Equal(t, original.avail, loaded.avail)
}

func TestDiskPersisterBacksUpExistingFileBeforeOverwrite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	def := smallMK2Def("test_backup")
	require.NoError(t, def.buildLookupMK2())

	p := &DiskPersister{}
	require.NoError(t, p.Store(def, def.lutMK2))
	require.NoError(t, p.Store(def, def.lutMK2))

	matches, err := filepath.Glob(filepath.Join(dir, ".mixxx", "lut", "test_backup.lut*.bak"))
	require.NoError(t, err)
	assert.NotEmpty(t, matches, "a second Store over an existing file should leave a .bak behind")
}

func TestDiskPersisterLoadMissingFileErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	def := smallMK2Def("test_missing")
	p := &DiskPersister{}
	_, err := p.Load(def)
	assert.Error(t, err)
}

func TestDiskPersisterRejectsTruncatedFileWithoutLegacyFallback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	def := smallMK2Def("test_truncated")
	require.NoError(t, def.buildLookupMK2())

	p := &DiskPersister{}
	require.NoError(t, p.Store(def, def.lutMK2))

	path := filepath.Join(dir, ".mixxx", "lut", "test_truncated.lut")
	truncateFile(t, path, 10)

	_, err := p.Load(def)
	assert.ErrorIs(t, err, ErrCorruptLUT)
}

func TestDiskPersisterLoadNoHomeErrors(t *testing.T) {
	t.Setenv("HOME", "")

	def := smallMK2Def("test_nohome")
	p := &DiskPersister{}
	_, err := p.Load(def)
	assert.ErrorIs(t, err, ErrNoHome)
}
