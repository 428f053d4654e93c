package timecoder

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/strftime"
)

// magic identifies this package's versioned MK2 LUT file format, so a
// reader never mistakes it for the original xwax header-less,
// host-endian layout. Per the redesign note in spec §9.
var magic = [4]byte{'T', 'C', 'L', 'U'}

// formatVersion is bumped whenever the on-disk layout changes.
const formatVersion = 1

// DiskPersister implements Persister by storing/loading MK2 lookup
// tables under $HOME/.mixxx/lut/<name>.lut, per spec §4.13/§6.
type DiskPersister struct {
	// AllowLegacyFormat enables falling back to reading the original
	// xwax header-less, host-endian format when the file does not
	// start with the versioned header. Off by default, per the
	// redesign note's "tolerate the legacy format only behind an
	// opt-in".
	AllowLegacyFormat bool
}

func lutDir() (string, error) {
	home := os.Getenv("HOME")
	if home == "" {
		return "", ErrNoHome
	}
	return filepath.Join(home, ".mixxx", "lut"), nil
}

func lutPath(def *Definition) (string, error) {
	dir, err := lutDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, def.Name+".lut"), nil
}

// Store persists lut to $HOME/.mixxx/lut/<name>.lut using the
// versioned format: a 4-byte magic, a version byte, Length slot
// records (128-bit timecode + 32-bit next, little-endian), 2^16
// bucket heads, then avail. If a file already exists at that path, it
// is renamed aside first using a timestamped suffix
// (<name>.lut.<YYYYmmdd-HHMMSS>.bak) rather than being silently
// clobbered.
func (p *DiskPersister) Store(def *Definition, lut *LUTMK2) error {
	if def == nil {
		return ErrNilDefinition
	}

	dir, err := lutDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("timecoder: mkdir %s: %w", dir, err)
	}

	path, err := lutPath(def)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		if bakErr := backupExisting(path); bakErr != nil {
			logger.Warn("could not back up existing LUT before overwrite", "path", path, "error", bakErr)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("timecoder: create %s: %w", path, err)
	}
	defer f.Close()

	unlock, lockErr := flockExclusive(f)
	if lockErr != nil {
		logger.Warn("could not lock LUT file for writing", "path", path, "error", lockErr)
	} else {
		defer unlock()
	}

	w := bufio.NewWriter(f)
	if err := writeLUTMK2(w, lut); err != nil {
		return fmt.Errorf("timecoder: write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("timecoder: flush %s: %w", path, err)
	}

	logger.Info("stored MK2 LUT", "name", def.Name, "path", path, "slots", lut.Len())
	return nil
}

// backupExisting renames an existing LUT file aside before it is
// overwritten, timestamping the name with strftime so repeated
// rebuilds don't stomp on each other's backups.
func backupExisting(path string) error {
	stamp, err := strftime.Format("%Y%m%d-%H%M%S", time.Now())
	if err != nil {
		return err
	}
	return os.Rename(path, path+"."+stamp+".bak")
}

// Load reads a versioned LUT file back into memory. A missing file is
// an error. If the file is shorter than the header or carries the
// wrong magic/version, and AllowLegacyFormat is set, it falls back to
// the header-less legacy reader.
func (p *DiskPersister) Load(def *Definition) (*LUTMK2, error) {
	if def == nil {
		return nil, ErrNilDefinition
	}

	path, err := lutPath(def)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("timecoder: %s: %w", def.Name, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var hdr [5]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if p.AllowLegacyFormat {
			f.Seek(0, io.SeekStart)
			return loadLegacyMK2(f, def)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptLUT, def.Name, err)
	}

	if [4]byte{hdr[0], hdr[1], hdr[2], hdr[3]} != magic || hdr[4] != formatVersion {
		if p.AllowLegacyFormat {
			f.Seek(0, io.SeekStart)
			return loadLegacyMK2(f, def)
		}
		return nil, fmt.Errorf("%w: %s: unrecognized header", ErrCorruptLUT, def.Name)
	}

	lut, err := readLUTMK2(r, int(def.Length))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptLUT, def.Name, err)
	}

	logger.Info("loaded MK2 LUT", "name", def.Name, "path", path, "slots", lut.Len())
	return lut, nil
}

func writeLUTMK2(w io.Writer, lut *LUTMK2) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{formatVersion}); err != nil {
		return err
	}

	var buf [20]byte
	for _, s := range lut.slots {
		binary.LittleEndian.PutUint64(buf[0:8], s.value.Hi)
		binary.LittleEndian.PutUint64(buf[8:16], s.value.Lo)
		binary.LittleEndian.PutUint32(buf[16:20], s.next)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}

	var hbuf [4]byte
	for _, h := range lut.bucket {
		binary.LittleEndian.PutUint32(hbuf[:], h)
		if _, err := w.Write(hbuf[:]); err != nil {
			return err
		}
	}

	binary.LittleEndian.PutUint32(hbuf[:], lut.avail)
	_, err := w.Write(hbuf[:])
	return err
}

func readLUTMK2(r io.Reader, length int) (*LUTMK2, error) {
	lut := NewLUTMK2(length)

	var buf [20]byte
	for i := 0; i < length; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		lut.slots[i] = slotMK2{
			value: U128{
				Hi: binary.LittleEndian.Uint64(buf[0:8]),
				Lo: binary.LittleEndian.Uint64(buf[8:16]),
			},
			next: binary.LittleEndian.Uint32(buf[16:20]),
		}
	}

	var hbuf [4]byte
	for i := range lut.bucket {
		if _, err := io.ReadFull(r, hbuf[:]); err != nil {
			return nil, fmt.Errorf("bucket %d: %w", i, err)
		}
		lut.bucket[i] = binary.LittleEndian.Uint32(hbuf[:])
	}

	// The trailing `avail` read is required, not best-effort: the
	// original lut_load_mk2 had a misplaced `goto out` that made this
	// final fread error-only, which meant a truncated-after-buckets
	// file could silently report success with avail left at zero.
	// Per the Open Questions note in spec §9, this read's success is
	// now mandatory.
	if _, err := io.ReadFull(r, hbuf[:]); err != nil {
		return nil, fmt.Errorf("avail: %w", err)
	}
	lut.avail = binary.LittleEndian.Uint32(hbuf[:])

	if lut.avail != uint32(length) {
		return nil, fmt.Errorf("avail mismatch: got %d want %d", lut.avail, length)
	}

	return lut, nil
}

// loadLegacyMK2 reads the original xwax on-disk layout: no header,
// host-endian, `length` slot_mk2 records then 2^16 bucket heads then
// avail. Only reachable when AllowLegacyFormat is set.
func loadLegacyMK2(f *os.File, def *Definition) (*LUTMK2, error) {
	logger.Warn("reading legacy header-less LUT format", "name", def.Name)

	r := bufio.NewReader(f)
	lut := NewLUTMK2(int(def.Length))

	// The C struct slot_mk2 is {u128 timecode (two uint64, high then
	// low); slot_no_t next (uint32)} with natural alignment padding
	// the whole record to 24 bytes on a 64-bit host.
	var buf [24]byte
	for i := 0; i < int(def.Length); i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: slot %d: %v", ErrCorruptLUT, i, err)
		}
		lut.slots[i] = slotMK2{
			value: U128{
				Hi: nativeEndian.Uint64(buf[0:8]),
				Lo: nativeEndian.Uint64(buf[8:16]),
			},
			next: nativeEndian.Uint32(buf[16:20]),
		}
	}

	var hbuf [4]byte
	for i := range lut.bucket {
		if _, err := io.ReadFull(r, hbuf[:]); err != nil {
			return nil, fmt.Errorf("%w: bucket %d: %v", ErrCorruptLUT, i, err)
		}
		lut.bucket[i] = nativeEndian.Uint32(hbuf[:])
	}

	if _, err := io.ReadFull(r, hbuf[:]); err != nil {
		return nil, fmt.Errorf("%w: avail: %v", ErrCorruptLUT, err)
	}
	lut.avail = nativeEndian.Uint32(hbuf[:])

	return lut, nil
}
