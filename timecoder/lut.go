package timecoder

// hashBits governs the size of the hash-head table: 2^hashBits
// buckets, each the head of a chain of slots sharing that hash.
// Grounded on original_source/lib/xwax/lut.c's HASH_BITS.
const hashBits = 16

// noSlot is the sentinel "empty" slot index, matching NO_SLOT
// ((slot_no_t)-1) in the C original.
const noSlot uint32 = ^uint32(0)

// hashLegacy returns the low hashBits bits of a legacy timecode
// value, the HASH() macro from lut.c.
func hashLegacy(v uint32) uint16 {
	return uint16(v & (1<<hashBits - 1))
}

// hashMK2 folds all 64 bits of Lo and the low 19 bits of Hi (Hi bits
// 19 and up do not affect it) down to a 16-bit hash. This must never
// change: MK2 LUTs are persisted to disk keyed
// by this hash, so altering the mix would invalidate every file on
// disk silently. Grounded verbatim on lut.c's HASH110.
func hashMK2(v U128) uint16 {
	hash := uint16(v.Lo ^ (v.Lo >> 16) ^ (v.Lo >> 32) ^ (v.Lo >> 48))
	hash ^= uint16(v.Hi ^ (v.Hi << 5) ^ (v.Hi >> 3))
	hash ^= (hash >> 7) ^ (hash << 9)
	return hash
}

// slot is one entry of a legacy LUT: the timecode value stored there,
// and the index of the next slot sharing its hash bucket (or noSlot).
type slot struct {
	value uint32
	next  uint32
}

// LUT is the hash-chained lookup table mapping a legacy LFSR value to
// the slot index it was pushed at — which is exactly the number of
// forward LFSR steps from the definition's seed, i.e. the absolute
// position on the record. Grounded on lut.c/lut.h's `struct lut`.
type LUT struct {
	slots  []slot
	bucket []uint32
	avail  uint32
}

// NewLUT allocates an empty LUT sized for nslots distinct values.
func NewLUT(nslots int) *LUT {
	l := &LUT{
		slots:  make([]slot, nslots),
		bucket: make([]uint32, 1<<hashBits),
	}
	for i := range l.bucket {
		l.bucket[i] = noSlot
	}
	return l
}

// Push records v at the next available slot and prepends it to its
// hash bucket's chain.
func (l *LUT) Push(v uint32) {
	n := l.avail
	l.avail++
	l.slots[n] = slot{value: v, next: l.bucket[hashLegacy(v)]}
	l.bucket[hashLegacy(v)] = n
}

// Lookup returns the slot index v was pushed at, or (0, false) if v
// was never pushed.
func (l *LUT) Lookup(v uint32) (uint32, bool) {
	h := hashLegacy(v)
	n := l.bucket[h]
	for n != noSlot {
		s := &l.slots[n]
		if s.value == v {
			return n, true
		}
		n = s.next
	}
	return 0, false
}

// Len reports how many slots have been filled so far.
func (l *LUT) Len() int { return int(l.avail) }

// Cap reports the table's fixed slot capacity.
func (l *LUT) Cap() int { return len(l.slots) }

// slotMK2 is the MK2 counterpart of slot, keyed by a full U128 value.
// persistence.go writes it field by field (Hi, Lo, next: 20
// little-endian bytes) and its legacy reader decodes the original
// padded 24-byte C record; neither depends on this struct's memory
// layout.
type slotMK2 struct {
	value U128
	next  uint32
}

// LUTMK2 is the 110-bit-keyed counterpart of LUT, used by the Traktor
// MK2 timecode definitions. Grounded on lut.c/lut.h's `struct
// lut_mk2`.
type LUTMK2 struct {
	slots  []slotMK2
	bucket []uint32
	avail  uint32
}

// NewLUTMK2 allocates an empty MK2 LUT sized for nslots distinct
// values.
func NewLUTMK2(nslots int) *LUTMK2 {
	l := &LUTMK2{
		slots:  make([]slotMK2, nslots),
		bucket: make([]uint32, 1<<hashBits),
	}
	for i := range l.bucket {
		l.bucket[i] = noSlot
	}
	return l
}

// Push records v at the next available slot and prepends it to its
// hash bucket's chain.
func (l *LUTMK2) Push(v U128) {
	n := l.avail
	l.avail++
	h := hashMK2(v)
	l.slots[n] = slotMK2{value: v, next: l.bucket[h]}
	l.bucket[h] = n
}

// Lookup returns the slot index v was pushed at, or (0, false).
func (l *LUTMK2) Lookup(v U128) (uint32, bool) {
	h := hashMK2(v)
	n := l.bucket[h]
	for n != noSlot {
		s := &l.slots[n]
		if s.value.Eq(v) {
			return n, true
		}
		n = s.next
	}
	return 0, false
}

// Len reports how many slots have been filled so far.
func (l *LUTMK2) Len() int { return int(l.avail) }

// Cap reports the table's fixed slot capacity.
func (l *LUTMK2) Cap() int { return len(l.slots) }
