package timecoder

import (
	"encoding/binary"
	"unsafe"
)

// nativeEndian is the host byte order, needed only to reproduce the
// original xwax LUT file's host-endian, header-less layout when
// DiskPersister.AllowLegacyFormat is set.
var nativeEndian binary.ByteOrder

func init() {
	var probe uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&probe))
	if b[0] == 1 {
		nativeEndian = binary.LittleEndian
	} else {
		nativeEndian = binary.BigEndian
	}
}
