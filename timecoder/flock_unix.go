//go:build !windows

package timecoder

import (
	"os"

	"golang.org/x/sys/unix"
)

// flockExclusive takes an advisory exclusive lock on f, returning a
// function that releases it. Two processes racing to rebuild the same
// definition's LUT would otherwise interleave writes into one file.
func flockExclusive(f *os.File) (unlock func(), err error) {
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		return nil, err
	}
	return func() {
		_ = unix.Flock(fd, unix.LOCK_UN)
	}, nil
}
