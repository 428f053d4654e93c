//go:build windows

package timecoder

import "os"

// flockExclusive is a no-op on Windows: advisory flock has no direct
// equivalent worth pulling in a dependency for here. No lock is taken,
// so two processes storing the same LUT at once are not serialized.
func flockExclusive(f *os.File) (unlock func(), err error) {
	return func() {}, nil
}
