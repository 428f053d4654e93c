package timecoder

import "errors"

// Sentinel errors returned by this package. Callers should use
// errors.Is rather than comparing directly, since wrapped forms carry
// additional context via fmt.Errorf("%w", ...).
var (
	// ErrUnknownDefinition is returned when a definition name is not
	// present in the registry.
	ErrUnknownDefinition = errors.New("timecoder: unknown timecode definition")

	// ErrAllocation is returned when a lookup table or monitor buffer
	// could not be built, e.g. on OOM.
	ErrAllocation = errors.New("timecoder: allocation failed")

	// ErrNotLocked is returned by GetPosition when the validity
	// counter has not yet exceeded the lock threshold.
	ErrNotLocked = errors.New("timecoder: not locked")

	// ErrLookupMiss is returned when a bitstream value cannot be found
	// in the active definition's lookup table.
	ErrLookupMiss = errors.New("timecoder: bitstream not found in lookup table")

	// ErrCorruptLUT is returned by persistence Load when a stored LUT
	// file does not match the expected size or fails a required read.
	ErrCorruptLUT = errors.New("timecoder: corrupt or truncated LUT file")

	// ErrNoHome is returned when persistence needs $HOME and it is
	// unset.
	ErrNoHome = errors.New("timecoder: HOME is not set")

	// ErrMonitorNotInitialized is returned by MonitorClear when no
	// monitor buffer was ever created.
	ErrMonitorNotInitialized = errors.New("timecoder: monitor not initialized")

	// ErrNilDefinition is returned when a nil *Definition is passed
	// where one is required.
	ErrNilDefinition = errors.New("timecoder: nil definition")
)
