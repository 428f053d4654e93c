package timecoder

import (
	"os"

	"github.com/charmbracelet/log"
)

// logger is the package-wide structured logger. It replaces the
// fprintf(stderr, ...) progress reporting of the original xwax C
// implementation ("Building LUT for...", "Storing LUT at...") with
// leveled, structured logging.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "timecoder",
})

// SetLogger overrides the package-wide logger, so a host application
// can route registry/persistence diagnostics into its own log
// pipeline instead of stderr.
func SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	logger = l
}
