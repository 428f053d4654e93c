package timecoder

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// truncateFile shrinks the file at path to exactly n bytes, used to
// simulate a corrupted/short-written LUT file.
func truncateFile(t *testing.T, path string, n int64) {
	t.Helper()
	require.NoError(t, os.Truncate(path, n))
}
