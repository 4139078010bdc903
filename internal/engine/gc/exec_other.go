//go:build !unix

package gc

import (
	"os"
	"strings"
)

// isExecutable reports whether the entry is a final binary. Windows
// has no execute bit; the .exe extension is the marker.
func isExecutable(path string, _ os.FileInfo) bool {
	return strings.HasSuffix(strings.ToLower(path), ".exe")
}
