//go:build unix

package gc

import (
	"os"
	"path/filepath"
)

// isExecutable reports whether info describes a final binary: any
// execute bit set and no file extension (shared objects and scripts
// keep theirs).
func isExecutable(path string, info os.FileInfo) bool {
	return info.Mode().Perm()&0o111 != 0 && filepath.Ext(path) == ""
}
