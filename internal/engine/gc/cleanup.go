package gc

import (
	"os"
	"path/filepath"
	"time"
)

// bookkeepingNames are build-tool files that are never eviction
// candidates regardless of where they sit under the target directory.
var bookkeepingNames = map[string]bool{
	"Cargo.toml":       true,
	"Cargo.lock":       true,
	"CACHEDIR.TAG":     true,
	".rustc_info.json": true,
}

// findProfileDirs locates Cargo profile directories (debug, release,
// per-triple variants) under the target directory. A profile directory
// is one containing any of build/, deps/, .fingerprint/.
func findProfileDirs(targetDir string) []string {
	var dirs []string

	info, err := os.Stat(targetDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	if isProfileDir(targetDir) {
		return []string{targetDir}
	}

	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() || bookkeepingNames[entry.Name()] {
			continue
		}
		path := filepath.Join(targetDir, entry.Name())
		if isProfileDir(path) {
			dirs = append(dirs, path)
		} else {
			// Target-triple directories nest profiles one level down.
			dirs = append(dirs, findProfileDirs(path)...)
		}
	}
	return dirs
}

func isProfileDir(path string) bool {
	for _, marker := range []string{"build", "deps", ".fingerprint"} {
		if info, err := os.Stat(filepath.Join(path, marker)); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// profileBinaries returns the executable artifacts directly under a
// profile directory: final build products that survive every policy.
func profileBinaries(profileDir string) []string {
	entries, err := os.ReadDir(profileDir)
	if err != nil {
		return nil
	}

	var binaries []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if isExecutable(filepath.Join(profileDir, entry.Name()), info) {
			binaries = append(binaries, filepath.Join(profileDir, entry.Name()))
		}
	}
	return binaries
}

// agedEntries lists the top-level entries of dir whose mtime is older
// than cutoff, with the bytes each removal would free.
func agedEntries(dir string, cutoff time.Time) []Removal {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var removals []Removal
	for _, entry := range entries {
		if bookkeepingNames[entry.Name()] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		size := uint64(info.Size()) //nolint:gosec // Stat sizes are non-negative
		if entry.IsDir() {
			size = dirSize(path)
		}
		removals = append(removals, Removal{Path: path, Size: size, IsDir: entry.IsDir()})
	}
	return removals
}

// DirectorySize sums the file sizes under path. The heave command
// measures the target directory with it before a run to feed the
// adaptive-cap metrics; the final size is derived from the bytes freed.
func DirectorySize(path string) uint64 {
	return dirSize(path)
}

// dirSize sums the file sizes under path. Unreadable entries count as
// zero; sizing is advisory, removal is what matters.
func dirSize(path string) uint64 {
	var total uint64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error { //nolint:errcheck
		if err != nil || d.IsDir() {
			return nil //nolint:nilerr
		}
		if info, err := d.Info(); err == nil {
			total += uint64(info.Size()) //nolint:gosec // Stat sizes are non-negative
		}
		return nil
	})
	return total
}
