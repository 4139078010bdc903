package gc

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// keepBinaryPrefixes are toolchain binaries never removed from the
// cargo bin directory, whatever their age.
var keepBinaryPrefixes = []string{
	"cargo",
	"cargo-nextest",
	"cargo-make",
	"cargo-binstall",
	"rustc",
	"rustdoc",
	"rustup",
	"rustfmt",
	"rust-analyzer",
	"rust-gdb",
	"rust-gdbgui",
	"rust-lldb",
	"rls",
	"clippy",
	"sccache",
	"wild",
	"cargo-hold", // keep ourselves
}

// cargoHomeDirAge is the age threshold for the heavyweight cargo-home
// caches (extracted sources, git checkouts, databases, binaries).
// These rebuild themselves transparently, so a month is generous.
const cargoHomeDirAge = 30 * 24 * time.Hour

// CargoHome resolves the cargo home directory: $CARGO_HOME or ~/.cargo.
func CargoHome() string {
	if home := os.Getenv("CARGO_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(userHome, ".cargo")
}

// planCargoHome collects the cargo-home removals: aged registry cache
// files, aged source/git-cache directories, stale uninstalled
// binaries, and the credentials file (a CI cache must not retain it).
func planCargoHome(cargoHome string, ageThresholdDays uint32, preserveBinaries []string, now time.Time) []Removal {
	if cargoHome == "" {
		return nil
	}

	var removals []Removal

	if creds := filepath.Join(cargoHome, "credentials.toml"); fileExists(creds) {
		info, err := os.Lstat(creds)
		var size uint64
		if err == nil {
			size = uint64(info.Size()) //nolint:gosec // Stat sizes are non-negative
		}
		removals = append(removals, Removal{Path: creds, Size: size})
	}

	registryCutoff := now.Add(-time.Duration(ageThresholdDays) * 24 * time.Hour)
	registryCache := filepath.Join(cargoHome, "registry", "cache")
	_ = filepath.WalkDir(registryCache, func(path string, d os.DirEntry, err error) error { //nolint:errcheck
		if err != nil || d.IsDir() {
			return nil //nolint:nilerr
		}
		if info, err := d.Info(); err == nil && info.ModTime().Before(registryCutoff) {
			removals = append(removals, Removal{Path: path, Size: uint64(info.Size())}) //nolint:gosec
		}
		return nil
	})

	dirCutoff := now.Add(-cargoHomeDirAge)
	for _, sub := range []string{
		filepath.Join("registry", "src"),
		filepath.Join("git", "checkouts"),
		filepath.Join("git", "db"),
	} {
		removals = append(removals, agedEntries(filepath.Join(cargoHome, sub), dirCutoff)...)
	}

	removals = append(removals, planCargoBin(filepath.Join(cargoHome, "bin"), preserveBinaries, dirCutoff)...)

	return removals
}

// planCargoBin selects stale binaries from the cargo bin directory,
// sparing toolchain prefixes and the user's preserve list.
func planCargoBin(binDir string, preserveBinaries []string, cutoff time.Time) []Removal {
	entries, err := os.ReadDir(binDir)
	if err != nil {
		return nil
	}

	var removals []Removal
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if hasAnyPrefix(name, keepBinaryPrefixes) || hasAnyPrefix(name, preserveBinaries) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		removals = append(removals, Removal{
			Path: filepath.Join(binDir, name),
			Size: uint64(info.Size()), //nolint:gosec // Stat sizes are non-negative
		})
	}
	return removals
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
