// Package gc implements the cache-aware garbage collector behind heave.
package gc

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.trai.ch/cargo-hold/internal/core/domain"
	"go.trai.ch/cargo-hold/internal/core/ports"
	"go.trai.ch/zerr"
)

// crateUnitRE extracts the crate name and the 16-hex-digit metadata
// hash Cargo embeds in every artifact filename. The pair identifies
// one crate unit: all files sharing it must be evicted together, or a
// stale fingerprint would vouch for outputs that are gone.
var crateUnitRE = regexp.MustCompile(`^(.+)-([0-9a-f]{16})(?:\.|$)`)

// Artifact is a single file or directory belonging to a crate unit.
type Artifact struct {
	Path  string
	Size  uint64
	IsDir bool
}

// CrateGroup is the atomic eviction unit: every artifact of one crate
// compilation (fingerprint directory, object files, metadata, rlib,
// dep-info).
type CrateGroup struct {
	Name string
	Hash string

	Artifacts []Artifact
	TotalSize uint64

	// NewestMtime is the group's effective age: the maximum mtime
	// across member files. Directory nodes carry no mtime.
	NewestMtime time.Time
}

// ID returns the crate-unit identifier, e.g. "serde-1c8a3f0e2b4d5a6f".
func (g *CrateGroup) ID() string {
	return g.Name + "-" + g.Hash
}

// parseCrateUnitName extracts (name, hash) from an artifact filename.
func parseCrateUnitName(name string) (string, string, bool) {
	m := crateUnitRE.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// collectCrateGroups gathers the crate units of one profile directory.
// Fingerprint directories anchor groups; deps/ and build/ entries
// without a fingerprint become groups of their own so orphans still
// age out.
func collectCrateGroups(profileDir string, logger ports.Logger) ([]*CrateGroup, error) {
	groups := make(map[[2]string]*CrateGroup)

	fingerprintDir := filepath.Join(profileDir, ".fingerprint")
	entries, err := os.ReadDir(fingerprintDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", fingerprintDir)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name, hash, ok := parseCrateUnitName(entry.Name())
		if !ok {
			continue
		}
		g := groupFor(groups, name, hash)
		addArtifact(filepath.Join(fingerprintDir, entry.Name()), g, logger)
	}

	for _, subdir := range []string{"deps", "build"} {
		dir := filepath.Join(profileDir, subdir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", dir)
		}
		for _, entry := range entries {
			name, hash, ok := parseCrateUnitName(entry.Name())
			if !ok {
				continue
			}
			g := groupFor(groups, name, hash)
			addArtifact(filepath.Join(dir, entry.Name()), g, logger)
		}
	}

	result := make([]*CrateGroup, 0, len(groups))
	for _, g := range groups {
		result = append(result, g)
	}
	// Oldest first, then by id: deterministic eviction order.
	slices.SortFunc(result, func(a, b *CrateGroup) int {
		if !a.NewestMtime.Equal(b.NewestMtime) {
			if a.NewestMtime.Before(b.NewestMtime) {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID(), b.ID())
	})
	return result, nil
}

func groupFor(groups map[[2]string]*CrateGroup, name, hash string) *CrateGroup {
	key := [2]string{name, hash}
	g, ok := groups[key]
	if !ok {
		g = &CrateGroup{Name: name, Hash: hash}
		groups[key] = g
	}
	return g
}

// addArtifact records path (recursing into directories) into g.
// Directories contribute their contents' sizes and mtimes; the
// directory node itself is appended last so removal can be shallow.
func addArtifact(path string, g *CrateGroup, logger ports.Logger) {
	info, err := os.Lstat(path)
	if err != nil {
		logger.Debug(fmt.Sprintf("gc: skipping unreadable artifact %s: %v", path, err))
		return
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			logger.Debug(fmt.Sprintf("gc: skipping unreadable directory %s: %v", path, err))
			return
		}
		for _, entry := range entries {
			addArtifact(filepath.Join(path, entry.Name()), g, logger)
		}
		g.Artifacts = append(g.Artifacts, Artifact{Path: path, IsDir: true})
		return
	}

	size := uint64(info.Size()) //nolint:gosec // Stat sizes are non-negative
	g.Artifacts = append(g.Artifacts, Artifact{Path: path, Size: size})
	g.TotalSize += size
	if info.ModTime().After(g.NewestMtime) {
		g.NewestMtime = info.ModTime()
	}
}

// watermarkCutoff converts the last-build watermark into the
// protection cutoff, or reports that protection is off. Protection is
// skipped when the watermark itself is older than the age threshold
// (that build would be evicted anyway) and when the threshold is zero.
// A five-minute buffer absorbs clock drift between the build finishing
// and the stow that recorded the watermark; a future watermark is
// clamped to now.
func watermarkCutoff(watermark *domain.Timestamp, ageThresholdDays uint32, now time.Time) (time.Time, bool) {
	if watermark == nil || ageThresholdDays == 0 {
		return time.Time{}, false
	}

	wm := watermark.Time()
	if wm.After(now) {
		wm = now
	}

	ageThreshold := time.Duration(ageThresholdDays) * 24 * time.Hour
	if now.Sub(wm) > ageThreshold {
		return time.Time{}, false
	}

	return wm.Add(-5 * time.Minute), true
}

// partitionProtected splits groups into the protected last-build
// generation and the eviction-eligible remainder.
func partitionProtected(groups []*CrateGroup, watermark *domain.Timestamp, ageThresholdDays uint32, now time.Time) (protected, eligible []*CrateGroup) {
	cutoff, ok := watermarkCutoff(watermark, ageThresholdDays, now)
	if !ok {
		return nil, groups
	}

	for _, g := range groups {
		if !g.NewestMtime.Before(cutoff) {
			protected = append(protected, g)
		} else {
			eligible = append(eligible, g)
		}
	}
	return protected, eligible
}

// selectForSize picks the oldest eligible groups until the remaining
// eligible total fits under maxSize. The total is computed on eligible
// groups only; protected files never count against the budget.
func selectForSize(eligible []*CrateGroup, maxSize *uint64) (remove, remaining []*CrateGroup) {
	if maxSize == nil {
		return nil, eligible
	}

	var total uint64
	for _, g := range eligible {
		total += g.TotalSize
	}
	if total <= *maxSize {
		return nil, eligible
	}

	needed := total - *maxSize
	var freed uint64
	for _, g := range eligible {
		if freed < needed {
			remove = append(remove, g)
			freed += g.TotalSize
		} else {
			remaining = append(remaining, g)
		}
	}
	return remove, remaining
}

// selectForAge picks every remaining group whose effective age exceeds
// the threshold.
func selectForAge(eligible []*CrateGroup, ageThresholdDays uint32, now time.Time) []*CrateGroup {
	cutoff := now.Add(-time.Duration(ageThresholdDays) * 24 * time.Hour)

	var remove []*CrateGroup
	for _, g := range eligible {
		if g.NewestMtime.Before(cutoff) {
			remove = append(remove, g)
		}
	}
	return remove
}
