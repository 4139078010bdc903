// Package domain contains the core domain types for cargo-hold.
package domain

import (
	"encoding/hex"
	"slices"
	"time"
)

// ManifestVersion is the current version of the on-disk manifest format.
//
// Version 1 predates the garbage collector and the persistent clock: it
// carries file records only. Version 2 adds the last-build watermark and
// the clock high-water mark. Loading refuses versions newer than this.
const ManifestVersion uint32 = 2

const (
	// DirPerm is the permission used when creating directories.
	DirPerm = 0o755
	// FilePerm is the permission used when creating files.
	FilePerm = 0o644
)

// Digest is a 256-bit BLAKE3 content digest.
type Digest [32]byte

// String returns the canonical hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Timestamp is a filesystem modification time with nanosecond
// resolution, measured since the Unix epoch.
type Timestamp struct {
	Sec  int64
	Nsec uint32
}

// TimestampFromTime converts a time.Time to a Timestamp.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp{Sec: t.Unix(), Nsec: uint32(t.Nanosecond())}
}

// TimestampFromNanos converts nanoseconds since the Unix epoch to a Timestamp.
func TimestampFromNanos(n int64) Timestamp {
	return Timestamp{Sec: n / int64(time.Second), Nsec: uint32(n % int64(time.Second))}
}

// Time converts the timestamp to a time.Time in the local zone.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Sec, int64(t.Nsec))
}

// Nanos returns the timestamp as nanoseconds since the Unix epoch.
func (t Timestamp) Nanos() int64 {
	return t.Sec*int64(time.Second) + int64(t.Nsec)
}

// Before reports whether t is strictly earlier than o.
func (t Timestamp) Before(o Timestamp) bool {
	return t.Sec < o.Sec || (t.Sec == o.Sec && t.Nsec < o.Nsec)
}

// After reports whether t is strictly later than o.
func (t Timestamp) After(o Timestamp) bool {
	return o.Before(t)
}

// Equal reports whether t and o denote the same instant.
func (t Timestamp) Equal(o Timestamp) bool {
	return t.Sec == o.Sec && t.Nsec == o.Nsec
}

// FileRecord captures the state of one tracked file at the time of the
// last stow: enough to detect content changes and to restore the mtime
// that the build tool last saw for it.
type FileRecord struct {
	// Path is relative to the workspace root, forward-slash separated.
	// Git guarantees this form, so it is stored as reported.
	Path string

	// Size in bytes. Checked before the digest: a size mismatch proves
	// modification without reading the file.
	Size uint64

	// Hash is the BLAKE3 digest of the file content.
	Hash Digest

	// Mtime is the modification time to reapply while the content
	// still matches Size and Hash.
	Mtime Timestamp
}

// Manifest is the persistent state of a workspace: one record per
// tracked file plus the two bookkeeping timestamps. It is replaced
// wholesale on every stow; it is never patched in place.
type Manifest struct {
	Version uint32
	Records map[string]FileRecord

	// LastBuildMaxMtime is the maximum mtime observed in the target
	// directory at the end of the most recent stow. The garbage
	// collector uses it to protect the newest build generation. Nil
	// until the first stow that scans a target directory.
	LastBuildMaxMtime *Timestamp

	// ClockHighWater is the greatest timestamp the monotonic clock has
	// ever issued for this workspace. Nil if the clock has never run.
	ClockHighWater *Timestamp

	// GCMetrics is the garbage collector's run history, feeding the
	// adaptive size cap. Carried forward across stows.
	GCMetrics GCMetrics
}

// NewManifest returns an empty manifest at the current format version.
func NewManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		Records: make(map[string]FileRecord),
	}
}

// Upsert inserts or replaces the record for its path.
func (m *Manifest) Upsert(r FileRecord) {
	m.Records[r.Path] = r
}

// Lookup returns the record for a path, if present.
func (m *Manifest) Lookup(path string) (FileRecord, bool) {
	r, ok := m.Records[path]
	return r, ok
}

// MaxRecordMtime returns the greatest mtime across all records, or nil
// for an empty manifest.
func (m *Manifest) MaxRecordMtime() *Timestamp {
	var maxTS *Timestamp
	for _, r := range m.Records {
		if maxTS == nil || r.Mtime.After(*maxTS) {
			ts := r.Mtime
			maxTS = &ts
		}
	}
	return maxTS
}

// SortedPaths returns the record paths in lexicographic order. The
// codec and the state engine rely on this for deterministic output.
func (m *Manifest) SortedPaths() []string {
	paths := make([]string, 0, len(m.Records))
	for p := range m.Records {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
