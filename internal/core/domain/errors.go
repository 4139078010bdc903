package domain

import "go.trai.ch/zerr"

var (
	// ErrIoFailure is returned when a specific file could not be read,
	// stat'd, or touched. Per-file occurrences are collected and
	// reported; they never abort an operation.
	ErrIoFailure = zerr.New("file operation failed")

	// ErrVcsUnavailable is returned when the workspace is not a git
	// checkout or the git query itself failed.
	ErrVcsUnavailable = zerr.New("git repository unavailable")

	// ErrManifestCorrupt is returned when the manifest header, version,
	// or payload checksum fails validation. Callers treat it as "no
	// prior manifest".
	ErrManifestCorrupt = zerr.New("manifest corrupt")

	// ErrManifestPersistFailed is returned when the successor manifest
	// could not be written or renamed into place. Always fatal.
	ErrManifestPersistFailed = zerr.New("failed to persist manifest")

	// ErrInvalidArgument is returned when configuration parsing (size
	// suffix, day count, path) rejects a value.
	ErrInvalidArgument = zerr.New("invalid argument")

	// ErrClockRegression is reported when the wall clock is behind the
	// persisted high-water mark by more than the safety margin. The
	// monotonic clock advances past the mark regardless; this only
	// surfaces as a warning.
	ErrClockRegression = zerr.New("system clock behind persisted high-water mark")

	// ErrNotRegularFile is returned when a tracked path names a
	// symlink, directory, or other non-regular file that cannot be
	// hashed or retimed.
	ErrNotRegularFile = zerr.New("not a regular file")
)
