package ports

import "go.trai.ch/cargo-hold/internal/core/domain"

// Clock issues strictly increasing timestamps for one run.
type Clock interface {
	// Next returns a timestamp strictly greater than every prior Next
	// result and than the high-water mark the clock was seeded with,
	// and no earlier than the wall clock. Safe for concurrent use.
	Next() domain.Timestamp

	// HighWater returns the greatest timestamp issued so far, or the
	// seed if Next was never called. ok is false when the clock was
	// seeded empty and never issued.
	HighWater() (ts domain.Timestamp, ok bool)
}

// ClockFactory builds per-run monotonic clocks.
type ClockFactory interface {
	// New seeds a clock with the manifest's high-water mark (nil on
	// first run). probeDir selects the filesystem whose mtime
	// resolution bounds the minimum increment between timestamps.
	New(probeDir string, highWater *domain.Timestamp) Clock
}
