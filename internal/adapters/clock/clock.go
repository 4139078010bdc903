// Package clock issues strictly increasing mtime timestamps across runs.
package clock

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.trai.ch/cargo-hold/internal/core/domain"
	"go.trai.ch/cargo-hold/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Clock = (*Monotonic)(nil)
var _ ports.ClockFactory = (*Factory)(nil)

// regressionMargin is how far the persisted high-water mark may sit
// ahead of the wall clock before it is reported as a regression. CI
// clock skew is routinely minutes; beyond an hour the mark itself is
// suspect and worth surfacing.
const regressionMargin = time.Hour

// Monotonic is the per-run timestamp issuer. The current high-water
// value lives in a single atomic so concurrent workers race through a
// compare-and-swap instead of a lock.
type Monotonic struct {
	high   atomic.Int64 // nanoseconds since the Unix epoch
	tick   int64        // minimum increment, one filesystem mtime tick
	issued atomic.Bool
	seeded bool
}

// New creates a clock seeded with the manifest's high-water mark (nil
// on first run) and the given filesystem tick.
func New(highWater *domain.Timestamp, tick time.Duration) *Monotonic {
	c := &Monotonic{tick: int64(tick)}
	if c.tick <= 0 {
		c.tick = int64(time.Second)
	}
	if highWater != nil {
		c.high.Store(highWater.Nanos())
		c.seeded = true
	} else {
		// Zero would make the first candidate "now", which is
		// exactly what an unseeded clock should issue.
		c.high.Store(0)
	}
	return c
}

// Next returns the next timestamp: at or after the wall clock, strictly
// after everything issued before, aligned to the filesystem tick.
func (c *Monotonic) Next() domain.Timestamp {
	for {
		prev := c.high.Load()
		candidate := ceilTick(time.Now().UnixNano(), c.tick)
		if candidate <= prev {
			candidate = ceilTick(prev+1, c.tick)
		}
		if c.high.CompareAndSwap(prev, candidate) {
			c.issued.Store(true)
			return domain.TimestampFromNanos(candidate)
		}
	}
}

// HighWater returns the greatest timestamp issued so far, or the seed
// when Next was never called. ok is false for an unseeded, unused clock.
func (c *Monotonic) HighWater() (domain.Timestamp, bool) {
	if !c.seeded && !c.issued.Load() {
		return domain.Timestamp{}, false
	}
	return domain.TimestampFromNanos(c.high.Load()), true
}

// Regression returns a warning error when the seed sits further ahead
// of the wall clock than the safety margin. The clock still advances
// past the seed; the caller only decides whether to log.
func (c *Monotonic) Regression() error {
	if !c.seeded {
		return nil
	}
	now := time.Now().UnixNano()
	high := c.high.Load()
	if high-now <= int64(regressionMargin) {
		return nil
	}
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrClockRegression, "high-water mark ahead of wall clock"),
		"high_water", time.Unix(0, high).Format(time.RFC3339Nano)),
		"wall_clock", time.Unix(0, now).Format(time.RFC3339Nano))
}

// ceilTick rounds n up to the next multiple of tick.
func ceilTick(n, tick int64) int64 {
	if tick <= 1 {
		return n
	}
	return (n + tick - 1) / tick * tick
}

// Factory builds per-run clocks, probing each filesystem's mtime
// resolution at most once.
type Factory struct {
	logger ports.Logger
	probes probeCache
}

// NewFactory creates a clock factory.
func NewFactory(logger ports.Logger) *Factory {
	return &Factory{logger: logger}
}

// New probes probeDir's filesystem and seeds a clock with highWater. A
// regression beyond the safety margin is logged as a warning here so
// every caller gets the diagnostic without repeating the check.
func (f *Factory) New(probeDir string, highWater *domain.Timestamp) ports.Clock {
	tick := f.probes.resolve(probeDir)
	c := New(highWater, tick)
	if err := c.Regression(); err != nil && f.logger != nil {
		f.logger.Warn(fmt.Sprintf("clock regression detected, advancing past persisted mark: %v", err))
	}
	return c
}
