package clock

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// probeTime carries odd nanoseconds: a filesystem that stores them gets
// nanosecond ticks, one that truncates them gets one-second ticks.
var probeTime = time.Unix(1_600_000_000, 123_456_789)

// probeCache memoizes the resolution probe per directory. The probe
// writes a file, so repeating it for every clock would churn the
// workspace.
type probeCache struct {
	mu   sync.Mutex
	dirs map[string]time.Duration
}

func (p *probeCache) resolve(dir string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if tick, ok := p.dirs[dir]; ok {
		return tick
	}
	if p.dirs == nil {
		p.dirs = make(map[string]time.Duration)
	}
	tick := probeResolution(dir)
	p.dirs[dir] = tick
	return tick
}

// probeResolution measures the mtime granularity of dir's filesystem.
// Every failure mode falls back to one second, the conservative choice:
// a too-coarse tick only spreads timestamps further apart.
func probeResolution(dir string) time.Duration {
	f, err := os.CreateTemp(dir, ".cargo-hold-probe-*")
	if err != nil {
		return time.Second
	}
	name := f.Name()
	defer os.Remove(name) //nolint:errcheck // Best-effort cleanup
	if err := f.Close(); err != nil {
		return time.Second
	}

	if err := os.Chtimes(name, probeTime, probeTime); err != nil {
		return time.Second
	}
	info, err := os.Lstat(name)
	if err != nil {
		return time.Second
	}

	if info.ModTime().Nanosecond() == probeTime.Nanosecond() {
		return time.Nanosecond
	}
	return time.Second
}

// Probe is a standalone resolution measurement for callers outside the
// factory. The workspace root is the usual argument.
func Probe(dir string) time.Duration {
	return probeResolution(filepath.Clean(dir))
}
