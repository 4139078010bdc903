package state_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cargo-hold/internal/adapters/clock"
	"go.trai.ch/cargo-hold/internal/adapters/hasher"
	"go.trai.ch/cargo-hold/internal/core/domain"
	"go.trai.ch/cargo-hold/internal/core/ports"
	"go.trai.ch/cargo-hold/internal/engine/state"
)

// stubLister serves a fixed tracked set rooted at a temp dir, standing
// in for the git adapter.
type stubLister struct {
	root  string
	paths []string
}

func (s *stubLister) RepoRoot(_ context.Context, _ string) (string, error) {
	return s.root, nil
}

func (s *stubLister) ListTracked(_ context.Context, _ string, _ bool) ([]string, error) {
	return s.paths, nil
}

// nsClocks builds nanosecond-tick clocks regardless of the filesystem,
// keeping timestamp assertions exact.
type nsClocks struct{}

func (nsClocks) New(_ string, highWater *domain.Timestamp) ports.Clock {
	return clock.New(highWater, time.Nanosecond)
}

type nopLogger struct{}

func (nopLogger) Debug(string)           {}
func (nopLogger) Info(string)            {}
func (nopLogger) Warn(string)            {}
func (nopLogger) Error(error)            {}
func (nopLogger) SetVerbosity(int, bool) {}

func newTestEngine(lister ports.FileLister) *state.Engine {
	return state.NewEngine(lister, hasher.New(), nsClocks{}, nopLogger{})
}

func writeWorkspace(t *testing.T, files map[string]string) (string, *stubLister) {
	t.Helper()
	root := t.TempDir()
	lister := &stubLister{root: root}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
		require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
		lister.paths = append(lister.paths, name)
	}
	return root, lister
}

func statMtime(t *testing.T, path string) time.Time {
	t.Helper()
	info, err := os.Lstat(path)
	require.NoError(t, err)
	return info.ModTime()
}

func TestScan_FreshWorkspace(t *testing.T) {
	root, lister := writeWorkspace(t, map[string]string{
		"a.txt": "A",
		"b.txt": "B",
		"c.txt": "C",
	})
	engine := newTestEngine(lister)

	res, err := engine.Scan(context.Background(), root, domain.NewManifest(), state.Options{ApplyMtimes: true})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Added)
	assert.Zero(t, res.Unchanged)
	assert.Zero(t, res.Modified)
	assert.Empty(t, res.Failures)
	require.Len(t, res.Next.Records, 3)

	// Every file got a distinct monotonic timestamp and the high-water
	// mark is their maximum.
	seen := map[int64]bool{}
	var maxTS domain.Timestamp
	for _, rec := range res.Next.Records {
		assert.False(t, seen[rec.Mtime.Nanos()], "duplicate mtime assigned")
		seen[rec.Mtime.Nanos()] = true
		if rec.Mtime.After(maxTS) {
			maxTS = rec.Mtime
		}
	}
	require.NotNil(t, res.Next.ClockHighWater)
	assert.True(t, res.Next.ClockHighWater.Equal(maxTS))

	// The filesystem reflects the assigned mtimes.
	for _, rec := range res.Next.Records {
		got := statMtime(t, filepath.Join(root, rec.Path))
		assert.WithinDuration(t, rec.Mtime.Time(), got, time.Second)
	}
}

func TestScan_UnchangedKeepsRecordedMtime(t *testing.T) {
	root, lister := writeWorkspace(t, map[string]string{
		"a.txt": "A",
		"b.txt": "B",
	})
	engine := newTestEngine(lister)

	first, err := engine.Scan(context.Background(), root, domain.NewManifest(), state.Options{ApplyMtimes: true})
	require.NoError(t, err)

	// Simulate a cache restore wrecking the mtimes.
	stale := time.Now().Add(-96 * time.Hour)
	for _, p := range lister.paths {
		require.NoError(t, os.Chtimes(filepath.Join(root, p), stale, stale))
	}

	second, err := engine.Scan(context.Background(), root, first.Next, state.Options{ApplyMtimes: true})
	require.NoError(t, err)

	assert.Equal(t, 2, second.Unchanged)
	assert.Zero(t, second.Modified)
	assert.Zero(t, second.Added)

	// Records carry the same mtimes, and the clock did not advance.
	for p, rec := range first.Next.Records {
		assert.True(t, rec.Mtime.Equal(second.Next.Records[p].Mtime),
			"unchanged file %s must keep its recorded mtime", p)
	}
	require.NotNil(t, second.Next.ClockHighWater)
	assert.True(t, second.Next.ClockHighWater.Equal(*first.Next.ClockHighWater))

	// And the filesystem was restored.
	for p, rec := range second.Next.Records {
		assert.WithinDuration(t, rec.Mtime.Time(), statMtime(t, filepath.Join(root, p)), time.Second)
	}
}

func TestScan_ModifiedGetsStrictlyNewerMtime(t *testing.T) {
	root, lister := writeWorkspace(t, map[string]string{
		"a.txt": "A",
		"b.txt": "B",
		"c.txt": "C",
	})
	engine := newTestEngine(lister)

	first, err := engine.Scan(context.Background(), root, domain.NewManifest(), state.Options{ApplyMtimes: true})
	require.NoError(t, err)
	priorHW := *first.Next.ClockHighWater

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("BB"), domain.FilePerm))

	second, err := engine.Scan(context.Background(), root, first.Next, state.Options{ApplyMtimes: true})
	require.NoError(t, err)

	assert.Equal(t, 2, second.Unchanged)
	assert.Equal(t, 1, second.Modified)

	bRec := second.Next.Records["b.txt"]
	assert.True(t, bRec.Mtime.After(priorHW), "modified file must get an mtime past the prior high-water mark")
	assert.True(t, second.Next.Records["a.txt"].Mtime.Equal(first.Next.Records["a.txt"].Mtime))
	assert.True(t, second.Next.Records["c.txt"].Mtime.Equal(first.Next.Records["c.txt"].Mtime))
	require.NotNil(t, second.Next.ClockHighWater)
	assert.True(t, second.Next.ClockHighWater.Equal(bRec.Mtime))
	assert.Equal(t, uint64(2), bRec.Size)
}

func TestScan_DeletedFileDropsFromManifest(t *testing.T) {
	root, lister := writeWorkspace(t, map[string]string{
		"a.txt": "A",
		"b.txt": "B",
	})
	engine := newTestEngine(lister)

	first, err := engine.Scan(context.Background(), root, domain.NewManifest(), state.Options{ApplyMtimes: true})
	require.NoError(t, err)

	lister.paths = []string{"a.txt"}
	second, err := engine.Scan(context.Background(), root, first.Next, state.Options{ApplyMtimes: true})
	require.NoError(t, err)

	assert.Equal(t, 1, second.Removed)
	assert.Len(t, second.Next.Records, 1)
	_, ok := second.Next.Records["b.txt"]
	assert.False(t, ok)
}

func TestScan_StowRecordsObservedMtimes(t *testing.T) {
	root, lister := writeWorkspace(t, map[string]string{"a.txt": "A"})
	engine := newTestEngine(lister)

	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.txt"), fixed, fixed))
	before := statMtime(t, filepath.Join(root, "a.txt"))

	res, err := engine.Scan(context.Background(), root, domain.NewManifest(), state.Options{RecordObserved: true})
	require.NoError(t, err)

	rec := res.Next.Records["a.txt"]
	assert.True(t, rec.Mtime.Equal(domain.TimestampFromTime(before)), "stow must record the on-disk mtime")
	assert.Nil(t, res.Next.ClockHighWater, "stow must not touch the clock")
	assert.Equal(t, before, statMtime(t, filepath.Join(root, "a.txt")), "stow must not modify the filesystem")
}

func TestScan_SalvageIsIdempotent(t *testing.T) {
	root, lister := writeWorkspace(t, map[string]string{
		"a.txt": "A",
		"b.txt": "B",
	})
	engine := newTestEngine(lister)

	baseline, err := engine.Scan(context.Background(), root, domain.NewManifest(), state.Options{ApplyMtimes: true})
	require.NoError(t, err)

	// Two salvages against the same manifest: unchanged files end up
	// with identical mtimes both times.
	_, err = engine.Scan(context.Background(), root, baseline.Next, state.Options{ApplyMtimes: true})
	require.NoError(t, err)
	firstMtimes := map[string]time.Time{}
	for p := range baseline.Next.Records {
		firstMtimes[p] = statMtime(t, filepath.Join(root, p))
	}

	second, err := engine.Scan(context.Background(), root, baseline.Next, state.Options{ApplyMtimes: true})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Unchanged)
	assert.Zero(t, second.Applied, "second salvage must find nothing to touch")
	for p := range baseline.Next.Records {
		assert.Equal(t, firstMtimes[p], statMtime(t, filepath.Join(root, p)))
	}
}

func TestScan_PerFileFailureDoesNotAbort(t *testing.T) {
	root, lister := writeWorkspace(t, map[string]string{"a.txt": "A"})
	lister.paths = append(lister.paths, "missing.txt")
	engine := newTestEngine(lister)

	res, err := engine.Scan(context.Background(), root, domain.NewManifest(), state.Options{ApplyMtimes: true})
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "missing.txt", res.Failures[0].Path)
	assert.Len(t, res.Next.Records, 1)
	_, ok := res.Next.Records["missing.txt"]
	assert.False(t, ok, "failed files must be omitted from the successor manifest")
}

func TestScan_SymlinkPolicy(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}

	root, lister := writeWorkspace(t, map[string]string{"real.txt": "data"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))
	lister.paths = append(lister.paths, "link.txt")
	engine := newTestEngine(lister)

	t.Run("skipped by default", func(t *testing.T) {
		res, err := engine.Scan(context.Background(), root, domain.NewManifest(), state.Options{ApplyMtimes: true})
		require.NoError(t, err)
		require.Len(t, res.Failures, 1)
		assert.Equal(t, "link.txt", res.Failures[0].Path)
		_, ok := res.Next.Records["link.txt"]
		assert.False(t, ok)
	})

	t.Run("followed when enabled", func(t *testing.T) {
		res, err := engine.Scan(context.Background(), root, domain.NewManifest(), state.Options{
			ApplyMtimes:    true,
			FollowSymlinks: true,
		})
		require.NoError(t, err)
		assert.Empty(t, res.Failures)
		rec, ok := res.Next.Records["link.txt"]
		require.True(t, ok)
		assert.Equal(t, res.Next.Records["real.txt"].Hash, rec.Hash)
	})

	t.Run("escaping link is skipped", func(t *testing.T) {
		outside := filepath.Join(t.TempDir(), "outside.txt")
		require.NoError(t, os.WriteFile(outside, []byte("x"), domain.FilePerm))
		require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape.txt")))
		lister.paths = append(lister.paths, "escape.txt")

		res, err := engine.Scan(context.Background(), root, domain.NewManifest(), state.Options{
			ApplyMtimes:    true,
			FollowSymlinks: true,
		})
		require.NoError(t, err)
		_, ok := res.Next.Records["escape.txt"]
		assert.False(t, ok)
	})
}

func TestScan_CarriesGCMetricsForward(t *testing.T) {
	root, lister := writeWorkspace(t, map[string]string{"a.txt": "A"})
	engine := newTestEngine(lister)

	seed := uint64(1 << 30)
	prior := domain.NewManifest()
	prior.GCMetrics = domain.GCMetrics{
		Runs:             3,
		SeedInitialSize:  &seed,
		RecentFinalSizes: []uint64{1 << 30, 2 << 30},
	}

	res, err := engine.Scan(context.Background(), root, prior, state.Options{ApplyMtimes: true})
	require.NoError(t, err)

	assert.Equal(t, prior.GCMetrics, res.Next.GCMetrics, "successor manifests must keep the GC run history")

	// The successor owns its history; mutating it must not reach back.
	res.Next.GCMetrics.RecentFinalSizes[0] = 99
	assert.Equal(t, uint64(1<<30), prior.GCMetrics.RecentFinalSizes[0])
}

func TestTargetWatermark(t *testing.T) {
	engine := newTestEngine(&stubLister{})

	t.Run("missing directory", func(t *testing.T) {
		assert.Nil(t, engine.TargetWatermark(filepath.Join(t.TempDir(), "absent")))
	})

	t.Run("maximum file mtime", func(t *testing.T) {
		dir := t.TempDir()
		old := time.Now().Add(-48 * time.Hour)
		newer := time.Now().Add(-1 * time.Hour)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "old.o"), []byte("x"), domain.FilePerm))
		require.NoError(t, os.Chtimes(filepath.Join(dir, "old.o"), old, old))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "deps"), domain.DirPerm))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "deps", "new.o"), []byte("x"), domain.FilePerm))
		require.NoError(t, os.Chtimes(filepath.Join(dir, "deps", "new.o"), newer, newer))

		wm := engine.TargetWatermark(dir)
		require.NotNil(t, wm)
		assert.WithinDuration(t, newer, wm.Time(), time.Second)
	})
}
