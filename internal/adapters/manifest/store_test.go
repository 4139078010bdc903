package manifest

import (
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cargo-hold/internal/core/domain"
)

func testManifest() *domain.Manifest {
	m := domain.NewManifest()
	m.Upsert(domain.FileRecord{
		Path:  "src/main.rs",
		Size:  1234,
		Hash:  domain.Digest{1, 2, 3, 4},
		Mtime: domain.Timestamp{Sec: 1_700_000_000, Nsec: 42},
	})
	m.Upsert(domain.FileRecord{
		Path:  "Cargo.toml",
		Size:  99,
		Hash:  domain.Digest{0xff, 0xee},
		Mtime: domain.Timestamp{Sec: 1_700_000_100, Nsec: 0},
	})
	m.LastBuildMaxMtime = &domain.Timestamp{Sec: 1_700_000_200, Nsec: 7}
	m.ClockHighWater = &domain.Timestamp{Sec: 1_700_000_300, Nsec: 9}
	seed := uint64(3 << 30)
	lastCap := uint64(5 << 30)
	m.GCMetrics = domain.GCMetrics{
		Runs:               4,
		SeedInitialSize:    &seed,
		RecentInitialSizes: []uint64{3 << 30, 4 << 30},
		RecentBytesFreed:   []uint64{1 << 30, 1 << 29},
		RecentFinalSizes:   []uint64{2 << 30, 3 << 30},
		LastSuggestedCap:   &lastCap,
	}
	return m
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cargo-hold.metadata")
	store := NewStore()

	want := testManifest()
	require.NoError(t, store.Persist(path, want))

	got, err := store.Load(path)
	require.NoError(t, err)

	assert.Equal(t, domain.ManifestVersion, got.Version)
	assert.Equal(t, want.Records, got.Records)
	assert.Equal(t, want.LastBuildMaxMtime, got.LastBuildMaxMtime)
	assert.Equal(t, want.ClockHighWater, got.ClockHighWater)
	assert.Equal(t, want.GCMetrics, got.GCMetrics)
}

func TestStore_RoundTripRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(7)) //nolint:gosec // Deterministic test data
	path := filepath.Join(t.TempDir(), "cargo-hold.metadata")
	store := NewStore()

	for range 20 {
		m := domain.NewManifest()
		for i := range rng.Intn(50) {
			var hash domain.Digest
			rng.Read(hash[:])
			m.Upsert(domain.FileRecord{
				Path:  filepath.Join("src", string(rune('a'+i%26)), "file.rs"),
				Size:  rng.Uint64() >> 16,
				Hash:  hash,
				Mtime: domain.Timestamp{Sec: rng.Int63(), Nsec: uint32(rng.Intn(1_000_000_000))},
			})
		}
		if rng.Intn(2) == 0 {
			m.LastBuildMaxMtime = &domain.Timestamp{Sec: rng.Int63()}
		}
		if rng.Intn(2) == 0 {
			m.ClockHighWater = &domain.Timestamp{Sec: rng.Int63(), Nsec: 1}
		}

		require.NoError(t, store.Persist(path, m))
		got, err := store.Load(path)
		require.NoError(t, err)
		assert.Equal(t, m.Records, got.Records)
		assert.Equal(t, m.LastBuildMaxMtime, got.LastBuildMaxMtime)
		assert.Equal(t, m.ClockHighWater, got.ClockHighWater)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	got, err := NewStore().Load(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, got.Records)
	assert.Equal(t, domain.ManifestVersion, got.Version)
}

func TestStore_V1Migration(t *testing.T) {
	// A v1 manifest is the same container with version 1 and no
	// optional timestamps.
	path := filepath.Join(t.TempDir(), "cargo-hold.metadata")
	store := NewStore()

	legacy := domain.NewManifest()
	legacy.Version = 1
	legacy.Upsert(domain.FileRecord{
		Path:  "a.txt",
		Size:  1,
		Hash:  domain.Digest{0xaa},
		Mtime: domain.Timestamp{Sec: 1_600_000_000},
	})
	require.NoError(t, store.Persist(path, legacy))

	got, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.ManifestVersion, got.Version, "load must migrate to the current version")
	assert.Equal(t, legacy.Records, got.Records)
	assert.Nil(t, got.LastBuildMaxMtime)
	assert.Nil(t, got.ClockHighWater)
	assert.True(t, got.GCMetrics.IsZero(), "v1 manifests carry no GC history")

	// Persisting the migrated manifest writes v2.
	require.NoError(t, store.Persist(path, got))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, domain.ManifestVersion, binary.LittleEndian.Uint32(raw[offVersion:]))
}

func TestStore_CorruptMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cargo-hold.metadata")
	store := NewStore()
	require.NoError(t, store.Persist(path, testManifest()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[0] = 'X'
	require.NoError(t, os.WriteFile(path, raw, domain.FilePerm))

	_, err = store.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrManifestCorrupt)
}

func TestStore_CorruptChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cargo-hold.metadata")
	store := NewStore()
	require.NoError(t, store.Persist(path, testManifest()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, domain.FilePerm))

	_, err = store.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrManifestCorrupt)
}

func TestStore_CorruptTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cargo-hold.metadata")
	store := NewStore()
	require.NoError(t, store.Persist(path, testManifest()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)/2], domain.FilePerm))

	_, err = store.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrManifestCorrupt)
}

func TestStore_UnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cargo-hold.metadata")
	store := NewStore()
	require.NoError(t, store.Persist(path, testManifest()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(raw[offVersion:], 99)
	require.NoError(t, os.WriteFile(path, raw, domain.FilePerm))

	_, err = store.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrManifestCorrupt)
}

func TestStore_PersistReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cargo-hold.metadata")
	store := NewStore()

	require.NoError(t, store.Persist(path, testManifest()))

	next := domain.NewManifest()
	next.Upsert(domain.FileRecord{Path: "only.rs", Size: 5, Hash: domain.Digest{1}})
	require.NoError(t, store.Persist(path, next))

	got, err := store.Load(path)
	require.NoError(t, err)
	assert.Len(t, got.Records, 1)

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_DeleteMissingIsFine(t *testing.T) {
	store := NewStore()
	assert.NoError(t, store.Delete(filepath.Join(t.TempDir(), "absent")))
}

func TestEncodePayload_Deterministic(t *testing.T) {
	a := encodePayload(testManifest())
	b := encodePayload(testManifest())
	assert.Equal(t, a, b, "identical manifests must encode identically")
}
