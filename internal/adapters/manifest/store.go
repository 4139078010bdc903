package manifest

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/cargo-hold/internal/core/domain"
	"go.trai.ch/cargo-hold/internal/core/ports"
	"go.trai.ch/cargo-hold/internal/mmap"
	"go.trai.ch/zerr"
)

var _ ports.ManifestStore = (*Store)(nil)

// File layout:
//
//	0..8    magic "CARGHOLD"
//	8..12   format version, little endian
//	12..16  reserved, zero
//	16..24  xxhash64 of the payload, little endian
//	24..32  payload length, little endian
//	32..    FlatBuffers payload
//
// The checksum is what stands between a truncated cache restore and a
// misparsed record table: FlatBuffers readers trust their offsets, so
// the payload is only handed to the codec after the digest matches.
const (
	headerSize = 32

	offMagic    = 0
	offVersion  = 8
	offChecksum = 16
	offLength   = 24
)

var magic = [8]byte{'C', 'A', 'R', 'G', 'H', 'O', 'L', 'D'}

// Store implements ports.ManifestStore.
type Store struct{}

// NewStore creates a new manifest store.
func NewStore() *Store {
	return &Store{}
}

// Load reads, validates, and eagerly projects the manifest at path. The
// mapping is released before returning; the result owns all its memory.
func (s *Store) Load(path string) (*domain.Manifest, error) {
	f, err := os.Open(path) //nolint:gosec // Path is the configured metadata location
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.NewManifest(), nil
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	info, err := f.Stat()
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", path)
	}
	if info.Size() == 0 {
		return domain.NewManifest(), nil
	}
	if info.Size() < headerSize {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifestCorrupt, "file shorter than header"), "path", path)
	}

	data, unmap, err := mmap.ReadOnly(f, int(info.Size()))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", path)
	}
	defer unmap() //nolint:errcheck // Read-only mapping

	version, payload, err := validate(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}

	return decodePayload(payload, version)
}

// Persist atomically replaces the manifest at path: sibling temp file,
// fsync, rename. Any failure is domain.ErrManifestPersistFailed.
func (s *Store) Persist(path string, m *domain.Manifest) error {
	payload := encodePayload(m)
	data := make([]byte, headerSize+len(payload))
	copy(data[offMagic:], magic[:])
	binary.LittleEndian.PutUint32(data[offVersion:], m.Version)
	binary.LittleEndian.PutUint64(data[offChecksum:], xxhash.Sum64(payload))
	binary.LittleEndian.PutUint64(data[offLength:], uint64(len(payload)))
	copy(data[headerSize:], payload)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return persistErr(err, path)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return persistErr(err, path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // No-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // Write error takes precedence
		return persistErr(err, path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // Sync error takes precedence
		return persistErr(err, path)
	}
	if err := tmp.Close(); err != nil {
		return persistErr(err, path)
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return persistErr(err, path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return persistErr(err, path)
	}
	return nil
}

// Delete removes the manifest file. A missing file is success.
func (s *Store) Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", path)
	}
	return nil
}

// validate checks the header against data and returns the declared
// version along with the payload slice (still aliasing data).
func validate(data []byte) (uint32, []byte, error) {
	if [8]byte(data[offMagic:offMagic+8]) != magic {
		return 0, nil, zerr.Wrap(domain.ErrManifestCorrupt, "bad magic")
	}

	version := binary.LittleEndian.Uint32(data[offVersion:])
	if version == 0 || version > domain.ManifestVersion {
		return 0, nil, zerr.With(zerr.Wrap(domain.ErrManifestCorrupt, "unsupported version"), "version", version)
	}

	length := binary.LittleEndian.Uint64(data[offLength:])
	if length != uint64(len(data)-headerSize) {
		return 0, nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrManifestCorrupt, "payload length mismatch"),
			"declared", length), "actual", len(data)-headerSize)
	}

	payload := data[headerSize:]
	if sum := xxhash.Sum64(payload); sum != binary.LittleEndian.Uint64(data[offChecksum:]) {
		return 0, nil, zerr.Wrap(domain.ErrManifestCorrupt, "payload checksum mismatch")
	}

	return version, payload, nil
}

func persistErr(err error, path string) error {
	return zerr.With(zerr.Wrap(domain.ErrManifestPersistFailed, err.Error()), "path", path)
}
