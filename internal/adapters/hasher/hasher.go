// Package hasher computes BLAKE3 content digests of workspace files.
package hasher

import (
	"io"
	"os"

	"github.com/zeebo/blake3"
	"go.trai.ch/cargo-hold/internal/core/domain"
	"go.trai.ch/cargo-hold/internal/core/ports"
	"go.trai.ch/cargo-hold/internal/mmap"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// mmapThreshold is the file size at which hashing switches from a
// sequential read to a read-only memory mapping. Below it the syscall
// overhead of mapping outweighs the copy.
const mmapThreshold = 16 << 10

// Hasher implements ports.Hasher with BLAKE3.
type Hasher struct{}

// New creates a new Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the byte length and BLAKE3 digest of the file at path.
// Symlinks and directories are rejected: the state engine decides the
// symlink policy before calling, so anything non-regular here is a
// per-file failure.
func (h *Hasher) Hash(path string) (uint64, domain.Digest, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, domain.Digest{}, zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", path)
	}
	if !info.Mode().IsRegular() {
		return 0, domain.Digest{}, zerr.With(zerr.With(zerr.Wrap(domain.ErrNotRegularFile, "cannot hash"), "path", path), "mode", info.Mode().String())
	}

	size := info.Size()
	if size == 0 {
		return 0, blake3.Sum256(nil), nil
	}

	f, err := os.Open(path) //nolint:gosec // Path comes from the tracked-file set
	if err != nil {
		return 0, domain.Digest{}, zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	if size >= mmapThreshold {
		if digest, err := h.hashMapped(f, int(size)); err == nil {
			return uint64(size), digest, nil
		}
		// Mapping can fail on exotic filesystems; fall through to the
		// sequential path with the descriptor rewound.
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return 0, domain.Digest{}, zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", path)
		}
	}

	digest, n, err := h.hashSequential(f)
	if err != nil {
		return 0, domain.Digest{}, zerr.With(zerr.Wrap(domain.ErrIoFailure, err.Error()), "path", path)
	}
	return n, digest, nil
}

// hashMapped hashes the whole file through a read-only mapping. BLAKE3
// sees the content as one contiguous buffer, which lets its internal
// tree hashing process chunks in parallel.
func (h *Hasher) hashMapped(f *os.File, size int) (domain.Digest, error) {
	data, unmap, err := mmap.ReadOnly(f, size)
	if err != nil {
		return domain.Digest{}, err
	}
	defer unmap() //nolint:errcheck // Kernel reclaims the mapping on exit regardless
	return blake3.Sum256(data), nil
}

func (h *Hasher) hashSequential(r io.Reader) (domain.Digest, uint64, error) {
	hasher := blake3.New()
	n, err := io.Copy(hasher, r)
	if err != nil {
		return domain.Digest{}, 0, err
	}
	var digest domain.Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, uint64(n), nil
}
