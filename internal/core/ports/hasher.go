// Package ports defines the interfaces between the core and the adapters.
package ports

import "go.trai.ch/cargo-hold/internal/core/domain"

// Hasher computes content digests of single files.
type Hasher interface {
	// Hash returns the byte length and BLAKE3 digest of the file at
	// path. It has no side effects and is safe to invoke concurrently
	// on distinct paths.
	Hash(path string) (uint64, domain.Digest, error)
}
