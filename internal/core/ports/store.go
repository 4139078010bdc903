package ports

import "go.trai.ch/cargo-hold/internal/core/domain"

// ManifestStore persists the workspace manifest.
type ManifestStore interface {
	// Load reads the manifest at path. A missing file yields a fresh
	// empty manifest. A structurally invalid file yields
	// domain.ErrManifestCorrupt; callers decide whether to reset.
	Load(path string) (*domain.Manifest, error)

	// Persist atomically replaces the manifest at path. Partial writes
	// are never visible.
	Persist(path string, m *domain.Manifest) error

	// Delete removes the manifest file. Deleting a missing manifest is
	// not an error.
	Delete(path string) error
}
