package ports

import "context"

// FileLister enumerates the version-controlled files of a workspace.
type FileLister interface {
	// RepoRoot resolves the workspace root for a directory inside a
	// checkout. Returns domain.ErrVcsUnavailable when dir is not part
	// of one.
	RepoRoot(ctx context.Context, dir string) (string, error)

	// ListTracked returns the workspace-relative paths of all tracked
	// files under root, honoring the VCS's ignore rules. Untracked and
	// ignored files are excluded. recurseSubmodules extends the set
	// into submodule working trees.
	ListTracked(ctx context.Context, root string, recurseSubmodules bool) ([]string, error)
}
