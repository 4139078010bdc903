// Package git discovers version-controlled files by shelling out to git.
package git

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"go.trai.ch/cargo-hold/internal/core/domain"
	"go.trai.ch/cargo-hold/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FileLister = (*Lister)(nil)

// Lister enumerates tracked files with `git ls-files`. Shelling out
// keeps the dependency surface to the git binary every CI image already
// carries, and inherits git's own ignore handling for free.
type Lister struct{}

// NewLister creates a new Lister.
func NewLister() *Lister {
	return &Lister{}
}

// RepoRoot resolves the top-level workspace directory for dir.
func (l *Lister) RepoRoot(ctx context.Context, dir string) (string, error) {
	out, err := l.run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	root := strings.TrimRight(string(out), "\n")
	if root == "" {
		return "", zerr.With(zerr.Wrap(domain.ErrVcsUnavailable, "empty toplevel"), "dir", dir)
	}
	return root, nil
}

// ListTracked returns the workspace-relative paths of all entries in the
// git index. Without recurseSubmodules a submodule is listed as its
// gitlink path (a directory), which the state engine rejects as not a
// regular file; with it, the submodule's own tracked files are listed.
func (l *Lister) ListTracked(ctx context.Context, root string, recurseSubmodules bool) ([]string, error) {
	args := []string{"ls-files", "-z", "--full-name"}
	if recurseSubmodules {
		args = append(args, "--recurse-submodules")
	}

	out, err := l.run(ctx, root, args...)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, p := range bytes.Split(out, []byte{0}) {
		if len(p) > 0 {
			paths = append(paths, string(p))
		}
	}
	return paths, nil
}

func (l *Lister) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...) //nolint:gosec // Fixed binary, caller-controlled workspace path
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrVcsUnavailable, detail), "dir", dir), "args", strings.Join(args, " "))
	}
	return stdout.Bytes(), nil
}
