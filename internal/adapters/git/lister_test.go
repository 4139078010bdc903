package git_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cargo-hold/internal/adapters/git"
	"go.trai.ch/cargo-hold/internal/core/domain"
)

// initRepo creates a throwaway git repository with the given files
// committed. Tests are skipped when git is not installed.
func initRepo(t *testing.T, files map[string]string) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	mustGit(t, dir, "init", "-q")
	mustGit(t, dir, "config", "user.email", "test@example.com")
	mustGit(t, dir, "config", "user.name", "test")

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
		require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
	}
	mustGit(t, dir, "add", ".")
	mustGit(t, dir, "commit", "-q", "-m", "init")

	return dir
}

func mustGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func TestLister_ListTracked(t *testing.T) {
	dir := initRepo(t, map[string]string{
		"Cargo.toml":  "[package]",
		"src/main.rs": "fn main() {}",
	})

	// Untracked and ignored files must not appear.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "untracked.txt"), []byte("x"), domain.FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("ignored.txt\n"), domain.FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), domain.FilePerm))

	lister := git.NewLister()
	paths, err := lister.ListTracked(context.Background(), dir, false)
	require.NoError(t, err)

	assert.Contains(t, paths, "Cargo.toml")
	assert.Contains(t, paths, "src/main.rs")
	assert.NotContains(t, paths, "untracked.txt")
	assert.NotContains(t, paths, "ignored.txt")
	assert.NotContains(t, paths, ".gitignore")
}

func TestLister_RepoRootFromSubdirectory(t *testing.T) {
	dir := initRepo(t, map[string]string{"src/lib.rs": ""})

	lister := git.NewLister()
	root, err := lister.RepoRoot(context.Background(), filepath.Join(dir, "src"))
	require.NoError(t, err)

	wantRoot, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
}

func TestLister_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	lister := git.NewLister()
	_, err := lister.RepoRoot(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVcsUnavailable)
}
