package source_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocalDirectory(t *testing.T) {
	dir := t.TempDir()

	tree, err := source.Resolve(context.Background(), source.Options{Dir: dir, Repository: "https://example.invalid/x.git"})
	require.NoError(t, err)
	assert.Equal(t, dir, tree.Root)
	assert.False(t, tree.Cloned)

	require.NoError(t, tree.Close())
	assert.DirExists(t, dir, "local trees are never removed")
	assert.Equal(t, filepath.Join(dir, "mcp", "servers.json"), tree.RegistryPath())
}

func TestResolveWithoutSource(t *testing.T) {
	_, err := source.Resolve(context.Background(), source.Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	assert.NotEmpty(t, errors.Hint(err))

	_, err = source.Resolve(context.Background(), source.Options{Dir: filepath.Join(t.TempDir(), "missing")})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestCheckDependenciesMissingGit(t *testing.T) {
	opts := source.Options{Repository: "https://example.invalid/x.git", Git: "agentconf-no-such-git"}
	require.True(t, source.NeedsClone(opts))

	err := source.CheckDependencies(opts)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDependencyMissing))
	assert.Contains(t, errors.Hint(err), "agentconf-no-such-git")
	assert.Equal(t, errors.ExitFailure, errors.ExitCode(err))

	_, err = source.Resolve(context.Background(), opts)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDependencyMissing))
}

func TestCheckDependenciesLocalTreeNeedsNoGit(t *testing.T) {
	opts := source.Options{Dir: t.TempDir(), Repository: "https://example.invalid/x.git", Git: "agentconf-no-such-git"}
	assert.False(t, source.NeedsClone(opts))
	assert.NoError(t, source.CheckDependencies(opts))
}

func TestTreePathRejectsTraversal(t *testing.T) {
	tree := &source.Tree{Root: "/src"}
	_, err := tree.Path("claude", "../../etc")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidPath))

	p, err := tree.Path("claude", "agents")
	require.NoError(t, err)
	assert.Equal(t, "/src/claude/agents", p)
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func TestCloneFailureCleansUp(t *testing.T) {
	requireGit(t)

	before, _ := filepath.Glob(filepath.Join(os.TempDir(), "agentconf-source-*"))
	_, err := source.Resolve(context.Background(), source.Options{Repository: filepath.Join(t.TempDir(), "not-a-repo")})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCloneFailed))
	assert.Contains(t, errors.Hint(err), "network")

	after, _ := filepath.Glob(filepath.Join(os.TempDir(), "agentconf-source-*"))
	assert.Len(t, after, len(before), "failed clones leave no directory behind")
}

func TestCloneAndClose(t *testing.T) {
	requireGit(t)

	repo := t.TempDir()
	git := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", repo}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@example.com",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@example.com")
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	git("init", "-q")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "mcp"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "mcp", "servers.json"), []byte(`{"mcpServers":{}}`), 0644))
	git("add", ".")
	git("commit", "-q", "-m", "init")

	tree, err := source.Resolve(context.Background(), source.Options{Repository: "file://" + repo})
	require.NoError(t, err)
	assert.True(t, tree.Cloned)
	assert.FileExists(t, tree.RegistryPath())

	require.NoError(t, tree.Close())
	assert.NoDirExists(t, tree.Root)
}
