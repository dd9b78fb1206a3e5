package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/agentconf/pkg/paths"
	"github.com/stretchr/testify/require"
)

// Environment is an isolated machine for a test: a home directory holding
// the target stores, a source tree, and agentconf's own config and state
// directories.
type Environment struct {
	Root      string
	Home      string
	Source    string
	ConfigDir string
	StateDir  string
	Paths     *paths.Paths

	t *testing.T
}

// NewEnvironment creates the directories under t.TempDir() and points HOME,
// the XDG variables and agentconf's directory overrides at them for the
// duration of the test. Colour output is disabled.
func NewEnvironment(t *testing.T) *Environment {
	t.Helper()

	root := t.TempDir()
	env := &Environment{
		Root:      root,
		Home:      filepath.Join(root, "home"),
		Source:    filepath.Join(root, "src"),
		ConfigDir: filepath.Join(root, "config"),
		StateDir:  filepath.Join(root, "state"),
		t:         t,
	}
	for _, dir := range []string{env.Home, env.Source} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}

	t.Setenv(paths.EnvHome, env.Home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(env.Home, ".config"))
	t.Setenv("XDG_STATE_HOME", env.StateDir)
	t.Setenv(paths.EnvConfigDir, env.ConfigDir)
	t.Setenv(paths.EnvStateDir, env.StateDir)
	t.Setenv("NO_COLOR", "1")

	p, err := paths.New()
	require.NoError(t, err)
	env.Paths = p
	return env
}

// WriteSource writes a file of the source tree
func (env *Environment) WriteSource(rel, content string) string {
	env.t.Helper()
	return WriteFile(env.t, filepath.Join(env.Source, rel), content)
}

// WriteHome writes a file below the home directory
func (env *Environment) WriteHome(rel, content string) string {
	env.t.Helper()
	return WriteFile(env.t, filepath.Join(env.Home, rel), content)
}

// ReadHome reads a file below the home directory
func (env *Environment) ReadHome(rel string) string {
	env.t.Helper()
	return ReadFile(env.t, filepath.Join(env.Home, rel))
}

// HomePath joins rel below the home directory
func (env *Environment) HomePath(rel ...string) string {
	return filepath.Join(append([]string{env.Home}, rel...)...)
}
