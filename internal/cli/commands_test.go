package cli_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/agentconf/internal/cli"
	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fragment = "{\n  \"env\": {\n    \"BASH_MAX_TIMEOUT_MS\": \"600000\"\n  }\n}\n"

func newSandbox(t *testing.T) *testutil.Environment {
	t.Helper()
	env := testutil.NewEnvironment(t)
	env.WriteSource("claude/settings.json", fragment)
	env.WriteSource("claude/agents/debugger.md", "---\nname: debugger\ndescription: d\n---\nbody\n")
	return env
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInstallForce(t *testing.T) {
	s := newSandbox(t)

	out, err := execute(t, "--force", "--source", s.Source, "--target", "claude")
	require.NoError(t, err)

	assert.Equal(t, fragment, s.ReadHome(".claude/settings.json"))
	assert.FileExists(t, s.HomePath(".claude", "agents", "debugger.md"))
	assert.Contains(t, out, "installed")
	assert.NoDirExists(t, s.HomePath(".codex"), "unselected targets are not touched")
}

func TestInstallDryRunWritesNothing(t *testing.T) {
	s := newSandbox(t)

	out, err := execute(t, "--dry-run", "--source", s.Source)
	require.NoError(t, err)

	assert.NoDirExists(t, s.HomePath(".claude"))
	assert.Contains(t, out, "==> claude")
	assert.Contains(t, out, "dry run")
}

func TestUninstallAfterInstall(t *testing.T) {
	s := newSandbox(t)
	s.WriteHome(".claude/settings.json", `{"theme": "dark"}`)

	_, err := execute(t, "--force", "--source", s.Source, "-t", "claude")
	require.NoError(t, err)

	out, err := execute(t, "uninstall", "--force", "--target", "claude")
	require.NoError(t, err)
	assert.Contains(t, out, "removed")

	assert.JSONEq(t, `{"theme": "dark"}`, s.ReadHome(".claude/settings.json"))
	assert.NoFileExists(t, s.HomePath(".claude", "agents", "debugger.md"))
}

func TestTargetsCommand(t *testing.T) {
	newSandbox(t)

	out, err := execute(t, "targets", "--target", "gemini")
	require.NoError(t, err)
	for _, name := range []string{"claude", "opencode", "codex", "gemini"} {
		assert.Contains(t, out, name)
	}
}

func TestVersionCommand(t *testing.T) {
	newSandbox(t)

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "agentconf version")
}

func TestUsageErrors(t *testing.T) {
	newSandbox(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--bogus"}},
		{"stray argument", []string{"install-everything"}},
		{"unknown subcommand flag", []string{"uninstall", "--nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, errors.ExitUsage, errors.ExitCode(err))
			assert.NotEmpty(t, errors.Hint(err))
		})
	}
}

func TestUnknownTarget(t *testing.T) {
	s := newSandbox(t)

	_, err := execute(t, "--source", s.Source, "--target", "vim")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTargetUnknown))
	assert.Equal(t, errors.ExitFailure, errors.ExitCode(err))
}

func TestMissingSource(t *testing.T) {
	s := newSandbox(t)

	_, err := execute(t, "--source", filepath.Join(s.Source, "absent"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	assert.NotEmpty(t, errors.Hint(err))
}
