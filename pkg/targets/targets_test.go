package targets_test

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/agentconf/pkg/document"
	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/paths"
	"github.com/arthur-debert/agentconf/pkg/targets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsOrderAndLayout(t *testing.T) {
	all := targets.Defaults("/home/u", "/home/u/.config")
	assert.Equal(t, []string{"claude", "opencode", "codex", "gemini"}, targets.Names())
	require.Len(t, all, 4)

	claude := all[0]
	assert.Equal(t, "/home/u/.claude/settings.json", claude.SettingsPath())
	assert.Equal(t, "/home/u/.claude/CLAUDE.md", claude.TopDocPath())
	assert.True(t, claude.Override.Covers(document.ParsePath("mcpServers.x")))
	assert.True(t, claude.ArrayMerge.Covers(document.ParsePath("hooks.PreToolUse")))

	opencode := all[1]
	assert.Equal(t, filepath.Join("/home/u/.config", "opencode"), opencode.Root)
	assert.Equal(t, "agent", opencode.Statics[0].Dest)
	assert.Contains(t, opencode.Managed.Servers, "DeepGraph_TypeScript_MCP")

	codex := all[2]
	assert.Equal(t, document.TOML, codex.Format)
	assert.Equal(t, "mcp_servers", codex.RegistryKey)
}

func TestEveryTargetKeepsItsRegistryUnderOverride(t *testing.T) {
	for _, tg := range targets.Defaults("/h", "/c") {
		t.Run(tg.Name, func(t *testing.T) {
			require.NotNil(t, tg.Project)
			assert.True(t, tg.Override.Covers(document.Path{tg.RegistryKey}),
				"a projected registry must replace the previous one")
			for _, s := range tg.Statics {
				assert.NoError(t, paths.ValidateSegment(s.Source))
				assert.NoError(t, paths.ValidateSegment(s.Dest))
			}
		})
	}
}

func TestSelect(t *testing.T) {
	all := targets.Defaults("/h", "/c")

	got, err := targets.Select(all, nil)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	got, err = targets.Select(all, []string{"gemini", "Claude"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "claude", got[0].Name, "install order is kept")
	assert.Equal(t, "gemini", got[1].Name)

	_, err = targets.Select(all, []string{"vim"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTargetUnknown))
	assert.Contains(t, errors.Hint(err), "claude")
}

func TestWithRoots(t *testing.T) {
	t.Setenv("HOME", "/home/u")
	all := targets.WithRoots(targets.Defaults("/h", "/c"), map[string]string{
		"codex":  "~/work/codex",
		"gemini": "",
	})
	assert.Equal(t, "/home/u/work/codex", all[2].Root)
	assert.Equal(t, "/h/.gemini", all[3].Root)
	assert.Equal(t, "/h/.claude", all[0].Root)
}
