package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRespectsOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvConfigDir, "~/cfg")
	t.Setenv(EnvStateDir, filepath.Join(home, "state"))

	p, err := New()
	require.NoError(t, err)

	assert.Equal(t, home, p.Home())
	assert.Equal(t, filepath.Join(home, "cfg"), p.ConfigDir())
	assert.Equal(t, filepath.Join(home, "cfg", "config.toml"), p.ConfigFilePath())
	assert.Equal(t, filepath.Join(home, "state", "manifest.json"), p.ManifestPath())
}

func TestNewUsesXDG(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvConfigDir, "")
	t.Setenv(EnvStateDir, "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg-config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "xdg-state"))

	p, err := New()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "xdg-config", "agentconf"), p.ConfigDir())
	assert.Equal(t, filepath.Join(home, "xdg-state", "agentconf"), p.StateDir())
	assert.Equal(t, filepath.Join(home, "xdg-config"), p.XDGConfigHome())
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/dotagents", filepath.Join(home, "dotagents")},
		{"~other/x", "~other/x"},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandHome(tt.in), "ExpandHome(%q)", tt.in)
	}
}
