package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/agentconf/pkg/errors"
)

// Environment variable names
const (
	// EnvConfigDir overrides the XDG config directory for agentconf
	EnvConfigDir = "AGENTCONF_CONFIG_DIR"

	// EnvStateDir overrides the XDG state directory for agentconf
	EnvStateDir = "AGENTCONF_STATE_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Fixed file names inside agentconf's own directories.
const (
	AppDirName       = "agentconf"
	ConfigFileName   = "config.toml"
	ManifestFileName = "manifest.json"
	LogFileName      = "agentconf.log"
)

// Paths locates agentconf's own files
type Paths struct {
	home      string
	configDir string
	stateDir  string
}

// New resolves agentconf's directories from the environment
func New() (*Paths, error) {
	// xdg caches the environment at init; tests and wrappers change it later
	xdg.Reload()

	home, err := homeDir()
	if err != nil {
		return nil, err
	}

	p := &Paths{home: home}

	if dir := os.Getenv(EnvConfigDir); dir != "" {
		p.configDir = ExpandHome(dir)
	} else {
		p.configDir = filepath.Join(xdg.ConfigHome, AppDirName)
	}

	if dir := os.Getenv(EnvStateDir); dir != "" {
		p.stateDir = ExpandHome(dir)
	} else {
		p.stateDir = filepath.Join(xdg.StateHome, AppDirName)
	}

	return p, nil
}

// Home returns the user's home directory
func (p *Paths) Home() string { return p.home }

// ConfigDir returns agentconf's config directory
func (p *Paths) ConfigDir() string { return p.configDir }

// StateDir returns agentconf's state directory
func (p *Paths) StateDir() string { return p.stateDir }

// ConfigFilePath returns the default user config file location
func (p *Paths) ConfigFilePath() string {
	return filepath.Join(p.configDir, ConfigFileName)
}

// ManifestPath returns the default manifest location
func (p *Paths) ManifestPath() string {
	return filepath.Join(p.stateDir, ManifestFileName)
}

// XDGConfigHome returns the base config directory shared by all tools,
// used by targets that live under ~/.config.
func (p *Paths) XDGConfigHome() string {
	return xdg.ConfigHome
}

func homeDir() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "cannot determine home directory")
	}
	return home, nil
}

// ExpandHome expands a leading ~ or ~/ to the user's home directory.
// It is meant for trusted paths (flags, config) only; source tree names
// starting with ~ are rejected by ValidateSegment instead.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	home, err := homeDir()
	if err != nil {
		return path
	}

	if len(path) == 1 {
		return home
	}

	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(home, path[2:])
	}

	// ~user forms are not expanded
	return path
}
