// Package config handles configuration management for agentconf.
// Configuration is layered: embedded defaults, then the user's TOML file,
// then AGENTCONF_* environment variables. Command-line flags are applied
// on top by the CLI.
package config

// Config is the resolved agentconf configuration
type Config struct {
	Source   Source   `koanf:"source"`
	Targets  Targets  `koanf:"targets"`
	Diff     Diff     `koanf:"diff"`
	Manifest Manifest `koanf:"manifest"`

	// File is the user config file that was loaded, if any
	File string `koanf:"-"`
}

// Source locates the source tree
type Source struct {
	Dir        string `koanf:"dir"`
	Repository string `koanf:"repository"`
	Branch     string `koanf:"branch"`
}

// Targets selects and relocates targets
type Targets struct {
	Enabled []string `koanf:"enabled"`
	// Roots overrides a target's root directory, by target name
	Roots map[string]string `koanf:"roots"`
}

// Diff configures dry-run rendering
type Diff struct {
	Renderers    []string `koanf:"renderers"`
	ExternalTool string   `koanf:"external_tool"`
	PreviewLines int      `koanf:"preview_lines"`
}

// Manifest locates the install manifest
type Manifest struct {
	Path string `koanf:"path"`
}
