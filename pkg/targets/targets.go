// Package targets describes the downstream tool ecosystems agentconf installs
// into. The table is fixed and ordered; only the root directories can be
// relocated by configuration.
package targets

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/agentconf/pkg/document"
	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/mcp"
	"github.com/arthur-debert/agentconf/pkg/merge"
	"github.com/arthur-debert/agentconf/pkg/paths"
)

// Target names
const (
	Claude   = "claude"
	OpenCode = "opencode"
	Codex    = "codex"
	Gemini   = "gemini"
)

// Static maps a directory of documents in the source tree to a directory
// under the target root.
type Static struct {
	Source string
	Dest   string
	// Managed lists the file names agentconf is known to ship here
	Managed []string
}

// Managed is the inventory of settings agentconf is known to introduce.
// Uninstall removes exactly these and nothing else.
type Managed struct {
	EnvKey       string
	EnvVars      []string
	HookKey      string
	HookCommands []string
	Servers      []string
}

// Target is one ecosystem's configuration store
type Target struct {
	Name        string
	Description string
	Root        string

	// SettingsSource is the fragment's file name under <source>/<name>/
	SettingsSource string
	// SettingsFile is the settings document relative to Root
	SettingsFile string
	Format       document.Format
	Override     merge.KeySet
	ArrayMerge   merge.KeySet

	// RegistryKey receives the projection of the shared MCP registry
	RegistryKey string
	Project     mcp.Projection

	Statics []Static
	TopDoc  string
	Managed Managed
}

// SettingsPath returns the absolute settings document path
func (t Target) SettingsPath() string {
	return filepath.Join(t.Root, t.SettingsFile)
}

// TopDocPath returns the absolute top-level instructions document path
func (t Target) TopDocPath() string {
	return filepath.Join(t.Root, t.TopDoc)
}

// Defaults returns the fixed target table in install order
func Defaults(home, configHome string) []Target {
	return []Target{
		{
			Name:           Claude,
			Description:    "Claude Code (~/.claude)",
			Root:           filepath.Join(home, ".claude"),
			SettingsSource: "settings.json",
			SettingsFile:   "settings.json",
			Format:         document.JSON,
			Override:       merge.NewKeySet("mcpServers"),
			ArrayMerge:     merge.NewKeySet("hooks.*", "permissions.allow", "permissions.deny"),
			RegistryKey:    "mcpServers",
			Project:        mcp.Passthrough,
			Statics: []Static{
				{Source: "agents", Dest: "agents", Managed: managedAgents},
				{Source: "commands", Dest: "commands", Managed: managedCommands},
			},
			TopDoc: "CLAUDE.md",
			Managed: Managed{
				EnvKey:       "env",
				EnvVars:      managedEnvVars,
				HookKey:      "hooks",
				HookCommands: managedHookCommands,
				Servers:      managedServers,
			},
		},
		{
			Name:           OpenCode,
			Description:    "OpenCode ($XDG_CONFIG_HOME/opencode)",
			Root:           filepath.Join(configHome, "opencode"),
			SettingsSource: "opencode.json",
			SettingsFile:   "opencode.json",
			Format:         document.JSON,
			Override:       merge.NewKeySet("mcp"),
			ArrayMerge:     merge.NewKeySet("instructions", "plugin"),
			RegistryKey:    "mcp",
			Project:        mcp.OpenCode,
			Statics: []Static{
				{Source: "agents", Dest: "agent", Managed: managedAgents},
				{Source: "commands", Dest: "command", Managed: managedCommands},
			},
			TopDoc: "AGENTS.md",
			Managed: Managed{
				Servers: sanitized(managedServers),
			},
		},
		{
			Name:           Codex,
			Description:    "Codex CLI (~/.codex)",
			Root:           filepath.Join(home, ".codex"),
			SettingsSource: "config.toml",
			SettingsFile:   "config.toml",
			Format:         document.TOML,
			Override:       merge.NewKeySet("mcp_servers"),
			RegistryKey:    "mcp_servers",
			Project:        mcp.Codex,
			Statics: []Static{
				{Source: "prompts", Dest: "prompts", Managed: managedCommands},
			},
			TopDoc: "AGENTS.md",
			Managed: Managed{
				Servers: sanitized(managedServers),
			},
		},
		{
			Name:           Gemini,
			Description:    "Gemini CLI (~/.gemini)",
			Root:           filepath.Join(home, ".gemini"),
			SettingsSource: "settings.json",
			SettingsFile:   "settings.json",
			Format:         document.JSON,
			Override:       merge.NewKeySet("mcpServers"),
			ArrayMerge:     merge.NewKeySet("hooks.*"),
			RegistryKey:    "mcpServers",
			Project:        mcp.Passthrough,
			Statics: []Static{
				{Source: "commands", Dest: "commands", Managed: managedCommands},
			},
			TopDoc: "GEMINI.md",
			Managed: Managed{
				Servers: managedServers,
			},
		},
	}
}

// ForPaths returns the target table rooted at the user's directories
func ForPaths(p *paths.Paths) []Target {
	return Defaults(p.Home(), p.XDGConfigHome())
}

// Names returns the target names in install order
func Names() []string {
	all := Defaults("", "")
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name
	}
	return names
}

// Select filters all down to names, keeping install order. No names selects
// every target.
func Select(all []Target, names []string) ([]Target, error) {
	if len(names) == 0 {
		return all, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if !known(all, n) {
			return nil, errors.Newf(errors.ErrTargetUnknown, "unknown target %q", n).
				WithDetail("hint", fmt.Sprintf("known targets: %s", strings.Join(Names(), ", ")))
		}
		wanted[n] = true
	}

	var out []Target
	for _, t := range all {
		if wanted[t.Name] {
			out = append(out, t)
		}
	}
	return out, nil
}

// WithRoots relocates targets whose name appears in roots
func WithRoots(all []Target, roots map[string]string) []Target {
	out := make([]Target, len(all))
	for i, t := range all {
		if root, ok := roots[t.Name]; ok && root != "" {
			t.Root = paths.ExpandHome(root)
		}
		out[i] = t
	}
	return out
}

func known(all []Target, name string) bool {
	for _, t := range all {
		if t.Name == name {
			return true
		}
	}
	return false
}

func sanitized(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = mcp.SanitizeName(n)
	}
	return out
}
