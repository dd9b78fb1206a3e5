package installer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/agentconf/pkg/backup"
	"github.com/arthur-debert/agentconf/pkg/diff"
	"github.com/arthur-debert/agentconf/pkg/document"
	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/installer"
	"github.com/arthur-debert/agentconf/pkg/manifest"
	"github.com/arthur-debert/agentconf/pkg/source"
	"github.com/arthur-debert/agentconf/pkg/targets"
	"github.com/arthur-debert/agentconf/pkg/ui/styles"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	styles.SetColor(false)
}

type fixture struct {
	src      string
	home     string
	tree     *source.Tree
	targets  []targets.Target
	store    *manifest.Store
	manifest string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		src:      filepath.Join(root, "src"),
		home:     filepath.Join(root, "home"),
		manifest: filepath.Join(root, "state", "manifest.json"),
	}
	f.tree = &source.Tree{Root: f.src}
	f.targets = targets.Defaults(f.home, filepath.Join(f.home, ".config"))
	f.store = manifest.NewStore(afero.NewOsFs(), f.manifest)
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func (f *fixture) source(t *testing.T, rel, content string) {
	writeFile(t, filepath.Join(f.src, rel), content)
}

func (f *fixture) existing(t *testing.T, rel, content string) {
	writeFile(t, filepath.Join(f.home, rel), content)
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.home, rel))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) options(names ...string) installer.Options {
	sel, _ := targets.Select(f.targets, names)
	return installer.Options{
		Tree:     f.tree,
		Targets:  sel,
		Force:    true,
		Manifest: f.store,
	}
}

func compact(t *testing.T, data string) string {
	t.Helper()
	v, err := document.DecodeJSON([]byte(data))
	require.NoError(t, err)
	out, err := document.EncodeJSONCompact(v)
	require.NoError(t, err)
	return string(out)
}

const claudeFragment = `{
  "env": {"B": "2"},
  "hooks": {
    "PreToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "agentconf-hook fmt"}]}]
  }
}
`

const registry = `{
  "mcpServers": {
    "context7": {"type": "sse", "url": "https://mcp.context7.com/sse"},
    "playwright": {"command": "bun", "args": ["x", "@playwright/mcp@latest"]}
  }
}
`

func TestInstallWritesFragmentVerbatimWhenAbsent(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/settings.json", claudeFragment)

	_, err := installer.Run(context.Background(), f.options("claude"))
	require.NoError(t, err)
	assert.Equal(t, claudeFragment, f.read(t, ".claude/settings.json"))
}

func TestInstallBlankExistingIsTreatedAsAbsent(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/settings.json", claudeFragment)
	f.existing(t, ".claude/settings.json", "\n")

	_, err := installer.Run(context.Background(), f.options("claude"))
	require.NoError(t, err)
	assert.Equal(t, claudeFragment, f.read(t, ".claude/settings.json"))
}

func TestInstallMergesIntoExistingSettings(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/settings.json", claudeFragment)
	f.source(t, "mcp/servers.json", registry)
	original := `{
  "theme": "dark",
  "env": {"A": "1"},
  "hooks": {"PreToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "user.sh"}]}]},
  "mcpServers": {"old": {"command": "x"}}
}
`
	f.existing(t, ".claude/settings.json", original)

	res, err := installer.Run(context.Background(), f.options("claude"))
	require.NoError(t, err)

	want := `{"theme":"dark","env":{"A":"1","B":"2"},` +
		`"hooks":{"PreToolUse":[` +
		`{"matcher":"Bash","hooks":[{"type":"command","command":"user.sh"}]},` +
		`{"matcher":"Bash","hooks":[{"type":"command","command":"agentconf-hook fmt"}]}]},` +
		`"mcpServers":{"context7":{"type":"sse","url":"https://mcp.context7.com/sse"},"playwright":{"command":"bun","args":["x","@playwright/mcp@latest"]}}}`
	assert.Equal(t, want, compact(t, f.read(t, ".claude/settings.json")))

	require.Len(t, res.Targets, 1)
	require.Len(t, res.Targets[0].Applied.Backups, 1)
	saved, err := os.ReadFile(res.Targets[0].Applied.Backups[0])
	require.NoError(t, err)
	assert.Equal(t, original, string(saved), "backup holds the pre-merge bytes")
}

func TestInstallProjectsRegistryForOpenCode(t *testing.T) {
	f := newFixture(t)
	f.source(t, "mcp/servers.json", registry)
	f.source(t, "opencode/opencode.json", `{"$schema": "https://opencode.ai/config.json", "instructions": ["AGENTS.md"]}`)
	f.existing(t, ".config/opencode/opencode.json", `{"theme": "tokyonight", "instructions": ["mine.md"]}`)

	_, err := installer.Run(context.Background(), f.options("opencode"))
	require.NoError(t, err)

	want := `{"theme":"tokyonight","instructions":["mine.md","AGENTS.md"],"$schema":"https://opencode.ai/config.json",` +
		`"mcp":{"context7":{"enabled":true,"type":"remote","url":"https://mcp.context7.com/sse"},` +
		`"playwright":{"enabled":true,"type":"local","command":["bun","x","@playwright/mcp@latest"]}}}`
	assert.Equal(t, want, compact(t, f.read(t, ".config/opencode/opencode.json")))
}

func TestInstallMergesCodexTOML(t *testing.T) {
	f := newFixture(t)
	f.source(t, "mcp/servers.json", registry)
	f.source(t, "codex/config.toml", "model = \"o3\"\n\n[tui]\nnotifications = true\n")
	f.existing(t, ".codex/config.toml", "approval_policy = \"on-request\"\nmodel = \"gpt-4\"\n\n[mcp_servers.old]\ncommand = \"x\"\n")

	res, err := installer.Run(context.Background(), f.options("codex"))
	require.NoError(t, err)

	got, err := document.DecodeTOML([]byte(f.read(t, ".codex/config.toml")))
	require.NoError(t, err)

	model, _ := got.Lookup(document.Path{"model"})
	assert.Equal(t, "o3", model.Str())
	policy, _ := got.Lookup(document.Path{"approval_policy"})
	assert.Equal(t, "on-request", policy.Str())
	servers, _ := got.Lookup(document.Path{"mcp_servers"})
	assert.Equal(t, []string{"playwright"}, servers.Map().Keys(), "old entries are replaced, remote ones skipped")

	warnings := strings.Join(res.Targets[0].Plan.Warnings, "\n")
	assert.Contains(t, warnings, "context7")
}

func TestRerunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/settings.json", claudeFragment)
	f.source(t, "mcp/servers.json", registry)
	f.source(t, "claude/agents/reviewer.md", "---\nname: reviewer\ndescription: d\n---\n")
	f.existing(t, ".claude/settings.json", `{"env": {"A": "1"}, "hooks": {"PreToolUse": []}}`)

	_, err := installer.Run(context.Background(), f.options("claude"))
	require.NoError(t, err)
	first := f.read(t, ".claude/settings.json")

	res, err := installer.Run(context.Background(), f.options("claude"))
	require.NoError(t, err)
	assert.Equal(t, first, f.read(t, ".claude/settings.json"))
	assert.Empty(t, res.Targets[0].Plan.Pending(), "second run has nothing to do")
	assert.Empty(t, res.Targets[0].Applied.Backups)
}

func TestDryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/settings.json", claudeFragment)
	f.source(t, "claude/agents/reviewer.md", "---\nname: reviewer\ndescription: d\n---\nReview.\n")
	f.source(t, "claude/CLAUDE.md", "# Rules\n")
	f.existing(t, ".claude/settings.json", "{\n  \"env\": {\n    \"A\": \"1\"\n  }\n}\n")

	settings := filepath.Join(f.home, ".claude", "settings.json")
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(settings, old, old))
	before, err := os.Stat(settings)
	require.NoError(t, err)

	var out bytes.Buffer
	opts := f.options("claude")
	opts.DryRun = true
	opts.Force = false
	opts.Out = &out
	opts.Preview = diff.New(diff.Options{Renderers: []string{"unified"}})

	res, err := installer.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, res.DryRun)

	after, err := os.Stat(settings)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	assert.Equal(t, before.Size(), after.Size())

	entries, err := os.ReadDir(filepath.Join(f.home, ".claude"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no backups, agents or docs were created")
	assert.NoFileExists(t, f.manifest)

	text := out.String()
	assert.Contains(t, text, `+    "B": "2"`)
	assert.Contains(t, text, "new       "+filepath.Join(f.home, ".claude", "agents", "reviewer.md"))
	assert.Contains(t, text, "# Rules")
}

// hostileFs injects directory entries a real listing could not produce
type hostileFs struct {
	afero.Fs
	dir   string
	names []string
}

func (h hostileFs) Open(name string) (afero.File, error) {
	f, err := h.Fs.Open(name)
	if err != nil || filepath.Clean(name) != h.dir {
		return f, err
	}
	return hostileDir{File: f, names: h.names}, nil
}

type hostileDir struct {
	afero.File
	names []string
}

func (d hostileDir) Readdir(n int) ([]os.FileInfo, error) {
	infos, err := d.File.Readdir(n)
	for _, name := range d.names {
		infos = append(infos, fakeInfo(name))
	}
	return infos, err
}

type fakeInfo string

func (f fakeInfo) Name() string       { return string(f) }
func (f fakeInfo) Size() int64        { return 0 }
func (f fakeInfo) Mode() os.FileMode  { return 0644 }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return false }
func (f fakeInfo) Sys() interface{}   { return nil }

func TestInvalidNamesAreSkippedAndSiblingsInstalled(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/commands/one.md", "1")
	f.source(t, "claude/commands/two.md", "2")
	f.source(t, "claude/commands/a;b.md", "bad")

	opts := f.options("claude")
	opts.SourceFs = hostileFs{
		Fs:    afero.NewOsFs(),
		dir:   filepath.Join(f.src, "claude", "commands"),
		names: []string{"../../etc/passwd"},
	}

	res, err := installer.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, "1", f.read(t, ".claude/commands/one.md"))
	assert.Equal(t, "2", f.read(t, ".claude/commands/two.md"))
	assert.NoFileExists(t, filepath.Join(f.home, ".claude", "commands", "a;b.md"))

	skipped := res.Targets[0].Plan.Skipped
	require.Len(t, skipped, 2)
	var names []string
	for _, s := range skipped {
		names = append(names, s.Name)
		assert.True(t, errors.IsErrorCode(s.Reason, errors.ErrInvalidPath))
	}
	assert.ElementsMatch(t, []string{"a;b.md", "../../etc/passwd"}, names)
}

func TestUnsafeDotNamesAreReportedNotIgnored(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/commands/one.md", "1")
	f.source(t, "claude/commands/.x;touch pwned", "bad")
	f.source(t, "claude/commands/.hidden.md", "hidden")
	require.NoError(t, os.MkdirAll(filepath.Join(f.src, "claude", "commands", "nested"), 0755))

	res, err := installer.Run(context.Background(), f.options("claude"))
	require.NoError(t, err)

	assert.Equal(t, "1", f.read(t, ".claude/commands/one.md"))
	assert.NoFileExists(t, filepath.Join(f.home, ".claude", "commands", ".hidden.md"))
	assert.NoDirExists(t, filepath.Join(f.home, ".claude", "commands", "nested"))

	skipped := res.Targets[0].Plan.Skipped
	require.Len(t, skipped, 1)
	assert.Equal(t, ".x;touch pwned", skipped[0].Name)
	assert.True(t, errors.IsErrorCode(skipped[0].Reason, errors.ErrInvalidPath))
}

func TestInvalidExistingDocumentIsSkippedNotFatal(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/settings.json", claudeFragment)
	f.source(t, "claude/CLAUDE.md", "# Rules\n")
	f.existing(t, ".claude/settings.json", "{broken")

	res, err := installer.Run(context.Background(), f.options("claude"))
	require.NoError(t, err)

	assert.Equal(t, "{broken", f.read(t, ".claude/settings.json"), "unparseable documents are never overwritten")
	assert.Equal(t, "# Rules\n", f.read(t, ".claude/CLAUDE.md"))
	require.Len(t, res.Targets[0].Plan.Skipped, 1)
	assert.True(t, errors.IsErrorCode(res.Targets[0].Plan.Skipped[0].Reason, errors.ErrParse))
}

func TestTypeConflictIsRecordedAndFragmentWins(t *testing.T) {
	f := newFixture(t)
	f.source(t, "gemini/settings.json", `{"theme": "GitHub"}`)
	f.existing(t, ".gemini/settings.json", `{"theme": {"name": "custom"}}`)

	res, err := installer.Run(context.Background(), f.options("gemini"))
	require.NoError(t, err)

	assert.Equal(t, `{"theme":"GitHub"}`, compact(t, f.read(t, ".gemini/settings.json")))
	plan := res.Targets[0].Plan
	require.Len(t, plan.Changes, 1)
	require.Len(t, plan.Changes[0].Conflicts, 1)
	assert.Len(t, plan.Warnings, 1)
}

func TestAgentFrontMatterProblemsWarnOnly(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/agents/bare.md", "no header\n")

	res, err := installer.Run(context.Background(), f.options("claude"))
	require.NoError(t, err)

	assert.Equal(t, "no header\n", f.read(t, ".claude/agents/bare.md"))
	assert.Equal(t, []string{"agents/bare.md: missing front matter"}, res.Targets[0].Plan.Warnings)
}

func TestStaticLayoutPerTarget(t *testing.T) {
	f := newFixture(t)
	f.source(t, "opencode/agents/a.md", "agent")
	f.source(t, "opencode/commands/c.md", "command")
	f.source(t, "opencode/AGENTS.md", "rules")
	f.source(t, "codex/prompts/p.md", "prompt")
	f.source(t, "opencode/commands/.DS_Store", "junk")

	_, err := installer.Run(context.Background(), f.options())
	require.NoError(t, err)

	assert.Equal(t, "agent", f.read(t, ".config/opencode/agent/a.md"))
	assert.Equal(t, "command", f.read(t, ".config/opencode/command/c.md"))
	assert.Equal(t, "rules", f.read(t, ".config/opencode/AGENTS.md"))
	assert.Equal(t, "prompt", f.read(t, ".codex/prompts/p.md"))
	assert.NoFileExists(t, filepath.Join(f.home, ".config", "opencode", "command", ".DS_Store"))
	assert.NoDirExists(t, filepath.Join(f.home, ".gemini"), "targets without sources are left alone")
}

func TestManifestRecordsWrittenPathsOnce(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/settings.json", claudeFragment)
	f.source(t, "claude/CLAUDE.md", "# Rules\n")
	f.source(t, "gemini/GEMINI.md", "# Gemini\n")

	_, err := installer.Run(context.Background(), f.options())
	require.NoError(t, err)

	m, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"claude", "gemini"}, m.TargetNames())
	assert.True(t, m.Lists("claude", filepath.Join(f.home, ".claude", "CLAUDE.md")))
	assert.True(t, m.Lists("claude", filepath.Join(f.home, ".claude", "settings.json")))
	assert.True(t, m.Lists("gemini", filepath.Join(f.home, ".gemini", "GEMINI.md")))
}

type answer bool

func (a answer) Confirm(*installer.Plan) (bool, error) { return bool(a), nil }

func TestDeclinedTargetIsLeftUntouched(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/CLAUDE.md", "# Rules\n")

	opts := f.options("claude")
	opts.Force = false
	opts.Confirm = answer(false)

	res, err := installer.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, res.Targets[0].Declined)
	assert.NoFileExists(t, filepath.Join(f.home, ".claude", "CLAUDE.md"))
	assert.NoFileExists(t, f.manifest)

	opts.Confirm = answer(true)
	_, err = installer.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(f.home, ".claude", "CLAUDE.md"))
}

func TestCancelledRunStopsBeforeNextTarget(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/CLAUDE.md", "# Rules\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := installer.Run(ctx, f.options())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCancelled))
	assert.NoFileExists(t, filepath.Join(f.home, ".claude", "CLAUDE.md"))
}

// cancelOnConfirm approves the plan and interrupts the run
type cancelOnConfirm struct{ cancel context.CancelFunc }

func (c cancelOnConfirm) Confirm(*installer.Plan) (bool, error) {
	c.cancel()
	return true, nil
}

func TestInterruptedRunKeepsFinishedTargetsInManifest(t *testing.T) {
	f := newFixture(t)
	f.source(t, "claude/CLAUDE.md", "# Rules\n")
	f.source(t, "gemini/GEMINI.md", "# Gemini\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := f.options()
	opts.Force = false
	opts.Confirm = cancelOnConfirm{cancel: cancel}

	_, err := installer.Run(ctx, opts)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCancelled))
	assert.FileExists(t, filepath.Join(f.home, ".claude", "CLAUDE.md"))
	assert.NoFileExists(t, filepath.Join(f.home, ".gemini", "GEMINI.md"))

	m, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"claude"}, m.TargetNames())
	assert.True(t, m.Lists("claude", filepath.Join(f.home, ".claude", "CLAUDE.md")))
}

func TestBackupFailureLeavesFileUntouched(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/h/.claude/CLAUDE.md"
	require.NoError(t, afero.WriteFile(fs, path, []byte("old"), 0644))

	plan := &installer.Plan{
		Target: targets.Target{Name: "claude"},
		Changes: []installer.Change{
			{Path: path, Kind: installer.Update, Before: []byte("old"), After: []byte("new")},
			{Path: "/h/.claude/agents/a.md", Kind: installer.Create, After: []byte("a")},
		},
	}
	// Backups go to a read-only view, so the first change cannot be backed up
	applier := installer.NewApplier(fs, backup.NewManager(afero.NewReadOnlyFs(fs)))
	applied := applier.Apply(plan)

	require.Len(t, applied.Failed, 1)
	assert.Equal(t, path, applied.Failed[0].Path)
	data, _ := afero.ReadFile(fs, path)
	assert.Equal(t, "old", string(data))
	assert.Equal(t, []string{"/h/.claude/agents/a.md"}, applied.Written)
}

func TestLoadFragment(t *testing.T) {
	fs := afero.NewMemMapFs()

	frag, err := installer.LoadFragment(fs, "/src/missing.json")
	require.NoError(t, err)
	assert.Nil(t, frag)

	require.NoError(t, afero.WriteFile(fs, "/src/blank.json", []byte("  \n"), 0644))
	frag, err = installer.LoadFragment(fs, "/src/blank.json")
	require.NoError(t, err)
	assert.Nil(t, frag)

	require.NoError(t, afero.WriteFile(fs, "/src/bad.toml", []byte("= nope"), 0644))
	_, err = installer.LoadFragment(fs, "/src/bad.toml")
	assert.True(t, errors.IsErrorCode(err, errors.ErrParse))

	require.NoError(t, afero.WriteFile(fs, "/src/ok.toml", []byte("a = 1\n"), 0644))
	frag, err = installer.LoadFragment(fs, "/src/ok.toml")
	require.NoError(t, err)
	assert.Equal(t, document.TOML, frag.Format)
}
