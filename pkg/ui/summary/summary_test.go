package summary_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/arthur-debert/agentconf/pkg/installer"
	"github.com/arthur-debert/agentconf/pkg/targets"
	"github.com/arthur-debert/agentconf/pkg/ui/styles"
	"github.com/arthur-debert/agentconf/pkg/ui/summary"
	"github.com/arthur-debert/agentconf/pkg/uninstall"
	"github.com/stretchr/testify/assert"
)

func init() {
	styles.SetColor(false)
}

func TestInstallTable(t *testing.T) {
	result := &installer.Result{Targets: []installer.TargetResult{
		{
			Target: "claude",
			Plan: &installer.Plan{
				Changes: []installer.Change{
					{Path: "/h/.claude/settings.json", Kind: installer.Update},
					{Path: "/h/.claude/CLAUDE.md", Kind: installer.Unchanged},
				},
				Skipped: []installer.Skip{{Step: "agents", Name: "../x.md"}},
			},
			Applied: installer.Applied{
				Written: []string{"/h/.claude/settings.json"},
				Backups: []string{"/h/.claude/settings.json.backup.1"},
			},
		},
		{Target: "codex", Plan: &installer.Plan{}},
		{
			Target:   "gemini",
			Plan:     &installer.Plan{Changes: []installer.Change{{Path: "/g", Kind: installer.Create}}},
			Declined: true,
		},
		{
			Target:  "opencode",
			Plan:    &installer.Plan{Changes: []installer.Change{{Path: "/o", Kind: installer.Create}}},
			Applied: installer.Applied{Failed: []installer.Failure{{Path: "/o", Err: errors.New("disk full")}}},
		},
	}}

	var buf bytes.Buffer
	summary.Install(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "TARGET")
	assert.Regexp(t, `\|\s*claude\s*\|\s*1\s*\|\s*1\s*\|\s*1\s*\|\s*0\s*\|\s*1\s*\|\s*installed\s*\|`, out)
	assert.Contains(t, out, "up to date")
	assert.Contains(t, out, "declined")
	assert.Contains(t, out, "failed /o: disk full")
}

func TestInstallDryRunCountsPending(t *testing.T) {
	result := &installer.Result{DryRun: true, Targets: []installer.TargetResult{{
		Target: "claude",
		Plan:   &installer.Plan{Changes: []installer.Change{{Kind: installer.Create}, {Kind: installer.Update}}},
	}}}

	var buf bytes.Buffer
	summary.Install(&buf, result)
	assert.Regexp(t, `\|\s*claude\s*\|\s*2\s*\|\s*0\s*\|`, buf.String())
	assert.Contains(t, buf.String(), "dry run")
}

func TestUninstallTable(t *testing.T) {
	result := &uninstall.Result{Targets: []uninstall.TargetResult{
		{Target: "claude", Removals: []uninstall.Removal{
			{Path: "/s", Key: "env.A", Backup: "/s.backup.1"},
			{Path: "/s", Key: "env.B", Backup: "/s.backup.1"},
			{Path: "/a.md"},
		}},
		{Target: "codex"},
		{Target: "gemini", Failed: []uninstall.Failure{{Path: "/g", Err: errors.New("bad")}}},
	}}

	var buf bytes.Buffer
	summary.Uninstall(&buf, result)
	out := buf.String()

	assert.Regexp(t, `\|\s*claude\s*\|\s*1\s*\|\s*2\s*\|\s*1\s*\|\s*removed\s*\|`, out)
	assert.Contains(t, out, "nothing to remove")
	assert.Contains(t, out, "failed /g: bad")
}

func TestEmptyResultPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	summary.Install(&buf, nil)
	summary.Uninstall(&buf, &uninstall.Result{})
	assert.Empty(t, buf.String())
}

func TestTargetsTable(t *testing.T) {
	all := targets.Defaults("/h", "/h/.config")

	var buf bytes.Buffer
	summary.Targets(&buf, all, map[string]bool{"codex": true})
	out := buf.String()

	assert.Regexp(t, `\|\s*codex\s*\|\s*yes\s*\|\s*/h/\.codex/config\.toml\s*\|`, out)
	assert.Regexp(t, `\|\s*opencode\s*\|\s*no\s*\|\s*/h/\.config/opencode/opencode\.json\s*\|`, out)
}
