// Package summary prints the per-target outcome of a run as a table
package summary

import (
	"fmt"
	"io"

	"github.com/arthur-debert/agentconf/pkg/installer"
	"github.com/arthur-debert/agentconf/pkg/targets"
	"github.com/arthur-debert/agentconf/pkg/ui/styles"
	"github.com/arthur-debert/agentconf/pkg/uninstall"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Status values shown in the last column
const (
	StatusInstalled = "installed"
	StatusUpToDate  = "up to date"
	StatusPlanned   = "dry run"
	StatusDeclined  = "declined"
	StatusFailed    = "failed"
	StatusRemoved   = "removed"
	StatusClean     = "nothing to remove"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if !styles.ColorEnabled() {
		t.SetStyle(table.StyleDefault)
	}
	return t
}

// Install prints one row per target of an install run
func Install(w io.Writer, result *installer.Result) {
	if result == nil || len(result.Targets) == 0 {
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Target", "Written", "Unchanged", "Skipped", "Warnings", "Backups", "Status"})

	for _, tr := range result.Targets {
		unchanged, pending := 0, 0
		for _, c := range tr.Plan.Changes {
			if c.Pending() {
				pending++
			} else {
				unchanged++
			}
		}

		written := len(tr.Applied.Written)
		if result.DryRun {
			written = pending
		}

		t.AppendRow(table.Row{
			styles.Render("Target", tr.Target),
			written,
			unchanged,
			len(tr.Plan.Skipped),
			len(tr.Plan.Warnings),
			len(tr.Applied.Backups),
			installStatus(result.DryRun, tr, pending),
		})
	}
	t.Render()

	for _, f := range result.Failures() {
		fmt.Fprintf(w, "%s %s: %v\n", styles.Render("Error", "failed"), styles.Render("Path", f.Path), f.Err)
	}
}

func installStatus(dryRun bool, tr installer.TargetResult, pending int) string {
	switch {
	case len(tr.Applied.Failed) > 0:
		return styles.Render("Error", StatusFailed)
	case tr.Declined:
		return styles.Render("Warning", StatusDeclined)
	case pending == 0:
		return styles.Render("Muted", StatusUpToDate)
	case dryRun:
		return styles.Render("Muted", StatusPlanned)
	default:
		return styles.Render("Success", StatusInstalled)
	}
}

// Uninstall prints one row per target of an uninstall run
func Uninstall(w io.Writer, result *uninstall.Result) {
	if result == nil || len(result.Targets) == 0 {
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Target", "Files", "Keys", "Backups", "Status"})

	for _, tr := range result.Targets {
		files, keys, backups := 0, 0, 0
		seen := make(map[string]bool)
		for _, r := range tr.Removals {
			if r.Key == "" {
				files++
			} else {
				keys++
			}
			if r.Backup != "" && !seen[r.Backup] {
				seen[r.Backup] = true
				backups++
			}
		}

		status := styles.Render("Success", StatusRemoved)
		switch {
		case len(tr.Failed) > 0:
			status = styles.Render("Error", StatusFailed)
		case len(tr.Removals) == 0:
			status = styles.Render("Muted", StatusClean)
		case result.DryRun:
			status = styles.Render("Muted", StatusPlanned)
		}

		t.AppendRow(table.Row{styles.Render("Target", tr.Target), files, keys, backups, status})
	}
	t.Render()

	for _, tr := range result.Targets {
		for _, f := range tr.Failed {
			fmt.Fprintf(w, "%s %s: %v\n", styles.Render("Error", "failed"), styles.Render("Path", f.Path), f.Err)
		}
	}
}

// Targets lists the known targets and where they live
func Targets(w io.Writer, all []targets.Target, enabled map[string]bool) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Target", "Enabled", "Settings", "Description"})
	for _, tg := range all {
		mark := "no"
		if enabled[tg.Name] {
			mark = "yes"
		}
		t.AppendRow(table.Row{styles.Render("Target", tg.Name), mark, styles.Render("Path", tg.SettingsPath()), tg.Description})
	}
	t.Render()
}
