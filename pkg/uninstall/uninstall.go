// Package uninstall removes what agentconf installed, and nothing else.
//
// Target stores are shared with the user, so removal is surgical: settings
// documents lose only the env vars, hook commands and registry entries
// agentconf is known to ship; copied documents are deleted only when their
// name is known or the manifest lists them. A settings document is deleted
// only when nothing else is left in it, a directory only when it is empty.
package uninstall

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/arthur-debert/agentconf/pkg/backup"
	"github.com/arthur-debert/agentconf/pkg/document"
	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/filesystem"
	"github.com/arthur-debert/agentconf/pkg/logging"
	"github.com/arthur-debert/agentconf/pkg/manifest"
	"github.com/arthur-debert/agentconf/pkg/paths"
	"github.com/arthur-debert/agentconf/pkg/targets"
	"github.com/arthur-debert/agentconf/pkg/ui/styles"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Options configure an uninstall run
type Options struct {
	Targets  []targets.Target
	Fs       afero.Fs
	DryRun   bool
	Out      io.Writer
	Manifest *manifest.Store
	Backups  *backup.Manager
}

// Removal is one thing taken out of a target
type Removal struct {
	Path string
	// Key is the settings key removed; empty when the whole file goes
	Key    string
	Backup string
}

// Failure is a file that could not be cleaned
type Failure struct {
	Path string
	Err  error
}

// TargetResult is what was removed from one target
type TargetResult struct {
	Target   string
	Removals []Removal
	Failed   []Failure
}

// Result is the outcome of an uninstall run
type Result struct {
	DryRun  bool
	Targets []TargetResult
}

type remover struct {
	opts     Options
	fs       afero.Fs
	backups  *backup.Manager
	recorded *manifest.Manifest
	logger   zerolog.Logger
}

// Run removes agentconf's contributions from each target in order
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.GetLogger("uninstall")
	defer logging.LogOperationStart(logger, "uninstall")()

	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	r := &remover{opts: opts, fs: opts.Fs, logger: logger, recorded: manifest.New()}
	if opts.DryRun {
		r.fs = filesystem.ReadOnly(opts.Fs)
	}
	r.backups = opts.Backups
	if r.backups == nil {
		r.backups = backup.NewManager(r.fs)
	}
	if opts.Manifest != nil {
		m, err := opts.Manifest.Load()
		if err != nil {
			return nil, err
		}
		r.recorded = m
	}

	result := &Result{DryRun: opts.DryRun}
	var done []string
	var failures int
	for _, t := range opts.Targets {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, errors.ErrCancelled, "uninstall interrupted")
		}
		tr := r.target(t)
		result.Targets = append(result.Targets, tr)
		failures += len(tr.Failed)
		if len(tr.Failed) == 0 {
			done = append(done, t.Name)
		}
	}

	if !opts.DryRun && opts.Manifest != nil && len(done) > 0 {
		if err := opts.Manifest.Forget(done...); err != nil {
			return result, err
		}
	}
	if failures > 0 {
		return result, errors.Newf(errors.ErrFileWrite, "%d file(s) could not be cleaned", failures)
	}
	return result, nil
}

func (r *remover) target(t targets.Target) TargetResult {
	tr := TargetResult{Target: t.Name}
	logger := r.logger.With().Str("target", t.Name).Logger()

	r.settings(t, &tr, logger)
	for _, s := range t.Statics {
		r.static(t, s, &tr, logger)
	}
	if t.TopDoc != "" && r.recorded.Lists(t.Name, t.TopDocPath()) {
		r.removeFile(t, t.TopDocPath(), &tr, logger)
	}

	if len(tr.Removals) == 0 && len(tr.Failed) == 0 {
		fmt.Fprintf(r.opts.Out, "%s %s\n", styles.Render("Target", t.Name), styles.Render("Muted", "nothing to remove"))
	}
	return tr
}

func (r *remover) settings(t targets.Target, tr *TargetResult, logger zerolog.Logger) {
	path := t.SettingsPath()
	data, ok, err := filesystem.ReadIfExists(r.fs, path)
	if err != nil {
		tr.Failed = append(tr.Failed, Failure{Path: path, Err: err})
		return
	}
	if !ok || document.IsBlank(data) {
		return
	}

	v, err := document.Decode(t.Format, data)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Cannot parse settings, left untouched")
		tr.Failed = append(tr.Failed, Failure{Path: path, Err: err})
		return
	}

	keys := Strip(&v, t.Managed, t.RegistryKey)
	if len(keys) == 0 {
		return
	}

	if IsEmpty(v) {
		r.removeFile(t, path, tr, logger)
		return
	}

	out, err := document.EncodeLike(t.Format, v, data)
	if err != nil {
		tr.Failed = append(tr.Failed, Failure{Path: path, Err: err})
		return
	}

	r.report("remove", path, keys...)
	if r.opts.DryRun {
		for _, k := range keys {
			tr.Removals = append(tr.Removals, Removal{Path: path, Key: k})
		}
		return
	}

	b, err := r.backups.Backup(path)
	if err != nil {
		tr.Failed = append(tr.Failed, Failure{Path: path, Err: err})
		return
	}
	if err := filesystem.WriteFileAtomic(r.fs, path, out, filesystem.FilePerm); err != nil {
		tr.Failed = append(tr.Failed, Failure{Path: path, Err: err})
		return
	}
	for _, k := range keys {
		tr.Removals = append(tr.Removals, Removal{Path: path, Key: k, Backup: b})
	}
	logger.Info().Str("path", path).Strs("keys", keys).Msg("Removed managed settings")
}

func (r *remover) static(t targets.Target, s targets.Static, tr *TargetResult, logger zerolog.Logger) {
	dir, err := paths.JoinSegments(t.Root, s.Dest)
	if err != nil {
		tr.Failed = append(tr.Failed, Failure{Path: s.Dest, Err: err})
		return
	}

	for _, name := range r.managedNames(t, s, dir) {
		path, err := paths.JoinSegments(dir, name)
		if err != nil {
			logger.Warn().Err(err).Str("name", name).Msg("Skipping invalid name")
			continue
		}
		r.removeFile(t, path, tr, logger)
	}

	if r.opts.DryRun {
		return
	}
	if removed, err := filesystem.RemoveIfEmpty(r.fs, dir); err != nil {
		tr.Failed = append(tr.Failed, Failure{Path: dir, Err: err})
	} else if removed {
		logger.Info().Str("dir", dir).Msg("Removed empty directory")
	}
}

// managedNames are the known file names plus those the manifest recorded
// directly below dir
func (r *remover) managedNames(t targets.Target, s targets.Static, dir string) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, n := range s.Managed {
		add(n)
	}
	for _, p := range r.recorded.Paths(t.Name) {
		if filepath.Dir(p) == dir {
			add(filepath.Base(p))
		}
	}
	return names
}

// removeFile deletes path. Files edited since agentconf wrote them are
// backed up first.
func (r *remover) removeFile(t targets.Target, path string, tr *TargetResult, logger zerolog.Logger) {
	data, ok, err := filesystem.ReadIfExists(r.fs, path)
	if err != nil {
		tr.Failed = append(tr.Failed, Failure{Path: path, Err: err})
		return
	}
	if !ok {
		return
	}

	r.report("delete", path)
	if r.opts.DryRun {
		tr.Removals = append(tr.Removals, Removal{Path: path})
		return
	}

	var b string
	if !r.recorded.Unmodified(t.Name, path, data) {
		if b, err = r.backups.Backup(path); err != nil {
			tr.Failed = append(tr.Failed, Failure{Path: path, Err: err})
			return
		}
	}
	if err := r.fs.Remove(path); err != nil {
		tr.Failed = append(tr.Failed, Failure{Path: path, Err: errors.Wrapf(err, errors.ErrFileRemove, "cannot remove %s", path)})
		return
	}
	tr.Removals = append(tr.Removals, Removal{Path: path, Backup: b})
	logger.Info().Str("path", path).Str("backup", b).Msg("Removed file")
}

func (r *remover) report(verb, path string, keys ...string) {
	prefix := "    "
	if r.opts.DryRun {
		verb = "would " + verb
	}
	if len(keys) == 0 {
		fmt.Fprintf(r.opts.Out, "%s%s %s\n", prefix, styles.Render("Removed", verb), styles.Render("Path", path))
		return
	}
	for _, k := range keys {
		fmt.Fprintf(r.opts.Out, "%s%s %s from %s\n", prefix, styles.Render("Removed", verb), k, styles.Render("Path", path))
	}
}
