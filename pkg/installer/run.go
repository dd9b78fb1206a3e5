package installer

import (
	"context"
	"io"

	"github.com/arthur-debert/agentconf/pkg/backup"
	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/logging"
	"github.com/arthur-debert/agentconf/pkg/manifest"
	"github.com/arthur-debert/agentconf/pkg/source"
	"github.com/arthur-debert/agentconf/pkg/targets"
	"github.com/spf13/afero"
)

// Previewer shows a plan without applying it
type Previewer interface {
	Render(w io.Writer, plan *Plan) error
}

// Confirmer asks the user whether a plan may be applied
type Confirmer interface {
	Confirm(plan *Plan) (bool, error)
}

// Options configure a run
type Options struct {
	Tree    *source.Tree
	Targets []targets.Target

	// SourceFs reads the tree; Fs holds the target stores. Both default
	// to the OS filesystem.
	SourceFs afero.Fs
	Fs       afero.Fs

	DryRun bool
	Force  bool

	Preview Previewer
	Confirm Confirmer
	Out     io.Writer

	Manifest *manifest.Store
	Backups  *backup.Manager
}

// TargetResult is what happened to one target
type TargetResult struct {
	Target   string
	Plan     *Plan
	Applied  Applied
	Declined bool
}

// Result is the outcome of a run
type Result struct {
	RunID   string
	DryRun  bool
	Targets []TargetResult
}

// Failures returns every failed write of the run
func (r *Result) Failures() []Failure {
	var out []Failure
	for _, t := range r.Targets {
		out = append(out, t.Applied.Failed...)
	}
	return out
}

// Run installs the source tree into every target, in order. In dry-run mode
// each plan is rendered and nothing is written, the manifest included.
// Otherwise each plan is confirmed unless forced, then applied, and the
// manifest is saved once after the last target.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.GetLogger("installer")
	defer logging.LogOperationStart(logger, "install")()

	if opts.Tree == nil {
		return nil, errors.New(errors.ErrInvalidInput, "no source tree")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.SourceFs == nil {
		opts.SourceFs = afero.NewOsFs()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	planner := NewPlanner(opts.SourceFs, opts.Fs, opts.Tree)
	run := manifest.New()
	result := &Result{RunID: run.RunID, DryRun: opts.DryRun}
	logger = logger.With().Str("run", run.RunID).Logger()

	var applier *Applier
	if !opts.DryRun {
		applier = NewApplier(opts.Fs, opts.Backups)
	}

	for _, t := range opts.Targets {
		if err := ctx.Err(); err != nil {
			// Targets finished before the interrupt stay recorded
			if saveErr := saveManifest(opts, run); saveErr != nil {
				logger.Error().Err(saveErr).Msg("Cannot save manifest of interrupted run")
			}
			return result, errors.Wrap(err, errors.ErrCancelled, "install interrupted")
		}

		plan := planner.Plan(t)
		for _, w := range plan.Warnings {
			logger.Warn().Str("target", t.Name).Msg(w)
		}
		tr := TargetResult{Target: t.Name, Plan: plan}

		switch {
		case opts.DryRun:
			if opts.Preview != nil {
				if err := opts.Preview.Render(opts.Out, plan); err != nil {
					return result, errors.Wrapf(err, errors.ErrInternal, "cannot render plan for %s", t.Name)
				}
			}

		case len(plan.Pending()) == 0:
			logger.Info().Str("target", t.Name).Msg("Already up to date")
			record(run, plan, Applied{})

		default:
			ok, err := confirm(opts, plan)
			if err != nil {
				if saveErr := saveManifest(opts, run); saveErr != nil {
					logger.Error().Err(saveErr).Msg("Cannot save manifest of interrupted run")
				}
				return result, err
			}
			if !ok {
				logger.Info().Str("target", t.Name).Msg("Declined, target left untouched")
				tr.Declined = true
				break
			}
			tr.Applied = applier.Apply(plan)
			record(run, plan, tr.Applied)
		}

		result.Targets = append(result.Targets, tr)
	}

	if err := saveManifest(opts, run); err != nil {
		return result, err
	}

	if failed := result.Failures(); len(failed) > 0 {
		return result, errors.Wrapf(failed[0].Err, errors.ErrFileWrite, "%d file(s) could not be installed", len(failed))
	}
	return result, nil
}

// saveManifest stores what the run recorded. Dry runs record nothing and
// never touch the manifest file.
func saveManifest(opts Options, run *manifest.Manifest) error {
	if opts.DryRun || opts.Manifest == nil {
		return nil
	}
	return opts.Manifest.Save(run)
}

func record(run *manifest.Manifest, plan *Plan, applied Applied) {
	written := make(map[string]bool, len(applied.Written))
	for _, p := range applied.Written {
		written[p] = true
	}
	// Files already holding the planned bytes stay in the manifest
	for _, c := range plan.Changes {
		if written[c.Path] || !c.Pending() {
			run.Record(plan.Target.Name, c.Path, c.After)
		}
	}
}

func confirm(opts Options, plan *Plan) (bool, error) {
	if opts.Force {
		return true, nil
	}
	if opts.Confirm == nil {
		return false, nil
	}
	ok, err := opts.Confirm.Confirm(plan)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCancelled, "confirmation failed")
	}
	return ok, nil
}
