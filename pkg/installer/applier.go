package installer

import (
	"github.com/arthur-debert/agentconf/pkg/backup"
	"github.com/arthur-debert/agentconf/pkg/filesystem"
	"github.com/arthur-debert/agentconf/pkg/logging"
	"github.com/spf13/afero"
)

// Failure is a change that could not be applied
type Failure struct {
	Path string
	Err  error
}

// Applied is the outcome of applying one plan
type Applied struct {
	Written []string
	Backups []string
	Failed  []Failure
}

// Applier writes plans to the target stores
type Applier struct {
	fs      afero.Fs
	backups *backup.Manager
}

// NewApplier writes through fs, backing files up with backups
func NewApplier(fs afero.Fs, backups *backup.Manager) *Applier {
	if backups == nil {
		backups = backup.NewManager(fs)
	}
	return &Applier{fs: fs, backups: backups}
}

// Apply backs up and replaces every pending file of plan. A file that fails
// is reported and the remaining files are still written. A file is never
// written unless its backup succeeded.
func (a *Applier) Apply(plan *Plan) Applied {
	logger := logging.GetLogger("installer").With().Str("target", plan.Target.Name).Logger()
	var out Applied

	for _, c := range plan.Pending() {
		// A file created since planning is backed up too
		b, err := a.backups.Backup(c.Path)
		if err != nil {
			logger.Error().Err(err).Str("path", c.Path).Msg("Backup failed, file left untouched")
			out.Failed = append(out.Failed, Failure{Path: c.Path, Err: err})
			continue
		}
		if b != "" {
			out.Backups = append(out.Backups, b)
		}

		if err := filesystem.WriteFileAtomic(a.fs, c.Path, c.After, filesystem.FilePerm); err != nil {
			logger.Error().Err(err).Str("path", c.Path).Msg("Write failed")
			out.Failed = append(out.Failed, Failure{Path: c.Path, Err: err})
			continue
		}
		logger.Info().Str("step", c.Step).Str("path", c.Path).Str("kind", c.Kind.String()).Msg("Installed")
		out.Written = append(out.Written, c.Path)
	}
	return out
}
