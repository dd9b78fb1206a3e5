// Package backup copies a file aside before it is mutated.
//
// A backup of P is written to P + ".backup." + a UTC timestamp. Backups are
// write-once and never pruned. Every backup a Manager creates for P is named
// strictly later than any backup of P already on disk.
package backup

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/logging"
	"github.com/spf13/afero"
)

// Suffix separates the original name from the timestamp
const Suffix = ".backup."

// StampLayout is the UTC timestamp format; it sorts lexically in time order.
const StampLayout = "20060102T150405.000000000Z"

// Manager creates backups on a filesystem
type Manager struct {
	fs  afero.Fs
	now func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager writing to fs
func NewManager(fs afero.Fs, opts ...Option) *Manager {
	m := &Manager{fs: fs, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Backup copies path aside and returns the backup path. It returns "" when
// path does not exist.
func (m *Manager) Backup(path string) (string, error) {
	logger := logging.GetLogger("backup")

	info, err := m.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrapf(err, errors.ErrBackup, "cannot stat %s", path)
	}
	if info.IsDir() {
		return "", errors.Newf(errors.ErrBackup, "%s is a directory", path)
	}

	stamp := m.now().UTC()
	if latest, ok, err := m.latest(path); err != nil {
		return "", err
	} else if ok && !stamp.After(latest) {
		stamp = latest.Add(time.Nanosecond)
	}

	for {
		backupPath := path + Suffix + stamp.Format(StampLayout)
		err := m.copyExclusive(path, backupPath, info.Mode().Perm())
		switch {
		case err == nil:
			logger.Info().Str("path", path).Str("backup", backupPath).Msg("Backed up file")
			return backupPath, nil
		case os.IsExist(err):
			stamp = stamp.Add(time.Nanosecond)
		default:
			return "", err
		}
	}
}

// List returns the backups of path, oldest first
func (m *Manager) List(path string) ([]string, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + Suffix

	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileRead, "cannot list %s", dir)
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, err := time.Parse(StampLayout, strings.TrimPrefix(name, prefix)); err != nil {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// latest returns the timestamp of the newest existing backup of path
func (m *Manager) latest(path string) (time.Time, bool, error) {
	backups, err := m.List(path)
	if err != nil || len(backups) == 0 {
		return time.Time{}, false, err
	}
	last := backups[len(backups)-1]
	prefix := path + Suffix
	t, err := time.Parse(StampLayout, strings.TrimPrefix(last, prefix))
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func (m *Manager) copyExclusive(src, dst string, perm os.FileMode) error {
	in, err := m.fs.Open(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrBackup, "cannot open %s", src)
	}
	defer in.Close()

	out, err := m.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if os.IsExist(err) {
			return err
		}
		return errors.Wrapf(err, errors.ErrBackup, "cannot create %s", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = m.fs.Remove(dst)
		return errors.Wrapf(err, errors.ErrBackup, "cannot copy %s", src)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrBackup, "cannot close %s", dst)
	}
	return nil
}
