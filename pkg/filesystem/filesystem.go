package filesystem

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/spf13/afero"
)

// Default permissions for files and directories created in target stores
const (
	DirPerm  os.FileMode = 0755
	FilePerm os.FileMode = 0644
)

// NewOS returns the real filesystem
func NewOS() afero.Fs {
	return afero.NewOsFs()
}

// ReadOnly wraps fs so any write fails; dry runs plan against it
func ReadOnly(fs afero.Fs) afero.Fs {
	return afero.NewReadOnlyFs(fs)
}

// ReadIfExists returns the file content, or ok=false if it does not exist
func ReadIfExists(fs afero.Fs, path string) (data []byte, ok bool, err error) {
	data, err = afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, errors.ErrFileRead, "cannot read %s", path)
	}
	return data, true, nil
}

// WriteFileAtomic replaces path with data by writing a temporary file in the
// same directory and renaming it over the destination. An existing file's
// permissions are kept.
func WriteFileAtomic(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, DirPerm); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", dir)
	}

	if info, err := fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot create temporary file for %s", path)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot close %s", path)
	}
	if err := fs.Chmod(tmpName, perm); err != nil {
		cleanup()
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot chmod %s", path)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot replace %s", path)
	}
	return nil
}

// RemoveIfEmpty removes dir when it has no entries left. It reports whether
// the directory was removed.
func RemoveIfEmpty(fs afero.Fs, dir string) (bool, error) {
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrFileRead, "cannot inspect %s", dir)
	}
	if !exists {
		return false, nil
	}
	empty, err := afero.IsEmpty(fs, dir)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrFileRead, "cannot inspect %s", dir)
	}
	if !empty {
		return false, nil
	}
	if err := fs.Remove(dir); err != nil {
		return false, errors.Wrapf(err, errors.ErrFileRemove, "cannot remove %s", dir)
	}
	return true, nil
}
