// Package system abstracts the OS operations behind labctl's local state
// so stores can be tested without touching disk.
package system

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem is the subset of file operations the local stores need.
type FileSystem interface {
	// ReadFile reads the named file. A missing file reports fs.ErrNotExist.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the named file's contents, creating parent
	// directories as needed.
	WriteFile(path string, data []byte, perm fs.FileMode) error

	// Remove removes the named file.
	Remove(path string) error
}

// OS returns the FileSystem backed by the real disk.
func OS() FileSystem {
	return osFileSystem{}
}

type osFileSystem struct{}

func (osFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes through a temp file in the same directory and renames
// it into place, so readers never see a partial file.
func (osFileSystem) WriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func (osFileSystem) Remove(path string) error {
	return os.Remove(path)
}
