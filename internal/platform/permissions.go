package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"github.com/spf13/afero"
)

// Protection is the two-state "generated, do not hand-edit" flag carried by
// every installed file.
type Protection int

const (
	Writable Protection = iota
	ReadOnly
)

// File modes for each protection state.
const (
	WritableMode os.FileMode = 0o644
	ReadOnlyMode os.FileMode = 0o444
	DirMode      os.FileMode = 0o755
)

// Mode returns the permission bits for p.
func (p Protection) Mode() os.FileMode {
	if p == ReadOnly {
		return ReadOnlyMode
	}
	return WritableMode
}

func (p Protection) String() string {
	if p == ReadOnly {
		return "read-only"
	}
	return "writable"
}

// ProtectionOf reports the protection state implied by mode. Any file
// without an owner write bit counts as ReadOnly.
func ProtectionOf(mode os.FileMode) Protection {
	if mode.Perm()&0o200 == 0 {
		return ReadOnly
	}
	return Writable
}

// Chmod sets file permissions.
func Chmod(fsys afero.Fs, path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return fsys.Chmod(path, mode)
}

// Protect moves a single file into state p. A missing file is not an error.
func Protect(fsys afero.Fs, path string, p Protection) error {
	if err := Chmod(fsys, path, p.Mode()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("setting %s %s: %w", path, p, err)
	}
	return nil
}

// ProtectTree moves every regular file under root into state p and returns
// how many files were changed. A missing root yields 0 and no error.
func ProtectTree(fsys afero.Fs, root string, p Protection) (int, error) {
	if _, err := fsys.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat %s: %w", root, err)
	}

	count := 0
	err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if err := Protect(fsys, path, p); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("walking %s: %w", root, err)
	}
	return count, nil
}
