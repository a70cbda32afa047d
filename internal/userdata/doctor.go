package userdata

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kiro-labs/steerkit/internal/platform"
	"github.com/kiro-labs/steerkit/internal/registry"
)

// ErrUnhealthy is returned by CheckInstall when at least one check failed
// and was not repaired.
var ErrUnhealthy = errors.New("install is unhealthy")

// CheckInstall inspects the installed copy of pkg: the powers root, the
// install root, file protection and the registry entry. When fix is true,
// writable files are relocked.
func CheckInstall(w io.Writer, fsys afero.Fs, pkg string, fix bool) error {
	installRoot, err := GetInstallRoot(pkg)
	if err != nil {
		return err
	}
	root := filepath.Dir(installRoot)
	regPath := filepath.Join(root, RegistryFile)

	fmt.Fprintf(w, "Install check (%s):\n", pkg)
	failed := false

	if !checkDir(w, fsys, root) {
		fmt.Fprintln(w, "         Run 'steerkit install' to create")
		return ErrUnhealthy
	}
	if !checkDir(w, fsys, installRoot) {
		fmt.Fprintln(w, "         Run 'steerkit install' to create")
		return ErrUnhealthy
	}

	if !checkLocked(w, fsys, installRoot, fix) {
		failed = true
	}
	if !checkRegistry(w, fsys, regPath, pkg, installRoot) {
		failed = true
	}

	if failed {
		return ErrUnhealthy
	}
	return nil
}

func checkDir(w io.Writer, fsys afero.Fs, path string) bool {
	info, err := fsys.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(w, "  [MISS] %s does not exist\n", path)
		return false
	}
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %s: %v\n", path, err)
		return false
	}
	if !info.IsDir() {
		fmt.Fprintf(w, "  [FAIL] %s exists but is not a directory\n", path)
		return false
	}
	fmt.Fprintf(w, "  [ OK ] %s exists\n", path)
	return true
}

func checkLocked(w io.Writer, fsys afero.Fs, root string, fix bool) bool {
	var total int
	var writable []string
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		total++
		if platform.ProtectionOf(info.Mode()) == platform.Writable {
			writable = append(writable, path)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] walking %s: %v\n", root, err)
		return false
	}
	if total == 0 {
		fmt.Fprintf(w, "  [WARN] %s contains no files\n", root)
		return true
	}

	ok := true
	for _, path := range writable {
		fmt.Fprintf(w, "  [WARN] %s is writable (expected %o)\n", path, platform.ReadOnlyMode)
		if !fix {
			ok = false
			continue
		}
		if chErr := platform.Protect(fsys, path, platform.ReadOnly); chErr != nil {
			fmt.Fprintf(w, "  [FAIL] Could not lock %s: %v\n", path, chErr)
			ok = false
			continue
		}
		fmt.Fprintf(w, "  [FIX ] Locked %s\n", path)
	}
	if len(writable) == 0 {
		fmt.Fprintf(w, "  [ OK ] %d files read-only\n", total)
	}
	return ok
}

func checkRegistry(w io.Writer, fsys afero.Fs, path, pkg, installRoot string) bool {
	store := registry.NewStore(fsys, path)
	if !store.Exists() {
		fmt.Fprintf(w, "  [MISS] %s does not exist\n", path)
		return false
	}
	doc, err := store.Load()
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %s: %v\n", path, err)
		return false
	}
	entry, found, err := doc.Package(pkg)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return false
	}
	if !found {
		fmt.Fprintf(w, "  [MISS] %s is not registered in %s\n", pkg, path)
		return false
	}
	if !entry.Installed {
		fmt.Fprintf(w, "  [WARN] %s is registered but not marked installed\n", pkg)
		return false
	}
	src, found, err := doc.Source(entry.Source.ID)
	switch {
	case err != nil:
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return false
	case !found:
		fmt.Fprintf(w, "  [MISS] source %s referenced by %s is not registered\n", entry.Source.ID, pkg)
		return false
	case filepath.Clean(src.Path) != filepath.Clean(installRoot):
		fmt.Fprintf(w, "  [WARN] source %s points at %s (expected %s)\n", entry.Source.ID, src.Path, installRoot)
		return false
	}
	fmt.Fprintf(w, "  [ OK ] %s registered (installed %s)\n", pkg, entry.InstalledAt)
	return true
}
