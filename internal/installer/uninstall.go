package installer

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/kiro-labs/steerkit/internal/platform"
	"github.com/kiro-labs/steerkit/internal/registry"
)

// UninstallResult describes a removal.
type UninstallResult struct {
	Removed    int
	Registered bool
	// RegistryErr is set when the registry could not be updated; the
	// files are gone regardless.
	RegistryErr error
}

// Uninstall unlocks and deletes destRoot, then drops pkg from the registry
// when store is non-nil. Registry failures are reported, not returned.
// A filesystem root, or a root at or above the registry directory, is
// refused with ErrUnsafeDestRoot before anything is touched.
func Uninstall(fsys afero.Fs, destRoot string, store *registry.Store, pkg string) (*UninstallResult, error) {
	res := &UninstallResult{}
	if err := guardRoot(destRoot, registryDir(store)); err != nil {
		return res, err
	}
	n, err := platform.ProtectTree(fsys, destRoot, platform.Writable)
	if err != nil {
		return res, fmt.Errorf("unlocking %s: %w", destRoot, err)
	}
	if err := fsys.RemoveAll(destRoot); err != nil {
		return res, fmt.Errorf("removing %s: %w", destRoot, err)
	}
	res.Removed = n

	if store != nil {
		res.Registered, res.RegistryErr = store.Remove(pkg, registry.SourceID(pkg))
	}
	return res, nil
}
