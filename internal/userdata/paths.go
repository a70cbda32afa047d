package userdata

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kiro-labs/steerkit/internal/branding"
	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/config"
	"github.com/kiro-labs/steerkit/internal/manifest"
)

// Directory and file name constants.
const (
	RegistryFile = "registry.json"
	DistDir      = manifest.DistDir
	DevDir       = manifest.DevDir
	SteeringDir  = "steering"
)

// GetPowersRoot returns the Kiro powers directory. It checks the
// STEERKIT_POWERS_ROOT environment variable first, then the powers_root
// config key, then falls back to ~/.kiro/powers.
func GetPowersRoot() (string, error) {
	if v := os.Getenv(branding.EnvVar("POWERS_ROOT")); v != "" {
		return v, nil
	}
	if v := config.Get(config.KeyPowersRoot); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, branding.HomeDir(), branding.PowersDir()), nil
}

// GetInstallRoot returns the install directory for a package. The name must
// be a valid package name so the result is always a direct child of the
// powers root.
func GetInstallRoot(pkg string) (string, error) {
	if err := build.ValidatePackageName(pkg); err != nil {
		return "", err
	}
	root, err := GetPowersRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, pkg), nil
}

// GetRegistryPath returns the path to the registry document.
func GetRegistryPath() (string, error) {
	root, err := GetPowersRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, RegistryFile), nil
}

// GetDistRoot returns the distribution output root for a package: the
// dist_root config key, or <sourceRoot>/dist/<pkg>.
func GetDistRoot(sourceRoot, pkg string) string {
	if v := config.Get(config.KeyDistRoot); v != "" {
		return filepath.Join(v, pkg)
	}
	return filepath.Join(sourceRoot, DistDir, pkg)
}

// GetDevRoot returns the transient dev-watch output root for a package:
// the dev_root config key, or <sourceRoot>/.dev/<pkg>.
func GetDevRoot(sourceRoot, pkg string) string {
	if v := config.Get(config.KeyDevRoot); v != "" {
		return filepath.Join(v, pkg)
	}
	return filepath.Join(sourceRoot, DevDir, pkg)
}

// DestRootFor returns the destination root of target.
func DestRootFor(target build.Target, sourceRoot, pkg string) (string, error) {
	if err := build.ValidatePackageName(pkg); err != nil {
		return "", err
	}
	switch target {
	case build.LocalInstall:
		return GetInstallRoot(pkg)
	case build.Distribution:
		return GetDistRoot(sourceRoot, pkg), nil
	case build.DevWatch:
		return GetDevRoot(sourceRoot, pkg), nil
	default:
		return "", fmt.Errorf("no destination root for target %q", target)
	}
}
