package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/config"
	"github.com/kiro-labs/steerkit/internal/manifest"
	"github.com/kiro-labs/steerkit/internal/placeholders"
	"github.com/kiro-labs/steerkit/internal/substitute"
	"github.com/kiro-labs/steerkit/internal/userdata"
)

// appFs is the filesystem every command works on. Tests swap it.
var appFs afero.Fs = afero.NewOsFs()

// project is a loaded source tree.
type project struct {
	SourceRoot   string
	ManifestPath string
	Manifest     *manifest.Manifest
	Rules        *substitute.RuleSet
	Warnings     []string
}

// sourceRoot resolves --source, then the source_root setting, then the
// working directory.
func sourceRoot() (string, error) {
	root := sourceFlag
	if root == "" {
		root = config.Get(config.KeySourceRoot)
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolving working directory: %w", err)
		}
		root = wd
	}
	return filepath.Abs(root)
}

// manifestPath honours the manifest setting, relative to root unless
// absolute, and otherwise searches root for a declaration file.
func manifestPath(root string) (string, error) {
	if p := config.Get(config.KeyManifest); p != "" {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		return p, nil
	}
	return manifest.Find(appFs, root)
}

func loadProject() (*project, error) {
	root, err := sourceRoot()
	if err != nil {
		return nil, err
	}
	path, err := manifestPath(root)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Load(appFs, path)
	if err != nil {
		return nil, err
	}
	rules, warnings, err := placeholders.Standard(m, appFs, root)
	if err != nil {
		return nil, fmt.Errorf("building placeholders: %w", err)
	}
	return &project{
		SourceRoot:   root,
		ManifestPath: path,
		Manifest:     m,
		Rules:        rules,
		Warnings:     warnings,
	}, nil
}

// PackageName applies the --package override.
func (p *project) PackageName() (string, error) {
	pkg := p.Manifest.Package.Name
	if packageFlag != "" {
		pkg = packageFlag
	}
	if err := build.ValidatePackageName(pkg); err != nil {
		return "", err
	}
	return pkg, nil
}

// Context builds the build context for target.
func (p *project) Context(target build.Target) (build.Context, error) {
	pkg, err := p.PackageName()
	if err != nil {
		return build.Context{}, err
	}
	dest, err := userdata.DestRootFor(target, p.SourceRoot, pkg)
	if err != nil {
		return build.Context{}, err
	}
	return build.Context{
		Target:      target,
		PackageName: pkg,
		Version:     p.Manifest.Package.Version,
		SourceRoot:  p.SourceRoot,
		DestRoot:    dest,
	}, nil
}

// packageName names the package a command acts on when a source tree is
// optional: --package, then the manifest, then the package setting.
func packageName() (string, error) {
	pkg := packageFlag
	if pkg == "" {
		pkg = manifestPackageName()
	}
	if pkg == "" {
		pkg = config.Get(config.KeyPackage)
	}
	if pkg == "" {
		return "", fmt.Errorf("no package given: pass --package or run inside a source tree")
	}
	if err := build.ValidatePackageName(pkg); err != nil {
		return "", err
	}
	return pkg, nil
}

func manifestPackageName() string {
	root, err := sourceRoot()
	if err != nil {
		return ""
	}
	path, err := manifestPath(root)
	if err != nil {
		return ""
	}
	m, err := manifest.Load(appFs, path)
	if err != nil {
		return ""
	}
	return m.Package.Name
}
