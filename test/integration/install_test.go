//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/installer"
	"github.com/kiro-labs/steerkit/internal/registry"
)

func TestDistributionIsRelocatable(t *testing.T) {
	env := setupTestEnv(t)
	setupSource(t, env.SourceDir)

	report := install(t, env, build.Distribution)
	dist := filepath.Join(env.SourceDir, "dist", "kiro-protocols")

	if len(report.Written) != 3 {
		t.Errorf("expected 3 files, got %v", report.Written)
	}
	assertFileContains(t, filepath.Join(dist, "POWER.md"), "Protocols live in steering/protocols.")
	assertFileContains(t, filepath.Join(dist, "steering", "protocols", "release.md"), "See steering/index.md.")
	assertFileNotExists(t, filepath.Join(dist, "steering", "index.md"))

	info, err := os.Stat(filepath.Join(dist, "POWER.md"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o200 == 0 {
		t.Errorf("distribution output should be writable, mode %o", info.Mode().Perm())
	}
	assertFileNotExists(t, filepath.Join(env.PowersDir, "registry.json"))
}

func TestDevWatchBuild(t *testing.T) {
	env := setupTestEnv(t)
	setupSource(t, env.SourceDir)

	install(t, env, build.DevWatch)
	dev := filepath.Join(env.SourceDir, ".dev", "kiro-protocols")
	assertFileContains(t, filepath.Join(dev, "POWER.md"), filepath.ToSlash(dev)+"/steering/protocols")
	assertReadOnly(t, filepath.Join(dev, "POWER.md"))
}

func TestUninstall(t *testing.T) {
	env := setupTestEnv(t)
	setupSource(t, env.SourceDir)
	install(t, env, build.LocalInstall)

	fsys := afero.NewOsFs()
	store := registry.NewStore(fsys, filepath.Join(env.PowersDir, "registry.json"))
	res, err := installer.Uninstall(fsys, filepath.Join(env.PowersDir, "kiro-protocols"), store, "kiro-protocols")
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if !res.Registered || res.RegistryErr != nil {
		t.Errorf("unexpected registry result: %+v", res)
	}
	if res.Removed != 4 {
		t.Errorf("expected 4 files removed, got %d", res.Removed)
	}
	assertFileNotExists(t, filepath.Join(env.PowersDir, "kiro-protocols"))

	doc := readRegistry(t, store.Path)
	if len(doc.Packages) != 0 || len(doc.Sources) != 0 {
		t.Errorf("registry not emptied: %+v", doc)
	}
}
