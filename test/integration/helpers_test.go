//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/installer"
	"github.com/kiro-labs/steerkit/internal/manifest"
	"github.com/kiro-labs/steerkit/internal/placeholders"
	"github.com/kiro-labs/steerkit/internal/registry"
	"github.com/kiro-labs/steerkit/internal/userdata"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	SourceDir string // package source tree holding steerkit.yaml
	PowersDir string // STEERKIT_POWERS_ROOT
}

// setupTestEnv creates isolated temp directories and points the powers root
// at one of them. The env vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		SourceDir: t.TempDir(),
		PowersDir: filepath.Join(t.TempDir(), "powers"),
	}
	t.Setenv("STEERKIT_POWERS_ROOT", env.PowersDir)
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	return env
}

// setupSource writes a kiro-protocols package with a shared section, two
// protocols and a power description.
func setupSource(t *testing.T, dir string) {
	t.Helper()

	writeFile(t, filepath.Join(dir, "steerkit.yaml"), `version: "1.0.0"
package:
  name: kiro-protocols
  description: Protocols for steering Kiro agents
  keywords: [kiro, steering]
  author: Platform Team
  version: 1.4.0
variables:
  SUPPORT_URL: https://example.com/support
sections:
  - key: CORE_RULES
    file: shared/rules.md
    heading: Core Rules
mappings:
  - source: POWER.md
    destination: POWER.md
    targets: [local-install, distribution, dev-watch]
  - source: protocols/*.md
    destination: steering/protocols/{name}.md
    targets: [local-install, distribution, dev-watch]
  - source: shared/index.md
    destination: steering/index.md
    targets: [local-install]
`)

	writeFile(t, filepath.Join(dir, "POWER.md"), `# {{{DISPLAY_NAME}}} v{{{VERSION}}}

{{{DESCRIPTION}}}. Protocols live in {{{PROTOCOLS_PATH}}}.
Support: {{{SUPPORT_URL}}}
`)
	writeFile(t, filepath.Join(dir, "protocols", "review.md"), `---
title: Code Review
inclusion: always
---
# Code Review

{{{CORE_RULES}}}
`)
	writeFile(t, filepath.Join(dir, "protocols", "release.md"), `---
inclusion: manual
---
# Release

See {{{STEERING_PATH}}}/index.md.
`)
	writeFile(t, filepath.Join(dir, "shared", "rules.md"), `# Shared

## Core Rules
Always run the tests for {{{PACKAGE_NAME}}}.

## Other
not included
`)
	writeFile(t, filepath.Join(dir, "shared", "index.md"), "# Index for {{{TARGET}}}\n")
}

// install runs the full installer for target against the real filesystem.
func install(t *testing.T, env *testEnv, target build.Target) *installer.Report {
	t.Helper()
	fsys := afero.NewOsFs()

	m, err := manifest.Load(fsys, filepath.Join(env.SourceDir, "steerkit.yaml"))
	if err != nil {
		t.Fatalf("loading manifest: %v", err)
	}
	rules, _, err := placeholders.Standard(m, fsys, env.SourceDir)
	if err != nil {
		t.Fatalf("building placeholders: %v", err)
	}
	dest, err := userdata.DestRootFor(target, env.SourceDir, m.Package.Name)
	if err != nil {
		t.Fatal(err)
	}

	opts := installer.Options{
		Fs:       fsys,
		Manifest: m,
		Rules:    rules,
		Context: build.Context{
			Target:      target,
			PackageName: m.Package.Name,
			Version:     m.Package.Version,
			SourceRoot:  env.SourceDir,
			DestRoot:    dest,
		},
		SkipLock: target == build.Distribution,
	}
	if target == build.LocalInstall {
		regPath, err := userdata.GetRegistryPath()
		if err != nil {
			t.Fatal(err)
		}
		opts.Registry = registry.NewStore(fsys, regPath)
	}

	in, err := installer.New(opts)
	if err != nil {
		t.Fatalf("installer.New: %v", err)
	}
	report, err := in.Run(t.Context())
	if err != nil {
		t.Fatalf("install %s: %v", target, err)
	}
	return report
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}

// assertReadOnly fails if path is writable by its owner.
func assertReadOnly(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("stat %s: %v", path, err)
		return
	}
	if info.Mode().Perm()&0o222 != 0 {
		t.Errorf("expected %s to be read-only, mode %o", path, info.Mode().Perm())
	}
}
