//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kiro-labs/steerkit/internal/build"
)

const foreignRegistry = `{
  "version": "1.0.0",
  "packages": {
    "other-power": {
      "name": "other-power",
      "displayName": "Other <Power>",
      "installed": true,
      "source": {"type": "remote", "id": "remote-other", "origin": "https://example.com"},
      "pinned": true
    }
  },
  "sources": {
    "remote-other": {"name": "Other", "type": "remote", "enabled": true, "count": 1}
  },
  "lastUpdated": "2025-01-01T00:00:00.000Z"
}
`

type registryDoc struct {
	Version  string                     `json:"version"`
	Packages map[string]json.RawMessage `json:"packages"`
	Sources  map[string]json.RawMessage `json:"sources"`
}

func readRegistry(t *testing.T, path string) registryDoc {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading registry: %v", err)
	}
	var doc registryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decoding registry: %v", err)
	}
	return doc
}

func compact(t *testing.T, raw []byte) string {
	t.Helper()
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

// TestFullFlowInstallTwice covers the local install end to end:
// expand placeholders -> lock -> register, then reinstall after a source
// file was dropped.
func TestFullFlowInstallTwice(t *testing.T) {
	env := setupTestEnv(t)
	setupSource(t, env.SourceDir)

	regPath := filepath.Join(env.PowersDir, "registry.json")
	writeFile(t, regPath, foreignRegistry)
	var seeded registryDoc
	if err := json.Unmarshal([]byte(foreignRegistry), &seeded); err != nil {
		t.Fatal(err)
	}

	// Step 1: first install.
	report := install(t, env, build.LocalInstall)
	if len(report.Written) != 4 {
		t.Fatalf("expected 4 files written, got %v", report.Written)
	}
	if report.RegistryErr != nil {
		t.Fatalf("registry update failed: %v", report.RegistryErr)
	}
	if report.Inclusions["always"] != 2 || report.Inclusions["manual"] != 1 {
		t.Errorf("inclusions = %v", report.Inclusions)
	}

	installRoot := filepath.Join(env.PowersDir, "kiro-protocols")
	steering := filepath.ToSlash(filepath.Join(installRoot, "steering"))

	// Step 2: verify substitution, including nested section tokens.
	power := filepath.Join(installRoot, "POWER.md")
	assertFileContains(t, power, "# Kiro Protocols v1.4.0")
	assertFileContains(t, power, "Protocols for steering Kiro agents. Protocols live in "+steering+"/protocols.")
	assertFileContains(t, power, "Support: https://example.com/support")

	review := filepath.Join(installRoot, "steering", "protocols", "review.md")
	assertFileContains(t, review, "title: Code Review")
	assertFileContains(t, review, "Always run the tests for kiro-protocols.")
	assertFileContains(t, filepath.Join(installRoot, "steering", "protocols", "release.md"), "See "+steering+"/index.md.")
	assertFileContains(t, filepath.Join(installRoot, "steering", "index.md"), "# Index for local-install")

	for _, rel := range report.Written {
		assertReadOnly(t, filepath.Join(installRoot, filepath.FromSlash(rel)))
	}

	// Step 3: registry holds both packages, foreign entries untouched.
	doc := readRegistry(t, regPath)
	if len(doc.Packages) != 2 || len(doc.Sources) != 2 {
		t.Fatalf("registry has %d packages and %d sources", len(doc.Packages), len(doc.Sources))
	}
	if compact(t, doc.Packages["other-power"]) != compact(t, seeded.Packages["other-power"]) {
		t.Errorf("foreign package rewritten:\n%s", doc.Packages["other-power"])
	}
	if compact(t, doc.Sources["remote-other"]) != compact(t, seeded.Sources["remote-other"]) {
		t.Errorf("foreign source rewritten:\n%s", doc.Sources["remote-other"])
	}

	var first struct {
		InstalledAt string `json:"installedAt"`
	}
	if err := json.Unmarshal(doc.Packages["kiro-protocols"], &first); err != nil {
		t.Fatal(err)
	}

	// Step 4: drop a protocol and reinstall over the locked tree.
	if err := os.Remove(filepath.Join(env.SourceDir, "protocols", "release.md")); err != nil {
		t.Fatal(err)
	}
	report = install(t, env, build.LocalInstall)
	if len(report.Written) != 3 {
		t.Errorf("expected 3 files written on reinstall, got %v", report.Written)
	}
	if report.Unlocked != 4 {
		t.Errorf("expected 4 files unlocked, got %d", report.Unlocked)
	}
	assertFileNotExists(t, filepath.Join(installRoot, "steering", "protocols", "release.md"))
	assertFileExists(t, review)

	doc = readRegistry(t, regPath)
	if len(doc.Packages) != 2 || len(doc.Sources) != 2 {
		t.Fatalf("reinstall duplicated entries: %d packages, %d sources", len(doc.Packages), len(doc.Sources))
	}
	var second struct {
		InstalledAt string `json:"installedAt"`
	}
	if err := json.Unmarshal(doc.Packages["kiro-protocols"], &second); err != nil {
		t.Fatal(err)
	}
	if second.InstalledAt < first.InstalledAt {
		t.Errorf("installedAt went backwards: %s then %s", first.InstalledAt, second.InstalledAt)
	}
}
