package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `package:
  name: kiro-protocols
  version: 1.0.0
sections:
  - key: CORE
    file: shared/core.md
    heading: Core
mappings:
  - source: POWER.md
    destination: POWER.md
    targets: [dev-watch]
  - source: protocols/*.md
    destination: steering/protocols/{name}.md
    targets: [dev-watch]
`

func setup(t *testing.T, fsys afero.Fs, root string) Options {
	t.Helper()
	files := map[string]string{
		"steerkit.yaml":  testManifest,
		"POWER.md":       "{{{PACKAGE_NAME}}}: {{{CORE}}}",
		"shared/core.md": "## Core\ncore v1\n",
		"protocols/a.md": "a v1 {{{TARGET}}}",
		"protocols/b.md": "b v1",
		".git/HEAD":      "ref",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, fsys.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(fsys, p, []byte(content), 0o644))
	}
	return Options{
		Fs:           fsys,
		ManifestPath: filepath.Join(root, "steerkit.yaml"),
		SourceRoot:   root,
		DestRoot:     filepath.Join(root, ".dev", "kiro-protocols"),
		Debounce:     20 * time.Millisecond,
	}
}

func writeSource(t *testing.T, opts Options, rel, content string) string {
	t.Helper()
	p := filepath.Join(opts.SourceRoot, filepath.FromSlash(rel))
	require.NoError(t, afero.WriteFile(opts.Fs, p, []byte(content), 0o644))
	return p
}

func readDest(t *testing.T, opts Options, rel string) string {
	t.Helper()
	data, err := afero.ReadFile(opts.Fs, filepath.Join(opts.DestRoot, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestBuild(t *testing.T) {
	opts := setup(t, afero.NewMemMapFs(), "/src")
	w, err := New(opts)
	require.NoError(t, err)

	res := w.Build(context.Background())
	require.NoError(t, res.Err)
	assert.True(t, res.Full)
	assert.Len(t, res.Written, 3)
	assert.Equal(t, "kiro-protocols: core v1", readDest(t, opts, "POWER.md"))
	assert.Equal(t, "a v1 dev-watch", readDest(t, opts, "steering/protocols/a.md"))
}

func TestBuild_FailureForcesFullRebuild(t *testing.T) {
	opts := setup(t, afero.NewMemMapFs(), "/src")
	w, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, w.Build(context.Background()).Err)
	require.NotNil(t, w.last)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := w.Build(ctx)
	require.ErrorIs(t, res.Err, context.Canceled)
	assert.Nil(t, w.last)

	changed := writeSource(t, opts, "protocols/a.md", "a v2")
	res = w.Rebuild(context.Background(), []string{changed})
	require.NoError(t, res.Err)
	assert.True(t, res.Full)
	assert.Len(t, res.Written, 3)
	assert.Equal(t, "a v2", readDest(t, opts, "steering/protocols/a.md"))
}

func TestRebuild_OnlyChangedFiles(t *testing.T) {
	opts := setup(t, afero.NewMemMapFs(), "/src")
	w, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, w.Build(context.Background()).Err)

	changed := writeSource(t, opts, "protocols/a.md", "a v2")
	res := w.Rebuild(context.Background(), []string{changed})
	require.NoError(t, res.Err)

	assert.False(t, res.Full)
	assert.Equal(t, []string{"steering/protocols/a.md"}, res.Written)
	assert.Equal(t, "a v2", readDest(t, opts, "steering/protocols/a.md"))

	info, err := opts.Fs.Stat(filepath.Join(opts.DestRoot, "steering", "protocols", "a.md"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o444), info.Mode().Perm())
}

func TestRebuild_NewAndDeletedSources(t *testing.T) {
	opts := setup(t, afero.NewMemMapFs(), "/src")
	w, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, w.Build(context.Background()).Err)

	created := writeSource(t, opts, "protocols/c.md", "c v1")
	deleted := filepath.Join(opts.SourceRoot, "protocols", "b.md")
	require.NoError(t, opts.Fs.Remove(deleted))

	res := w.Rebuild(context.Background(), []string{created, deleted})
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"steering/protocols/c.md"}, res.Written)
	assert.Equal(t, []string{"steering/protocols/b.md"}, res.Removed)

	exists, _ := afero.Exists(opts.Fs, filepath.Join(opts.DestRoot, "steering", "protocols", "b.md"))
	assert.False(t, exists)
}

func TestRebuild_SectionSourceTriggersFullBuild(t *testing.T) {
	opts := setup(t, afero.NewMemMapFs(), "/src")
	w, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, w.Build(context.Background()).Err)

	changed := writeSource(t, opts, "shared/core.md", "## Core\ncore v2\n")
	res := w.Rebuild(context.Background(), []string{changed})
	require.NoError(t, res.Err)
	assert.True(t, res.Full)
	assert.Equal(t, "kiro-protocols: core v2", readDest(t, opts, "POWER.md"))
}

func TestRebuild_ManifestTriggersFullBuild(t *testing.T) {
	opts := setup(t, afero.NewMemMapFs(), "/src")
	w, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, w.Build(context.Background()).Err)

	res := w.Rebuild(context.Background(), []string{opts.ManifestPath})
	require.NoError(t, res.Err)
	assert.True(t, res.Full)
}

func TestRebuild_IgnoresPathsOutsideSource(t *testing.T) {
	opts := setup(t, afero.NewMemMapFs(), "/src")
	w, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, w.Build(context.Background()).Err)

	res := w.Rebuild(context.Background(), []string{"/elsewhere/protocols/a.md"})
	require.NoError(t, res.Err)
	assert.Empty(t, res.Written)
}

func TestShouldIgnore(t *testing.T) {
	opts := setup(t, afero.NewMemMapFs(), "/src")
	w, err := New(opts)
	require.NoError(t, err)

	tests := map[string]bool{
		"/src/protocols/a.md":               false,
		"/src/.git/HEAD":                    true,
		"/src/protocols/.a.md.swp":          true,
		"/src/.dev/kiro-protocols/POWER.md": true,
		"/src/dist/kiro-protocols/POWER.md": true,
		"/src/protocols/notes~":             true,
	}
	for p, want := range tests {
		assert.Equal(t, want, w.shouldIgnore(p), p)
	}

	dirs, err := w.watchDirs()
	require.NoError(t, err)
	assert.Contains(t, dirs, "/src/protocols")
	assert.NotContains(t, dirs, "/src/.git")
}

func TestRun_RebuildsOnChange(t *testing.T) {
	if testing.Short() {
		t.Skip("uses the real file watcher")
	}
	root := t.TempDir()
	opts := setup(t, afero.NewOsFs(), root)
	results := make(chan Result, 8)
	opts.Report = func(r Result) { results <- r }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, opts) }()

	select {
	case r := <-results:
		require.NoError(t, r.Err)
		require.True(t, r.Full)
	case <-time.After(5 * time.Second):
		t.Fatal("initial build did not finish")
	}

	// Give the watcher a moment to register its directories.
	time.Sleep(100 * time.Millisecond)
	writeSource(t, opts, "protocols/a.md", "a v3")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case r := <-results:
			require.NoError(t, r.Err)
			if len(r.Written) > 0 {
				assert.Equal(t, "a v3", readDest(t, opts, "steering/protocols/a.md"))
				cancel()
				require.NoError(t, <-done)
				return
			}
		case <-deadline:
			t.Fatal("no rebuild after change")
		}
	}
}
