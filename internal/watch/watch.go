package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/installer"
	"github.com/kiro-labs/steerkit/internal/logging"
	"github.com/kiro-labs/steerkit/internal/manifest"
	"github.com/kiro-labs/steerkit/internal/materialize"
	"github.com/kiro-labs/steerkit/internal/placeholders"
	"github.com/kiro-labs/steerkit/internal/substitute"
)

// DefaultDebounce is the quiet period before a batch of events is rebuilt.
const DefaultDebounce = 200 * time.Millisecond

// DefaultIgnore lists path segments and name globs that never trigger a
// rebuild.
var DefaultIgnore = []string{
	manifest.VCSDir,
	manifest.DevDir,
	manifest.DistDir,
	"node_modules",
	".DS_Store",
	"*.swp",
	"*~",
	".registry-*",
}

// Options configures a Watcher.
type Options struct {
	Fs           afero.Fs
	ManifestPath string
	SourceRoot   string
	DestRoot     string
	// PackageName overrides the manifest's package name.
	PackageName string
	Debounce    time.Duration
	Ignore      []string
	// Report receives one line per rebuild.
	Report func(Result)
}

// Result summarizes one rebuild.
type Result struct {
	Full     bool
	Written  []string
	Removed  []string
	Skipped  []string
	Warnings []string
	Err      error
}

// Watcher holds the state shared between rebuilds.
type Watcher struct {
	opts     Options
	manifest *manifest.Manifest
	rules    *substitute.RuleSet
	ctx      build.Context
	last     *manifest.Resolution
	logger   zerolog.Logger
}

// New loads the manifest and prepares a Watcher. Nothing is written.
func New(opts Options) (*Watcher, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Ignore == nil {
		opts.Ignore = DefaultIgnore
	}
	w := &Watcher{opts: opts, logger: logging.GetLogger("watch")}
	if err := w.load(); err != nil {
		return nil, err
	}
	return w, nil
}

// load (re)reads the manifest and placeholder rules.
func (w *Watcher) load() error {
	m, err := manifest.Load(w.opts.Fs, w.opts.ManifestPath)
	if err != nil {
		return err
	}
	rules, warnings, err := placeholders.Standard(m, w.opts.Fs, w.opts.SourceRoot)
	if err != nil {
		return err
	}
	for _, warning := range warnings {
		w.logger.Warn().Msg(warning)
	}

	pkg := w.opts.PackageName
	if pkg == "" {
		pkg = m.Package.Name
	}
	w.manifest = m
	w.rules = rules
	w.ctx = build.Context{
		Target:      build.DevWatch,
		PackageName: pkg,
		Version:     m.Package.Version,
		SourceRoot:  w.opts.SourceRoot,
		DestRoot:    w.opts.DestRoot,
	}
	return nil
}

// Build runs the full install sequence into the dev-watch root.
func (w *Watcher) Build(ctx context.Context) Result {
	in, err := installer.New(installer.Options{
		Fs:       w.opts.Fs,
		Manifest: w.manifest,
		Rules:    w.rules,
		Context:  w.ctx,
	})
	if err != nil {
		return Result{Full: true, Err: err}
	}
	report, err := in.Run(ctx)
	res := Result{Full: true, Err: err}
	w.last = nil
	if report != nil {
		res.Written = report.Written
		res.Skipped = report.Skipped
		res.Warnings = report.Warnings
		if err == nil {
			w.last = report.Resolution
		}
	}
	return res
}

// Rebuild handles one batch of changed absolute paths.
func (w *Watcher) Rebuild(ctx context.Context, changed []string) Result {
	if w.needsFull(changed) {
		if err := w.load(); err != nil {
			return Result{Full: true, Err: err}
		}
		return w.Build(ctx)
	}

	res := Result{}
	resolution, err := w.manifest.Resolve(w.opts.Fs, w.opts.SourceRoot, build.DevWatch, w.ctx.DestRoot)
	if err != nil {
		res.Err = err
		return res
	}
	res.Warnings = append(res.Warnings, resolution.Warnings...)

	rel := w.relative(changed)
	m := materialize.New(w.opts.Fs, w.rules, w.ctx)
	m.ProtectEach = true

	for _, mapping := range selectMappings(w.last, rel) {
		if exists, _ := afero.Exists(w.opts.Fs, m.SourcePath(mapping)); exists {
			continue
		}
		if err := m.Remove(mapping); err != nil {
			res.Err = err
			return res
		}
		res.Removed = append(res.Removed, mapping.Destination)
	}

	for _, mapping := range selectMappings(resolution, rel) {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		status, err := m.Materialize(mapping)
		if err != nil {
			res.Err = err
			return res
		}
		if status == materialize.StatusWritten {
			res.Written = append(res.Written, mapping.Destination)
		} else {
			res.Skipped = append(res.Skipped, mapping.Source)
		}
	}
	res.Warnings = append(res.Warnings, m.Warnings()...)
	w.last = resolution
	return res
}

// needsFull reports whether a change invalidates the manifest or the rule
// set rather than individual files.
func (w *Watcher) needsFull(changed []string) bool {
	manifestPath := filepath.Clean(w.opts.ManifestPath)
	for _, p := range changed {
		if filepath.Clean(p) == manifestPath {
			return true
		}
	}
	rel := w.relative(changed)
	for _, s := range w.manifest.Sections {
		if slices.Contains(rel, filepath.ToSlash(filepath.Clean(s.File))) {
			return true
		}
	}
	return w.last == nil
}

// relative converts absolute paths to slash-separated paths under the
// source root, dropping anything outside it.
func (w *Watcher) relative(paths []string) []string {
	var out []string
	for _, p := range paths {
		r, err := filepath.Rel(w.opts.SourceRoot, p)
		if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			continue
		}
		out = append(out, filepath.ToSlash(r))
	}
	return out
}

// selectMappings returns the mappings of res whose source is in changed.
func selectMappings(res *manifest.Resolution, changed []string) []manifest.ResolvedMapping {
	if res == nil {
		return nil
	}
	var out []manifest.ResolvedMapping
	for _, m := range res.Mappings {
		if slices.Contains(changed, m.Source) {
			out = append(out, m)
		}
	}
	return out
}

// shouldIgnore checks a path against the ignore list by segment or by
// name glob.
func (w *Watcher) shouldIgnore(p string) bool {
	if w.isDest(p) {
		return true
	}
	name := filepath.Base(p)
	r, err := filepath.Rel(w.opts.SourceRoot, p)
	if err != nil {
		r = p
	}
	segments := strings.Split(filepath.ToSlash(r), "/")
	for _, pattern := range w.opts.Ignore {
		if strings.ContainsAny(pattern, "*?[") {
			if ok, _ := filepath.Match(pattern, name); ok {
				return true
			}
			continue
		}
		if slices.Contains(segments, pattern) {
			return true
		}
	}
	return false
}

func (w *Watcher) isDest(p string) bool {
	r, err := filepath.Rel(w.opts.DestRoot, p)
	return err == nil && (r == "." || !strings.HasPrefix(r, ".."))
}

// watchDirs returns every directory under the source root that should be
// watched.
func (w *Watcher) watchDirs() ([]string, error) {
	var dirs []string
	err := afero.Walk(w.opts.Fs, w.opts.SourceRoot, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if p != w.opts.SourceRoot && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		dirs = append(dirs, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", w.opts.SourceRoot, err)
	}
	return dirs, nil
}
