package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/frontmatter"
	"github.com/kiro-labs/steerkit/internal/logging"
	"github.com/kiro-labs/steerkit/internal/manifest"
	"github.com/kiro-labs/steerkit/internal/materialize"
	"github.com/kiro-labs/steerkit/internal/platform"
	"github.com/kiro-labs/steerkit/internal/registry"
	"github.com/kiro-labs/steerkit/internal/substitute"
)

// ErrUnsafeDestRoot is returned when the destination root could not be
// purged without destroying something that is not generated output.
var ErrUnsafeDestRoot = errors.New("unsafe destination root")

// ProgressFunc receives one call per completed phase, and one with
// PhaseFailed when the run aborts.
type ProgressFunc func(phase Phase, msg string)

// Options configures a run.
type Options struct {
	Fs       afero.Fs
	Manifest *manifest.Manifest
	Rules    *substitute.RuleSet
	// Context carries the target and both roots.
	Context build.Context
	// Registry is updated after a successful lock. Nil skips the phase.
	Registry *registry.Store
	// SkipLock leaves the output writable.
	SkipLock bool
	Progress ProgressFunc
	Now      func() time.Time
}

// Report describes a finished or failed run.
type Report struct {
	Target   build.Target
	DestRoot string
	Phase    Phase

	Unlocked int
	Written  []string
	Skipped  []string
	Locked   int
	Warnings []string

	// RegistryErr is set when the registry update failed; Fallback then
	// tells the operator how to activate the package by hand.
	RegistryErr error
	Fallback    string

	// Inclusions counts written steering files per inclusion mode.
	Inclusions map[string]int

	// Resolution is the set of mappings the run materialized.
	Resolution *manifest.Resolution
}

// Installer runs the sequence once per call to Run.
type Installer struct {
	opts   Options
	logger zerolog.Logger
}

// New validates opts and returns an Installer.
func New(opts Options) (*Installer, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Manifest == nil {
		return nil, errors.New("installer needs a manifest")
	}
	if err := opts.Context.Validate(); err != nil {
		return nil, err
	}
	if err := checkDestRoot(opts.Context, opts.Registry); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Installer{opts: opts, logger: logging.GetLogger("installer")}, nil
}

// Run executes every phase in order. It returns an error only when the run
// ends in PhaseFailed; the report is returned in both cases.
func (in *Installer) Run(ctx context.Context) (*Report, error) {
	c := in.opts.Context
	r := &Report{Target: c.Target, DestRoot: c.DestRoot, Phase: PhaseUnlock}
	done := logging.LogOperationStart(in.logger, "install "+c.PackageName+" ("+c.Target.String()+")")
	defer done()

	steps := []struct {
		phase Phase
		run   func(context.Context, *Report) (string, error)
	}{
		{PhaseUnlock, in.unlock},
		{PhasePurge, in.purge},
		{PhaseMaterialize, in.materializeAll},
		{PhaseLock, in.lock},
		{PhaseUpdateRegistry, in.updateRegistry},
	}

	for _, step := range steps {
		r.Phase = step.phase
		if err := ctx.Err(); err != nil {
			return in.fail(r, err)
		}
		msg, err := step.run(ctx, r)
		if err != nil {
			return in.fail(r, err)
		}
		in.logger.Info().Str("phase", step.phase.String()).Msg(msg)
		in.progress(step.phase, msg)
	}

	r.Phase = PhaseDone
	in.progress(PhaseDone, fmt.Sprintf("%s %s ready at %s", c.PackageName, c.Target, c.DestRoot))
	return r, nil
}

func (in *Installer) fail(r *Report, err error) (*Report, error) {
	failed := r.Phase
	r.Phase = PhaseFailed
	err = fmt.Errorf("%s: %w", failed, err)
	in.logger.Error().Err(err).Msg("Install failed")
	in.progress(PhaseFailed, err.Error())
	return r, err
}

func (in *Installer) progress(p Phase, msg string) {
	if in.opts.Progress != nil {
		in.opts.Progress(p, msg)
	}
}

func (in *Installer) unlock(_ context.Context, r *Report) (string, error) {
	n, err := platform.ProtectTree(in.opts.Fs, r.DestRoot, platform.Writable)
	if err != nil {
		return "", err
	}
	r.Unlocked = n
	if n == 0 {
		return "Nothing to unlock", nil
	}
	return fmt.Sprintf("Unlocked %d existing files", n), nil
}

func (in *Installer) purge(_ context.Context, r *Report) (string, error) {
	if err := in.opts.Fs.RemoveAll(r.DestRoot); err != nil {
		return "", fmt.Errorf("removing %s: %w", r.DestRoot, err)
	}
	return "Removed previous output at " + r.DestRoot, nil
}

func (in *Installer) materializeAll(ctx context.Context, r *Report) (string, error) {
	c := in.opts.Context
	res, err := in.opts.Manifest.Resolve(in.opts.Fs, c.SourceRoot, c.Target, c.DestRoot)
	if err != nil {
		return "", err
	}
	r.Resolution = res
	r.Warnings = append(r.Warnings, res.Warnings...)

	if err := in.opts.Fs.MkdirAll(r.DestRoot, platform.DirMode); err != nil {
		return "", fmt.Errorf("%w: creating %s: %w", materialize.ErrWrite, r.DestRoot, err)
	}

	m := materialize.New(in.opts.Fs, in.opts.Rules, c)
	var steering []string
	for _, mapping := range res.Mappings {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		status, err := m.Materialize(mapping)
		if err != nil {
			return "", err
		}
		switch status {
		case materialize.StatusWritten:
			r.Written = append(r.Written, mapping.Destination)
			if isSteering(mapping.Destination) {
				steering = append(steering, m.DestPath(mapping))
			}
		case materialize.StatusSkippedMissing:
			r.Skipped = append(r.Skipped, mapping.Source)
		}
	}
	r.Warnings = append(r.Warnings, m.Warnings()...)
	r.Inclusions = frontmatter.CountInclusions(in.opts.Fs, steering)

	msg := fmt.Sprintf("Materialized %d files", len(r.Written))
	if len(r.Skipped) > 0 {
		msg += fmt.Sprintf(" (%d missing sources skipped)", len(r.Skipped))
	}
	return msg, nil
}

func (in *Installer) lock(_ context.Context, r *Report) (string, error) {
	if in.opts.SkipLock {
		return "Left output writable", nil
	}
	n, err := platform.ProtectTree(in.opts.Fs, r.DestRoot, platform.ReadOnly)
	if err != nil {
		return "", err
	}
	r.Locked = n
	return fmt.Sprintf("Locked %d files read-only", n), nil
}

// updateRegistry never fails the run.
func (in *Installer) updateRegistry(_ context.Context, r *Report) (string, error) {
	if in.opts.Registry == nil {
		return "Registry not updated for " + r.Target.String(), nil
	}

	pkg := in.opts.Context.PackageName
	entry, sourceID, src := in.entries()
	if err := in.opts.Registry.Upsert(pkg, entry, sourceID, src); err != nil {
		r.RegistryErr = err
		r.Fallback = fmt.Sprintf("Files are installed at %s. Add %q to %s by hand, or activate the power from that directory in Kiro.",
			r.DestRoot, pkg, in.opts.Registry.Path)
		r.Warnings = append(r.Warnings, "registry not updated: "+err.Error())
		in.logger.Warn().Err(err).Str("registry", in.opts.Registry.Path).Msg("Registry update failed")
		return "Registry update skipped", nil
	}
	return "Registered " + pkg + " in " + in.opts.Registry.Path, nil
}

// entries builds the registry records for the current run.
func (in *Installer) entries() (registry.PackageEntry, string, registry.SourceEntry) {
	c := in.opts.Context
	p := in.opts.Manifest.Package
	now := registry.NewTimestamp(in.opts.Now())
	sourceID := registry.SourceID(c.PackageName)

	entry := registry.PackageEntry{
		Name:        c.PackageName,
		DisplayName: p.DisplayName,
		Description: p.Description,
		Keywords:    p.Keywords,
		Author:      p.Author,
		Installed:   true,
		InstalledAt: now,
		InstallPath: c.DestRoot,
		Source: registry.SourceRef{
			Type:   registry.SourceLocal,
			ID:     sourceID,
			Origin: c.SourceRoot,
		},
		SourcePath: c.DestRoot,
	}
	src := registry.SourceEntry{
		Name:     p.DisplayName,
		Type:     registry.SourceLocal,
		Enabled:  true,
		AddedAt:  now,
		Path:     c.DestRoot,
		LastSync: now,
	}
	return entry, sourceID, src
}

func isSteering(dest string) bool {
	return strings.HasPrefix(dest, "steering/") && strings.EqualFold(filepath.Ext(dest), ".md")
}

// checkDestRoot refuses roots whose purge would delete the sources, the
// registry or a filesystem root.
func checkDestRoot(c build.Context, store *registry.Store) error {
	if err := guardRoot(c.DestRoot, registryDir(store)); err != nil {
		return err
	}
	if contains(c.DestRoot, c.SourceRoot) {
		return fmt.Errorf("%w: %s contains the source root %s", ErrUnsafeDestRoot, c.DestRoot, c.SourceRoot)
	}
	return nil
}

// guardRoot refuses a filesystem root and any root at or above regDir.
func guardRoot(root, regDir string) error {
	clean := filepath.Clean(root)
	if clean == filepath.Dir(clean) {
		return fmt.Errorf("%w: %s", ErrUnsafeDestRoot, root)
	}
	if regDir != "" && contains(root, regDir) {
		return fmt.Errorf("%w: %s contains the registry directory %s", ErrUnsafeDestRoot, root, regDir)
	}
	return nil
}

func registryDir(store *registry.Store) string {
	if store == nil || store.Path == "" {
		return ""
	}
	return filepath.Dir(store.Path)
}

// contains reports whether path is root or lies beneath it.
func contains(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
