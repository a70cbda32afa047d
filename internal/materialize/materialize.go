package materialize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/logging"
	"github.com/kiro-labs/steerkit/internal/manifest"
	"github.com/kiro-labs/steerkit/internal/platform"
	"github.com/kiro-labs/steerkit/internal/substitute"
)

// Status is the outcome of materializing one mapping.
type Status int

const (
	StatusWritten Status = iota
	StatusSkippedMissing
)

func (s Status) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusSkippedMissing:
		return "skipped-missing"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ErrWrite wraps any failure to write a destination file. It is fatal to
// an install.
var ErrWrite = errors.New("write failed")

// Materializer writes expanded source files under DestRoot.
type Materializer struct {
	Fs         afero.Fs
	SourceRoot string
	DestRoot   string
	Rules      *substitute.RuleSet
	Context    build.Context

	// ProtectEach unlocks each destination before writing and locks it
	// afterwards. Watch mode uses it to touch only the files it rewrites.
	ProtectEach bool

	warnings []string
	logger   zerolog.Logger
}

// New returns a Materializer for ctx, writing into ctx.DestRoot.
func New(fsys afero.Fs, rules *substitute.RuleSet, ctx build.Context) *Materializer {
	return &Materializer{
		Fs:         fsys,
		SourceRoot: ctx.SourceRoot,
		DestRoot:   ctx.DestRoot,
		Rules:      rules,
		Context:    ctx,
		logger:     logging.GetLogger("materialize"),
	}
}

// Warnings returns the non-fatal diagnostics collected so far.
func (m *Materializer) Warnings() []string {
	return m.warnings
}

// DestPath returns the absolute destination path of mapping.
func (m *Materializer) DestPath(mapping manifest.ResolvedMapping) string {
	return filepath.Join(m.DestRoot, filepath.FromSlash(mapping.Destination))
}

// SourcePath returns the absolute source path of mapping.
func (m *Materializer) SourcePath(mapping manifest.ResolvedMapping) string {
	return filepath.Join(m.SourceRoot, filepath.FromSlash(mapping.Source))
}

// Materialize expands one mapping. A missing source is reported as
// StatusSkippedMissing with a warning; any write failure wraps ErrWrite.
func (m *Materializer) Materialize(mapping manifest.ResolvedMapping) (Status, error) {
	src := m.SourcePath(mapping)
	data, err := afero.ReadFile(m.Fs, src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.warn(fmt.Sprintf("source %s not found, skipped", mapping.Source))
			return StatusSkippedMissing, nil
		}
		return 0, fmt.Errorf("reading %s: %w", src, err)
	}

	out, warnings := substitute.Expand(string(data), m.Rules, m.Context)
	for _, w := range warnings {
		m.warn(fmt.Sprintf("%s: %s", mapping.Source, w))
	}

	dest := m.DestPath(mapping)
	if err := m.write(dest, []byte(out)); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrWrite, mapping.Destination, err)
	}

	m.logger.Debug().
		Str("source", mapping.Source).
		Str("destination", mapping.Destination).
		Int("bytes", len(out)).
		Msg("Materialized")
	return StatusWritten, nil
}

func (m *Materializer) write(dest string, data []byte) error {
	if err := m.Fs.MkdirAll(filepath.Dir(dest), platform.DirMode); err != nil {
		return err
	}
	if m.ProtectEach {
		if err := platform.Protect(m.Fs, dest, platform.Writable); err != nil {
			return err
		}
	}
	if err := afero.WriteFile(m.Fs, dest, data, platform.WritableMode); err != nil {
		return err
	}
	if m.ProtectEach {
		return platform.Protect(m.Fs, dest, platform.ReadOnly)
	}
	return nil
}

func (m *Materializer) warn(msg string) {
	m.warnings = append(m.warnings, msg)
	m.logger.Warn().Str("destRoot", m.DestRoot).Msg(msg)
}

// Remove deletes the destination of mapping, restoring write permission
// first. A missing file is not an error.
func (m *Materializer) Remove(mapping manifest.ResolvedMapping) error {
	dest := m.DestPath(mapping)
	if err := platform.Protect(m.Fs, dest, platform.Writable); err != nil {
		return err
	}
	if err := m.Fs.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", dest, err)
	}
	return nil
}
