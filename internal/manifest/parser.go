package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kiro-labs/steerkit/internal/branding"
	"github.com/kiro-labs/steerkit/internal/build"
)

// Format identifies the encoding of a manifest declaration.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FileNames returns the candidate manifest file names in lookup order.
func FileNames() []string {
	base := branding.ManifestName()
	return []string{base + ".yaml", base + ".yml", base + ".toml", base + ".json"}
}

// FormatOf derives the declaration format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unsupported manifest extension %q", ErrInvalid, filepath.Ext(path))
	}
}

// Find returns the path of the manifest in dir.
func Find(fsys afero.Fs, dir string) (string, error) {
	for _, name := range FileNames() {
		path := filepath.Join(dir, name)
		if _, err := fsys.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %s (looked for %s)", ErrNotFound, dir, strings.Join(FileNames(), ", "))
}

// Load reads, schema-validates and decodes the manifest at path, then
// applies defaults.
func Load(fsys afero.Fs, path string) (*Manifest, error) {
	data, err := readFile(fsys, path)
	if err != nil {
		return nil, err
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	result, err := Validate(data, format)
	if err != nil {
		return nil, fmt.Errorf("validating manifest %s: %w", path, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w %s: %s", ErrInvalid, path, result)
	}

	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	m.Path = path

	if err := m.normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes data without schema validation or defaults.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &m)
	case FormatTOML:
		err = toml.Unmarshal(data, &m)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&m)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalid, format)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// normalize fills defaults and checks the fields the schema cannot.
func (m *Manifest) normalize() error {
	if m.Version == "" {
		m.Version = DeclarationVersion
	}
	if err := compatible(m.Version); err != nil {
		return err
	}

	if m.Package.DisplayName == "" {
		m.Package.DisplayName = DisplayName(m.Package.Name)
	}
	if m.Package.Version == "" {
		m.Package.Version = "1.0.0"
	}
	v, err := semver.NewVersion(m.Package.Version)
	if err != nil {
		return fmt.Errorf("%w: package version %q: %v", ErrInvalid, m.Package.Version, err)
	}
	m.Package.Version = v.String()
	if m.Package.Keywords == nil {
		m.Package.Keywords = []string{}
	}

	return m.CheckRules()
}

// compatible reports whether a declaration version shares the major
// version this build understands.
func compatible(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: declaration version %q: %v", ErrInvalid, version, err)
	}
	want := semver.MustParse(DeclarationVersion)
	if v.Major() != want.Major() {
		return fmt.Errorf("%w: declaration version %s is not compatible with %s", ErrInvalid, v, want)
	}
	return nil
}

// CheckRules validates every mapping rule without touching the filesystem:
// targets must be known, patterns well formed, and paths relative.
func (m *Manifest) CheckRules() error {
	var errs []error
	for i, r := range m.Mappings {
		for _, t := range r.Targets {
			if _, ok := build.ParseTarget(string(t)); !ok {
				errs = append(errs, fmt.Errorf("mapping %d: %w %q", i, ErrUnknownTarget, t))
			}
		}
		if r.IsGlob() {
			if _, err := compileRule(r); err != nil {
				errs = append(errs, fmt.Errorf("mapping %d: %w", i, err))
			}
		}
		if _, err := cleanRelative(r.Source); err != nil {
			errs = append(errs, fmt.Errorf("mapping %d source: %w", i, err))
		}
		if _, err := cleanRelative(strings.ReplaceAll(r.Destination, NameToken, "x")); err != nil {
			errs = append(errs, fmt.Errorf("mapping %d destination: %w", i, err))
		}
	}
	for _, s := range m.Sections {
		if _, err := cleanRelative(s.File); err != nil {
			errs = append(errs, fmt.Errorf("section %s: %w", s.Key, err))
		}
	}
	return errors.Join(errs...)
}

// DisplayName derives a human title from a package name:
// "kiro-protocols" becomes "Kiro Protocols".
func DisplayName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func readFile(fsys afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
