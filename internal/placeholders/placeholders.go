// Package placeholders builds the rule set every steerkit package is
// expanded with: package metadata, target-dependent paths, manifest
// variables, and sections lifted from source documents.
package placeholders

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/frontmatter"
	"github.com/kiro-labs/steerkit/internal/manifest"
	"github.com/kiro-labs/steerkit/internal/substitute"
)

// Built-in placeholder keys.
const (
	PackageName   = "PACKAGE_NAME"
	DisplayName   = "DISPLAY_NAME"
	Description   = "DESCRIPTION"
	Version       = "VERSION"
	Author        = "AUTHOR"
	Keywords      = "KEYWORDS"
	Target        = "TARGET"
	InstallRoot   = "INSTALL_ROOT"
	SteeringPath  = "STEERING_PATH"
	ProtocolsPath = "PROTOCOLS_PATH"
)

// Standard returns the rule set for m. Sections are read from sourceRoot
// once, here; a section whose file or heading is missing gets no rule, so
// its token stays visible in the output, and a warning is returned.
func Standard(m *manifest.Manifest, fsys afero.Fs, sourceRoot string) (*substitute.RuleSet, []string, error) {
	pkg := m.Package
	rules := substitute.NewRuleSet(pkg.Name,
		substitute.Rule{Key: PackageName, Value: func(c build.Context) string {
			if c.PackageName != "" {
				return c.PackageName
			}
			return pkg.Name
		}},
		substitute.Literal(DisplayName, pkg.DisplayName),
		substitute.Literal(Description, pkg.Description),
		substitute.Rule{Key: Version, Value: func(c build.Context) string {
			if c.Version != "" {
				return c.Version
			}
			return pkg.Version
		}},
		substitute.Literal(Author, pkg.Author),
		substitute.Literal(Keywords, strings.Join(pkg.Keywords, ", ")),
		substitute.Rule{Key: Target, Value: func(c build.Context) string { return c.Target.String() }},
		substitute.Rule{Key: InstallRoot, Value: installRoot},
		substitute.Rule{Key: SteeringPath, Value: steeringPath},
		substitute.Literal(ProtocolsPath, substitute.Token(SteeringPath)+"/protocols"),
	)

	var warnings []string
	extra := substitute.NewRuleSet("variables")
	for _, key := range slices.Sorted(maps.Keys(m.Variables)) {
		value := m.Variables[key]
		if _, ok := rules.Lookup(key); ok {
			warnings = append(warnings, fmt.Sprintf("variable %s shadows a built-in placeholder and is ignored", key))
			continue
		}
		extra.Add(substitute.Literal(key, value))
	}

	for _, s := range m.Sections {
		if _, ok := rules.Lookup(s.Key); ok {
			warnings = append(warnings, fmt.Sprintf("section %s shadows a built-in placeholder and is ignored", s.Key))
			continue
		}
		body, missing, err := section(fsys, sourceRoot, s)
		if err != nil {
			return nil, warnings, err
		}
		if missing != "" {
			warnings = append(warnings, fmt.Sprintf("%s, {{{%s}}} left as is", missing, s.Key))
			continue
		}
		extra.Add(substitute.Literal(s.Key, body))
	}

	return extra.Merge(pkg.Name, rules), warnings, nil
}

// section reads the body of s. When the file or heading does not exist,
// missing describes what was looked for instead.
func section(fsys afero.Fs, sourceRoot string, s manifest.SectionRef) (body, missing string, err error) {
	p := filepath.Join(sourceRoot, filepath.FromSlash(s.File))
	data, err := afero.ReadFile(fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Sprintf("section file %s not found", s.File), nil
		}
		return "", "", fmt.Errorf("reading section source %s: %w", p, err)
	}
	doc, err := frontmatter.Parse(string(data))
	if err != nil && !errors.Is(err, frontmatter.ErrMalformed) {
		return "", "", err
	}
	body, ok := frontmatter.ExtractSection(doc.Body, s.Heading)
	if !ok {
		missing = fmt.Sprintf("section %q not found in %s", s.Heading, s.File)
		if hs := frontmatter.Headings(doc.Body); len(hs) > 0 {
			missing += fmt.Sprintf(" (headings: %s)", strings.Join(hs, ", "))
		}
		return "", missing, nil
	}
	return body, "", nil
}

func installRoot(c build.Context) string {
	if c.Target.Relocatable() {
		return "."
	}
	return filepath.ToSlash(c.DestRoot)
}

func steeringPath(c build.Context) string {
	if c.Target.Relocatable() {
		return "steering"
	}
	return path.Join(filepath.ToSlash(c.DestRoot), "steering")
}
