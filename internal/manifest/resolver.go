package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/kiro-labs/steerkit/internal/build"
)

// globRule is a mapping rule prepared for enumeration.
type globRule struct {
	pattern string         // doublestar pattern with {name} replaced by *
	base    string         // static prefix of pattern
	capture *regexp.Regexp // nil unless Source contains {name}
}

func compileRule(r MappingRule) (*globRule, error) {
	if n := strings.Count(r.Source, NameToken); n > 1 {
		return nil, fmt.Errorf("%w: %q uses %s %d times", ErrInvalidPattern, r.Source, NameToken, n)
	}

	pattern := strings.ReplaceAll(r.Source, NameToken, "*")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, r.Source)
	}
	base, _ := doublestar.SplitPattern(pattern)

	g := &globRule{pattern: pattern, base: base}
	if strings.Contains(r.Source, NameToken) {
		re, err := captureRegexp(r.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, r.Source, err)
		}
		g.capture = re
	}
	return g, nil
}

// name derives the {name} value for a match: the captured text when the
// source has an explicit token, otherwise the path below the static prefix
// without its extension.
func (g *globRule) name(match string) string {
	if g.capture != nil {
		if sub := g.capture.FindStringSubmatch(match); len(sub) == 2 {
			return sub[1]
		}
	}
	rel := match
	if g.base != "." && g.base != "" {
		rel = strings.TrimPrefix(match, g.base+"/")
	}
	return strings.TrimSuffix(rel, path.Ext(rel))
}

// captureRegexp translates a glob containing {name} into an anchored
// regular expression with one capturing group.
func captureRegexp(source string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(source); {
		switch {
		case strings.HasPrefix(source[i:], NameToken):
			b.WriteString("([^/]*)")
			i += len(NameToken)
		case strings.HasPrefix(source[i:], "**/"):
			b.WriteString("(?:.*/)?")
			i += 3
		case strings.HasPrefix(source[i:], "**"):
			b.WriteString(".*")
			i += 2
		case source[i] == '*':
			b.WriteString("[^/]*")
			i++
		case source[i] == '?':
			b.WriteString("[^/]")
			i++
		case source[i] == '[':
			end := strings.IndexByte(source[i:], ']')
			if end < 0 {
				return nil, errors.New("unterminated character class")
			}
			class := source[i : i+end+1]
			if strings.HasPrefix(class, "[!") {
				class = "[^" + class[2:]
			}
			b.WriteString(class)
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(source[i : i+1]))
			i++
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// Directories below the source root that glob rules never descend into:
// the default build outputs and version control metadata.
const (
	DistDir = "dist"
	DevDir  = ".dev"
	VCSDir  = ".git"
)

// Resolve expands the manifest's rules for target. See ResolveRules.
func (m *Manifest) Resolve(fsys afero.Fs, sourceRoot string, target build.Target, skip ...string) (*Resolution, error) {
	return ResolveRules(m.Mappings, fsys, sourceRoot, target, skip...)
}

// ResolveRules expands rules against sourceRoot for target. Mappings come
// out in rule order, then lexical match order. Glob rules matching nothing
// and literal rules with a missing source produce warnings; duplicate
// destinations and malformed patterns are errors.
//
// Glob matches under DistDir, DevDir, VCSDir or any absolute skip directory
// inside sourceRoot are dropped, so a build never picks up its own output.
// Literal sources are taken as written.
func ResolveRules(rules []MappingRule, fsys afero.Fs, sourceRoot string, target build.Target, skip ...string) (*Resolution, error) {
	if _, ok := build.ParseTarget(string(target)); !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTarget, target)
	}

	skipped := skipPrefixes(sourceRoot, skip)
	res := &Resolution{Target: target}
	iofs := afero.NewIOFS(afero.NewBasePathFs(fsys, sourceRoot))

	for i, r := range rules {
		if !r.AppliesTo(target) {
			continue
		}

		if !r.IsGlob() {
			src, err := cleanRelative(r.Source)
			if err != nil {
				return nil, fmt.Errorf("mapping %d: %w", i, err)
			}
			dest, err := destination(r.Destination, strings.TrimSuffix(path.Base(src), path.Ext(src)))
			if err != nil {
				return nil, fmt.Errorf("mapping %d: %w", i, err)
			}
			if _, err := fsys.Stat(filepath.Join(sourceRoot, filepath.FromSlash(src))); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return nil, fmt.Errorf("mapping %d: stat %s: %w", i, src, err)
				}
				res.Warnings = append(res.Warnings, fmt.Sprintf("source %s does not exist", src))
			}
			res.Mappings = append(res.Mappings, ResolvedMapping{Source: src, Destination: dest, Rule: i})
			continue
		}

		g, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
		matches, err := doublestar.Glob(iofs, g.pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("mapping %d: %w: %v", i, ErrInvalidPattern, err)
		}
		matches = slices.DeleteFunc(matches, func(m string) bool { return underAny(m, skipped) })
		if len(matches) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("pattern %s matched no files", r.Source))
			continue
		}
		sort.Strings(matches)

		for _, match := range matches {
			dest, err := destination(r.Destination, g.name(match))
			if err != nil {
				return nil, fmt.Errorf("mapping %d: %s: %w", i, match, err)
			}
			res.Mappings = append(res.Mappings, ResolvedMapping{Source: match, Destination: dest, Rule: i})
		}
	}

	if err := CheckDestinations(res.Mappings); err != nil {
		return nil, err
	}
	return res, nil
}

// skipPrefixes returns the slash-separated, source-relative directories glob
// matches are not taken from.
func skipPrefixes(sourceRoot string, extra []string) []string {
	out := []string{DistDir, DevDir, VCSDir}
	for _, dir := range extra {
		rel, err := filepath.Rel(filepath.Clean(sourceRoot), filepath.Clean(dir))
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func underAny(p string, dirs []string) bool {
	for _, d := range dirs {
		if p == d || strings.HasPrefix(p, d+"/") {
			return true
		}
	}
	return false
}

// CheckDestinations reports every destination produced by more than one
// source.
func CheckDestinations(mappings []ResolvedMapping) error {
	seen := make(map[string]ResolvedMapping, len(mappings))
	var errs []error
	for _, m := range mappings {
		if prev, ok := seen[m.Destination]; ok {
			errs = append(errs, fmt.Errorf("%w %s: %s (rule %d) and %s (rule %d)",
				ErrDuplicateDestination, m.Destination, prev.Source, prev.Rule, m.Source, m.Rule))
			continue
		}
		seen[m.Destination] = m
	}
	return errors.Join(errs...)
}

// Verify resolves the manifest for every build target and returns the
// warnings of each, prefixed with the target name.
func (m *Manifest) Verify(fsys afero.Fs, sourceRoot string) ([]string, error) {
	if err := m.CheckRules(); err != nil {
		return nil, err
	}
	var warnings []string
	var errs []error
	for _, t := range build.AllTargets() {
		res, err := m.Resolve(fsys, sourceRoot, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
			continue
		}
		for _, w := range res.Warnings {
			warnings = append(warnings, fmt.Sprintf("%s: %s", t, w))
		}
	}
	return warnings, errors.Join(errs...)
}

func destination(template, name string) (string, error) {
	return cleanRelative(strings.ReplaceAll(template, NameToken, name))
}

// cleanRelative cleans a slash-separated path and rejects absolute paths
// and paths leaving their root.
func cleanRelative(p string) (string, error) {
	p = filepath.ToSlash(p)
	if p == "" || path.IsAbs(p) || filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, p)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, p)
	}
	return clean, nil
}
