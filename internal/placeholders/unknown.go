package placeholders

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/manifest"
	"github.com/kiro-labs/steerkit/internal/substitute"
)

// UnknownTokens lists every {{{KEY}}} token in the mapped sources of m that
// rules has no value for. Each source is read once across all targets;
// missing sources are skipped. Targets whose mappings do not resolve are
// skipped too.
func UnknownTokens(m *manifest.Manifest, fsys afero.Fs, sourceRoot string, rules *substitute.RuleSet) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, t := range build.AllTargets() {
		res, err := m.Resolve(fsys, sourceRoot, t)
		if err != nil {
			continue
		}
		for _, mapping := range res.Mappings {
			if seen[mapping.Source] {
				continue
			}
			seen[mapping.Source] = true

			data, err := afero.ReadFile(fsys, filepath.Join(sourceRoot, filepath.FromSlash(mapping.Source)))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return out, fmt.Errorf("reading %s: %w", mapping.Source, err)
			}
			for _, key := range substitute.Tokens(string(data)) {
				if _, ok := rules.Lookup(key); !ok {
					out = append(out, fmt.Sprintf("%s: %s has no value", mapping.Source, substitute.Token(key)))
				}
			}
		}
	}
	return out, nil
}
