package frontmatter

import (
	"fmt"

	"github.com/spf13/afero"
)

// Describe reads a markdown file and returns its frontmatter with defaults
// applied. A malformed header is not fatal: the defaults are returned along
// with the ErrMalformed error so callers can warn and continue.
func Describe(fsys afero.Fs, path string) (Meta, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return Meta{}, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Parse(string(data))
	if err != nil {
		return doc.Meta, fmt.Errorf("%s: %w", path, err)
	}
	return doc.Meta, nil
}

// CountInclusions tallies the inclusion mode of every markdown file in
// paths. Files that cannot be read are skipped.
func CountInclusions(fsys afero.Fs, paths []string) map[string]int {
	counts := map[string]int{}
	for _, p := range paths {
		meta, err := Describe(fsys, p)
		if err != nil && meta.Inclusion == "" {
			continue
		}
		counts[meta.Inclusion]++
	}
	return counts
}
