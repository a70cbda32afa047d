package frontmatter

import (
	"errors"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Inclusion modes understood by Kiro steering files.
const (
	InclusionAlways    = "always"
	InclusionFileMatch = "fileMatch"
	InclusionManual    = "manual"
)

const fence = "---"

// ErrMalformed is returned when a frontmatter block exists but is not valid
// YAML for Meta. The returned Document still carries defaults and the body.
var ErrMalformed = errors.New("malformed frontmatter")

// Meta is the typed frontmatter record.
type Meta struct {
	Title            string   `yaml:"title"`
	Description      string   `yaml:"description"`
	Inclusion        string   `yaml:"inclusion"`
	FileMatchPattern string   `yaml:"fileMatchPattern"`
	Keywords         []string `yaml:"keywords"`
}

// Document is a parsed markdown file.
type Document struct {
	Meta           Meta
	HasFrontmatter bool
	Body           string
}

// Parse splits text into frontmatter and body. A file that does not start
// with a "---" line, or whose block is never closed, has no frontmatter.
func Parse(text string) (Document, error) {
	header, body, ok := split(text)
	doc := Document{Body: body, HasFrontmatter: ok}

	var err error
	if ok && strings.TrimSpace(header) != "" {
		if uerr := yaml.Unmarshal([]byte(header), &doc.Meta); uerr != nil {
			doc.Meta = Meta{}
			err = fmt.Errorf("%w: %v", ErrMalformed, uerr)
		}
	}

	applyDefaults(&doc)
	return doc, err
}

// split returns the header and body. ok is false when no complete
// frontmatter block is present, in which case body is the whole text.
func split(text string) (header, body string, ok bool) {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	first, rest, found := strings.Cut(normalized, "\n")
	if strings.TrimRight(first, " \t") != fence {
		return "", text, false
	}
	if !found {
		return "", text, false
	}

	lines := strings.SplitAfter(rest, "\n")
	var hb strings.Builder
	for i, line := range lines {
		if strings.TrimRight(line, " \t\n") == fence {
			return hb.String(), strings.Join(lines[i+1:], ""), true
		}
		hb.WriteString(line)
	}
	return "", text, false
}

func applyDefaults(doc *Document) {
	if doc.Meta.Inclusion == "" {
		doc.Meta.Inclusion = InclusionAlways
	}
	if doc.Meta.Title == "" {
		doc.Meta.Title = firstHeading(doc.Body)
	}
	if doc.Meta.Keywords == nil {
		doc.Meta.Keywords = []string{}
	}
}

// firstHeading returns the text of the first level-one heading, or "".
func firstHeading(body string) string {
	for _, h := range headings(body) {
		if h.level == 1 {
			return h.title
		}
	}
	return ""
}
