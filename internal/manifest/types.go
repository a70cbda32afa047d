package manifest

import (
	"errors"
	"slices"
	"strings"

	"github.com/kiro-labs/steerkit/internal/build"
)

// NameToken is the capture token allowed once in a glob source and mirrored
// into the destination template.
const NameToken = "{name}"

// DeclarationVersion is the manifest format version written by `steerkit`
// tooling. Declarations must share its major version.
const DeclarationVersion = "1.0.0"

var (
	ErrNotFound             = errors.New("manifest not found")
	ErrInvalid              = errors.New("invalid manifest")
	ErrInvalidPattern       = errors.New("invalid source pattern")
	ErrUnknownTarget        = errors.New("unknown build target")
	ErrDuplicateDestination = errors.New("duplicate destination")
	ErrUnsafePath           = errors.New("path escapes its root")
)

// Manifest is the parsed declaration.
type Manifest struct {
	Version   string            `yaml:"version" json:"version" toml:"version"`
	Package   PackageInfo       `yaml:"package" json:"package" toml:"package"`
	Variables map[string]string `yaml:"variables,omitempty" json:"variables,omitempty" toml:"variables,omitempty"`
	Sections  []SectionRef      `yaml:"sections,omitempty" json:"sections,omitempty" toml:"sections,omitempty"`
	Mappings  []MappingRule     `yaml:"mappings" json:"mappings" toml:"mappings"`

	// Path is the file the manifest was loaded from.
	Path string `yaml:"-" json:"-" toml:"-"`
}

// PackageInfo describes the package recorded in the registry.
type PackageInfo struct {
	Name        string   `yaml:"name" json:"name" toml:"name"`
	DisplayName string   `yaml:"displayName,omitempty" json:"displayName,omitempty" toml:"displayName,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty" toml:"description,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty" json:"keywords,omitempty" toml:"keywords,omitempty"`
	Author      string   `yaml:"author,omitempty" json:"author,omitempty" toml:"author,omitempty"`
	Version     string   `yaml:"version,omitempty" json:"version,omitempty" toml:"version,omitempty"`
}

// SectionRef declares a placeholder whose value is a section of a source
// document.
type SectionRef struct {
	Key     string `yaml:"key" json:"key" toml:"key"`
	File    string `yaml:"file" json:"file" toml:"file"`
	Heading string `yaml:"heading" json:"heading" toml:"heading"`
}

// MappingRule declares how source files become destination files.
type MappingRule struct {
	Source      string         `yaml:"source" json:"source" toml:"source"`
	Destination string         `yaml:"destination" json:"destination" toml:"destination"`
	Targets     []build.Target `yaml:"targets" json:"targets" toml:"targets"`
}

// AppliesTo reports whether the rule lists target.
func (r MappingRule) AppliesTo(target build.Target) bool {
	return slices.Contains(r.Targets, target)
}

// IsGlob reports whether Source is a pattern rather than a literal path.
func (r MappingRule) IsGlob() bool {
	return strings.ContainsAny(r.Source, "*?[{")
}

// ResolvedMapping is one concrete pair for one target. Both paths are
// slash-separated and relative to their roots.
type ResolvedMapping struct {
	Source      string
	Destination string
	Rule        int
}

// Resolution is the output of Resolve.
type Resolution struct {
	Target   build.Target
	Mappings []ResolvedMapping
	Warnings []string
}
