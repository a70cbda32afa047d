package build

import (
	"errors"
	"fmt"
	"regexp"
)

// Target is a named build mode. It selects which manifest rules apply and
// which values placeholders receive.
type Target string

const (
	// LocalInstall writes into the user's powers directory and records the
	// package in the registry.
	LocalInstall Target = "local-install"
	// Distribution writes a relocatable bundle into the dist directory.
	Distribution Target = "distribution"
	// DevWatch rebuilds into a transient development directory on change.
	DevWatch Target = "dev-watch"
)

// AllTargets returns every known target in declaration order.
func AllTargets() []Target {
	return []Target{LocalInstall, Distribution, DevWatch}
}

// ParseTarget converts a string to a Target, returning false if unknown.
func ParseTarget(s string) (Target, bool) {
	switch Target(s) {
	case LocalInstall, Distribution, DevWatch:
		return Target(s), true
	default:
		return "", false
	}
}

// String implements fmt.Stringer.
func (t Target) String() string { return string(t) }

// Relocatable reports whether output for this target must not embed
// absolute paths of the build machine.
func (t Target) Relocatable() bool { return t == Distribution }

// ErrInvalidPackageName is returned for names that are not a single
// lowercase path segment.
var ErrInvalidPackageName = errors.New("invalid package name")

var packageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidatePackageName checks name against the package name pattern of the
// manifest schema. Names become directory names under the powers root, so
// ".", ".." and anything with a separator are refused.
func ValidatePackageName(name string) error {
	if !packageNamePattern.MatchString(name) {
		return fmt.Errorf("%w %q: must match %s", ErrInvalidPackageName, name, packageNamePattern)
	}
	return nil
}

// Context carries everything a placeholder value or a build step may depend
// on. It is passed by value.
type Context struct {
	Target      Target
	PackageName string
	Version     string
	SourceRoot  string
	DestRoot    string
}

// Validate checks the fields every build step relies on.
func (c Context) Validate() error {
	if _, ok := ParseTarget(string(c.Target)); !ok {
		return fmt.Errorf("unknown build target %q", c.Target)
	}
	if c.PackageName == "" {
		return fmt.Errorf("build context has no package name")
	}
	if err := ValidatePackageName(c.PackageName); err != nil {
		return err
	}
	if c.SourceRoot == "" || c.DestRoot == "" {
		return fmt.Errorf("build context needs both a source and a destination root")
	}
	return nil
}
