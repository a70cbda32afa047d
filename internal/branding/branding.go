// Package branding provides compile-time identity values for the CLI.
//
// The values live in branding.yaml next to this file and are baked into the
// binary with //go:embed. Hard defaults cover a missing or empty file.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName        string `yaml:"cli_name"`
	DisplayName    string `yaml:"display_name"`
	Description    string `yaml:"description"`
	HomeDir        string `yaml:"home_dir"`
	PowersDir      string `yaml:"powers_dir"`
	EnvPrefix      string `yaml:"env_prefix"`
	DefaultPackage string `yaml:"default_package"`
	ManifestName   string `yaml:"manifest_name"`
	GoModule       string `yaml:"go_module"`
}

func load() {
	once.Do(func() {
		defaults = brand{
			CLIName:        "steerkit",
			DisplayName:    "Steerkit",
			Description:    "Builds and installs Kiro steering protocol packages",
			HomeDir:        ".kiro",
			PowersDir:      "powers",
			EnvPrefix:      "STEERKIT",
			DefaultPackage: "kiro-protocols",
			ManifestName:   "steerkit",
			GoModule:       "github.com/kiro-labs/steerkit",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "steerkit").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME that owns the powers
// tree (e.g., ".kiro").
func HomeDir() string { load(); return defaults.HomeDir }

// PowersDir returns the directory under HomeDir holding installed packages
// and the registry document.
func PowersDir() string { load(); return defaults.PowersDir }

// EnvPrefix returns the environment variable prefix (e.g., "STEERKIT").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// DefaultPackage returns the package name used when a manifest omits one.
func DefaultPackage() string { load(); return defaults.DefaultPackage }

// ManifestName returns the base name of the manifest declaration file
// (without extension).
func ManifestName() string { load(); return defaults.ManifestName }

// GoModule returns the Go module path. Not consumed at runtime.
func GoModule() string { load(); return defaults.GoModule }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("POWERS_ROOT") → "STEERKIT_POWERS_ROOT".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
