// Package cli defines the Cobra command tree for the steerkit CLI. Each file
// registers one top-level command (install, build, watch, validate, and so on)
// with the root command. Commands resolve paths and flags, then hand off to
// the installer, watch and registry packages; they only format output.
package cli
