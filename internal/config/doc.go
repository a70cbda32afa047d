// Package config manages user-level settings stored at
// $XDG_CONFIG_HOME/steerkit/config.yaml. Every key can be overridden by a
// STEERKIT_-prefixed environment variable.
package config
