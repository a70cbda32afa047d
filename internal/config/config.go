package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/kiro-labs/steerkit/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Known configuration keys.
const (
	KeySourceRoot = "source_root"
	KeyManifest   = "manifest"
	KeyPowersRoot = "powers_root"
	KeyDistRoot   = "dist_root"
	KeyDevRoot    = "dev_root"
	KeyPackage    = "package"
)

// Keys returns every key accepted by Set.
func Keys() []string {
	return []string{KeySourceRoot, KeyManifest, KeyPowersRoot, KeyDistRoot, KeyDevRoot, KeyPackage}
}

// IsKey reports whether key is a known configuration key.
func IsKey(key string) bool {
	return slices.Contains(Keys(), key)
}

// Dir returns the configuration directory.
func Dir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = xdg.ConfigHome
	}
	return filepath.Join(configHome, branding.CLIName())
}

// FilePath returns the full path to the config file.
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()
	viper.SetDefault(KeyPackage, branding.DefaultPackage())

	// A missing config file is fine.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if !IsKey(key) {
		return fmt.Errorf("unknown config key %q (valid: %v)", key, Keys())
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// All returns the effective value of every known key.
func All() map[string]string {
	out := make(map[string]string, len(Keys()))
	for _, k := range Keys() {
		out[k] = viper.GetString(k)
	}
	return out
}
