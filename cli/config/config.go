// Package config handles YAML config file loading for the multicam CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents a multicam.yaml configuration file.
// All values are optional and act as defaults for CLI flags.
// CLI flags always override config values.
type Config struct {
	Originator  string          `yaml:"originator"`
	SyncDelay   Duration        `yaml:"sync_delay"`
	DownloadDir string          `yaml:"download_dir"`
	Discovery   DiscoveryConfig `yaml:"discovery"`
	Timeouts    TimeoutConfig   `yaml:"timeouts"`
	Storage     StorageConfig   `yaml:"storage"`
	Companion   CompanionConfig `yaml:"companion"`
}

// DiscoveryConfig holds mDNS discovery defaults.
type DiscoveryConfig struct {
	Window Duration `yaml:"window"`
}

// TimeoutConfig holds command channel timeouts.
type TimeoutConfig struct {
	Dial  Duration `yaml:"dial"`
	Reply Duration `yaml:"reply"`
	List  Duration `yaml:"list"`
}

// StorageConfig holds the S3 upload target.
type StorageConfig struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	Anonymous bool   `yaml:"anonymous"`
}

// CompanionConfig holds the local camera-server launch settings.
type CompanionConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Port    int      `yaml:"port"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// ResolveDownloadDir returns the configured download directory, falling
// back to ~/Downloads/multiCam.
func (c *Config) ResolveDownloadDir() string {
	if c.DownloadDir != "" {
		return c.DownloadDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "multiCam"
	}
	return filepath.Join(home, "Downloads", "multiCam")
}
