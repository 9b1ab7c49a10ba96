package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dyluth/fleetbuild/pkg/fleet"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the project configuration file looked up in the working directory.
const DefaultFile = "fleet.yml"

// Defaults applied by Validate.
const (
	DefaultConfigPath = "src/config.h"
	DefaultOutputDir  = "firmware_builds"
	DefaultExtension  = ".bin"
	DefaultProject    = "fleetbuild"
	DefaultTimeout    = 10 * time.Minute
)

// FleetConfig represents the top-level fleet.yml configuration
type FleetConfig struct {
	Version    string         `yaml:"version"`
	ConfigPath string         `yaml:"config_path,omitempty"` // Shared header patched per target
	Build      BuildConfig    `yaml:"build"`
	Output     *OutputConfig  `yaml:"output,omitempty"`
	Notify     *NotifyConfig  `yaml:"notify,omitempty"`
	Targets    []fleet.Target `yaml:"targets"`

	// baseDir is the directory of the loaded file; relative paths resolve against it
	baseDir string
}

// BuildConfig specifies how the external build tool is run
type BuildConfig struct {
	Command  []string `yaml:"command"`           // Required: executed directly, no shell
	Dir      string   `yaml:"dir,omitempty"`     // Working directory, default: project root
	Artifact string   `yaml:"artifact"`          // Required: where the tool leaves its output
	Timeout  string   `yaml:"timeout,omitempty"` // Go duration, default: 10m

	timeout time.Duration
}

// OutputConfig specifies where and how collected artifacts are named
type OutputConfig struct {
	Dir       string `yaml:"dir,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Extension string `yaml:"extension,omitempty"`
}

// NotifyConfig specifies the release trigger endpoint
type NotifyConfig struct {
	RedisURL string `yaml:"redis_url,omitempty"` // Empty disables the trigger
	Project  string `yaml:"project,omitempty"`
}

// Validate performs strict validation on the configuration and applies defaults
func (c *FleetConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.ConfigPath == "" {
		c.ConfigPath = DefaultConfigPath
	}

	if len(c.Build.Command) == 0 {
		return fmt.Errorf("build.command is required")
	}
	if c.Build.Artifact == "" {
		return fmt.Errorf("build.artifact is required")
	}

	c.Build.timeout = DefaultTimeout
	if c.Build.Timeout != "" {
		d, err := time.ParseDuration(c.Build.Timeout)
		if err != nil {
			return fmt.Errorf("build.timeout: invalid duration %q: %w", c.Build.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("build.timeout must be positive, got %s", c.Build.Timeout)
		}
		c.Build.timeout = d
	}

	if c.Output == nil {
		c.Output = &OutputConfig{}
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.Extension == "" {
		c.Output.Extension = DefaultExtension
	}
	if filepath.Base(c.Output.Prefix) != c.Output.Prefix && c.Output.Prefix != "" {
		return fmt.Errorf("output.prefix must not contain path separators: %q", c.Output.Prefix)
	}

	if c.Notify == nil {
		c.Notify = &NotifyConfig{}
	}
	if c.Notify.Project == "" {
		c.Notify.Project = DefaultProject
	}

	// Required: at least one target
	if len(c.Targets) == 0 {
		return fmt.Errorf("no targets defined")
	}
	if err := fleet.ValidateTargets(c.Targets); err != nil {
		return err
	}

	return nil
}

// Timeout returns the validated per-build timeout.
func (c *FleetConfig) Timeout() time.Duration {
	if c.Build.timeout == 0 {
		return DefaultTimeout
	}
	return c.Build.timeout
}

// Resolve returns p relative to the directory fleet.yml was loaded from.
// Absolute paths are returned unchanged.
func (c *FleetConfig) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// SelectTargets returns the configured targets whose id is in ids, in
// configuration order. An empty ids selects every target.
func (c *FleetConfig) SelectTargets(ids []string) ([]fleet.Target, error) {
	if len(ids) == 0 {
		return c.Targets, nil
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var selected []fleet.Target
	for _, t := range c.Targets {
		if wanted[t.ID] {
			selected = append(selected, t)
			delete(wanted, t.ID)
		}
	}
	for id := range wanted {
		return nil, fmt.Errorf("unknown target '%s'", id)
	}
	return selected, nil
}

// Load reads and validates fleet.yml from the specified path
func Load(path string) (*FleetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config FleetConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config directory: %w", err)
	}
	config.baseDir = abs

	return &config, nil
}
