package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/fleetbuild/pkg/fleet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `version: "1.0"
config_path: src/config.h
build:
  command: ["platformio", "run", "--environment", "lilygo-t-sim7000g"]
  artifact: .pio/build/lilygo-t-sim7000g/firmware.bin
  timeout: 5m
output:
  dir: firmware_builds
  prefix: playbuoy-
notify:
  redis_url: redis://localhost:6379/0
  project: playbuoy
targets:
  - id: vatna
    name: Vatnakvamsvatnet
    node_id: playbuoy-vatna
  - id: grinde
    name: Litla Grindevatnet
    node_id: playbuoy-grinde
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func validFleetConfig() *FleetConfig {
	return &FleetConfig{
		Version: "1.0",
		Build: BuildConfig{
			Command:  []string{"make"},
			Artifact: "build/firmware.bin",
		},
		Targets: []fleet.Target{{ID: "a", Name: "Alpha", NodeID: "node-a"}},
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeFile(t, validConfig)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "src/config.h", config.ConfigPath)
	assert.Equal(t, []string{"platformio", "run", "--environment", "lilygo-t-sim7000g"}, config.Build.Command)
	assert.Equal(t, 5*time.Minute, config.Timeout())
	assert.Equal(t, "playbuoy-", config.Output.Prefix)
	assert.Equal(t, ".bin", config.Output.Extension)
	assert.Equal(t, "playbuoy", config.Notify.Project)
	require.Len(t, config.Targets, 2)
	assert.Equal(t, fleet.Target{ID: "vatna", Name: "Vatnakvamsvatnet", NodeID: "playbuoy-vatna"}, config.Targets[0])
	assert.Equal(t, "grinde", config.Targets[1].ID)

	assert.Equal(t, filepath.Join(filepath.Dir(path), "src", "config.h"), config.Resolve(config.ConfigPath))
	assert.Equal(t, "/abs/path", config.Resolve("/abs/path"))
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/fleet.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, "version: \"1.0\"\ntargets:\n  - this is invalid\n    yaml syntax\n")

	config, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_InvalidConfig(t *testing.T) {
	path := writeFile(t, "version: \"1.0\"\n")

	config, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate_Defaults(t *testing.T) {
	config := validFleetConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, DefaultConfigPath, config.ConfigPath)
	assert.Equal(t, DefaultTimeout, config.Timeout())
	assert.Equal(t, DefaultOutputDir, config.Output.Dir)
	assert.Equal(t, DefaultExtension, config.Output.Extension)
	assert.Equal(t, "", config.Output.Prefix)
	assert.Equal(t, DefaultProject, config.Notify.Project)
	assert.Equal(t, "", config.Notify.RedisURL)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *FleetConfig)
		contains string
	}{
		{
			name:     "unsupported version",
			mutate:   func(c *FleetConfig) { c.Version = "2.0" },
			contains: "unsupported version: 2.0",
		},
		{
			name:     "missing command",
			mutate:   func(c *FleetConfig) { c.Build.Command = nil },
			contains: "build.command is required",
		},
		{
			name:     "missing artifact",
			mutate:   func(c *FleetConfig) { c.Build.Artifact = "" },
			contains: "build.artifact is required",
		},
		{
			name:     "invalid timeout",
			mutate:   func(c *FleetConfig) { c.Build.Timeout = "ten minutes" },
			contains: "invalid duration",
		},
		{
			name:     "negative timeout",
			mutate:   func(c *FleetConfig) { c.Build.Timeout = "-1s" },
			contains: "must be positive",
		},
		{
			name:     "prefix with separator",
			mutate:   func(c *FleetConfig) { c.Output = &OutputConfig{Prefix: "../x-"} },
			contains: "output.prefix",
		},
		{
			name:     "no targets",
			mutate:   func(c *FleetConfig) { c.Targets = nil },
			contains: "no targets defined",
		},
		{
			name: "duplicate target",
			mutate: func(c *FleetConfig) {
				c.Targets = append(c.Targets, fleet.Target{ID: "a", Name: "Again", NodeID: "node-a2"})
			},
			contains: "duplicate target id 'a'",
		},
		{
			name: "unsafe target id",
			mutate: func(c *FleetConfig) {
				c.Targets = []fleet.Target{{ID: "../a", Name: "Alpha", NodeID: "node-a"}}
			},
			contains: "id must contain only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validFleetConfig()
			tt.mutate(config)

			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestSelectTargets(t *testing.T) {
	config := validFleetConfig()
	config.Targets = []fleet.Target{
		{ID: "a", Name: "Alpha", NodeID: "node-a"},
		{ID: "b", Name: "Beta", NodeID: "node-b"},
		{ID: "c", Name: "Gamma", NodeID: "node-c"},
	}

	t.Run("empty selects all", func(t *testing.T) {
		targets, err := config.SelectTargets(nil)
		require.NoError(t, err)
		assert.Len(t, targets, 3)
	})

	t.Run("keeps configuration order", func(t *testing.T) {
		targets, err := config.SelectTargets([]string{"c", "a"})
		require.NoError(t, err)
		require.Len(t, targets, 2)
		assert.Equal(t, "a", targets[0].ID)
		assert.Equal(t, "c", targets[1].ID)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := config.SelectTargets([]string{"zzz"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown target 'zzz'")
	})
}
