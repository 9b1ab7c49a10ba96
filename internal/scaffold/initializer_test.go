package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/fleetbuild/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	t.Run("fresh initialization writes a loadable fleet.yml", func(t *testing.T) {
		dir := t.TempDir()

		require.NoError(t, Initialize(dir, false))

		cfg, err := config.Load(filepath.Join(dir, config.DefaultFile))
		require.NoError(t, err)
		assert.Equal(t, "src/config.h", cfg.ConfigPath)
		require.Len(t, cfg.Targets, 1)
		assert.Equal(t, "example", cfg.Targets[0].ID)
		assert.Empty(t, cfg.Notify.RedisURL)

		info, err := os.Stat(filepath.Join(dir, config.DefaultFile))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
	})

	t.Run("force replaces existing fleet.yml", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, config.DefaultFile)
		require.NoError(t, os.WriteFile(path, []byte("old content"), 0644))

		require.NoError(t, Initialize(dir, true))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(content), "old content")
		assert.Contains(t, string(content), "config_path: src/config.h")
	})
}

func TestCheckExisting(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		assert.NoError(t, CheckExisting(t.TempDir()))
	})

	t.Run("existing fleet.yml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultFile), []byte("version: '1.0'"), 0644))

		err := CheckExisting(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "project already initialized")
		assert.Contains(t, err.Error(), "fleetbuild init --force")
	})
}
