package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/fleetbuild/internal/config"
)

// CheckExisting returns an error if dir already holds a fleet.yml
func CheckExisting(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, config.DefaultFile)); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'fleetbuild init --force' to reinitialize (this will overwrite existing configuration)", config.DefaultFile)
	}
	return nil
}
