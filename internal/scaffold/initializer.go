package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/fleetbuild/internal/config"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*
var templatesFS embed.FS

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes a starter fleet.yml into dir.
// If force is true, an existing fleet.yml is replaced.
func Initialize(dir string, force bool) error {
	if force {
		if err := handleForce(dir); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles(dir)
	if err != nil {
		return err
	}

	if err := writeFiles(files); err != nil {
		return err
	}

	return validateCreatedFiles(dir)
}

// handleForce removes an existing fleet.yml
func handleForce(dir string) error {
	path := filepath.Join(dir, config.DefaultFile)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("⚠️  Removing existing %s...\n", config.DefaultFile)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", config.DefaultFile, err)
		}
	}
	return nil
}

func getTemplateFiles(dir string) ([]FileInfo, error) {
	fleetYml, err := templatesFS.ReadFile("templates/fleet.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read fleet.yml template: %w", err)
	}
	return []FileInfo{{
		Path:        filepath.Join(dir, config.DefaultFile),
		Content:     fleetYml,
		Permissions: 0644,
	}}, nil
}

func writeFiles(files []FileInfo) error {
	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles checks the written fleet.yml passes config validation
func validateCreatedFiles(dir string) error {
	content, err := os.ReadFile(filepath.Join(dir, config.DefaultFile))
	if err != nil {
		return fmt.Errorf("failed to read created %s: %w", config.DefaultFile, err)
	}

	var cfg config.FleetConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return fmt.Errorf("created %s is not valid YAML: %w", config.DefaultFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.DefaultFile, err)
	}
	return nil
}

// PrintSuccess prints the success message with next steps
func PrintSuccess() {
	fmt.Println("\n✅ Successfully initialized fleetbuild project!")
	fmt.Println("\nCreated:")
	fmt.Printf("  ✓ %s\n", config.DefaultFile)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set build.command and build.artifact for your toolchain")
	fmt.Println("  2. List your devices under targets")
	fmt.Println("  3. Add 'firmware_builds/' to your .gitignore file")
	fmt.Println("  4. Run 'fleetbuild build'")
}
