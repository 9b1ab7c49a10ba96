// Package artifact copies the build tool's output to a canonical per-target
// name in the output directory.
package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dyluth/fleetbuild/pkg/fleet"
)

// DefaultExtension is appended to canonical artifact names when none is configured.
const DefaultExtension = ".bin"

// Artifact is a collected build output.
type Artifact struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Collector names artifacts Prefix + target id + Extension inside OutputDir.
type Collector struct {
	OutputDir string
	Prefix    string
	Extension string
}

// NewCollector creates a Collector, defaulting the extension to ".bin".
func NewCollector(outputDir, prefix, extension string) *Collector {
	if extension == "" {
		extension = DefaultExtension
	}
	return &Collector{OutputDir: outputDir, Prefix: prefix, Extension: extension}
}

// CanonicalName returns the file name used for t's artifact.
func (c *Collector) CanonicalName(t fleet.Target) string {
	return c.Prefix + t.ID + c.Extension
}

// CanonicalPath returns the full path used for t's artifact.
func (c *Collector) CanonicalPath(t fleet.Target) string {
	return filepath.Join(c.OutputDir, c.CanonicalName(t))
}

// Collect copies source to t's canonical path. A missing source wraps
// fleet.ErrArtifactMissing. The copy is written to a temporary file and
// renamed into place so a partial copy never carries the canonical name.
func (c *Collector) Collect(source string, t fleet.Target) (*Artifact, error) {
	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", fleet.ErrArtifactMissing, source)
		}
		return nil, fmt.Errorf("failed to stat artifact %s: %w", source, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", fleet.ErrArtifactMissing, source)
	}

	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	dest := c.CanonicalPath(t)
	size, err := copyFile(source, dest)
	if err != nil {
		return nil, err
	}

	return &Artifact{Path: dest, Size: size}, nil
}

func copyFile(source, dest string) (int64, error) {
	in, err := os.Open(source)
	if err != nil {
		return 0, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	size, err := io.Copy(tmp, in)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to copy artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to flush artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return 0, fmt.Errorf("failed to set artifact permissions: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return 0, fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return size, nil
}

// List returns the artifacts in OutputDir carrying this collector's prefix
// and extension, sorted by name. A missing output directory yields no artifacts.
func (c *Collector) List() ([]Artifact, error) {
	entries, err := os.ReadDir(c.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var artifacts []Artifact
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasPrefix(name, c.Prefix) || !strings.HasSuffix(name, c.Extension) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		artifacts = append(artifacts, Artifact{Path: filepath.Join(c.OutputDir, name), Size: info.Size()})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Path < artifacts[j].Path
	})
	return artifacts, nil
}
