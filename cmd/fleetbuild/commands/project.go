package commands

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/dyluth/fleetbuild/internal/artifact"
	"github.com/dyluth/fleetbuild/internal/builder"
	"github.com/dyluth/fleetbuild/internal/config"
	"github.com/dyluth/fleetbuild/internal/notify"
	"github.com/dyluth/fleetbuild/internal/orchestrator"
	"github.com/dyluth/fleetbuild/internal/printer"
	"github.com/dyluth/fleetbuild/pkg/fleet"
)

// loadProject loads fleet.yml and turns load failures into CLI errors.
func loadProject() (*config.FleetConfig, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, printer.Error(
				"fleet.yml not found",
				fmt.Sprintf("No project configuration at %s.", configFile),
				[]string{"Run from the project root, or pass --config <path>"},
			)
		}
		return nil, printer.ErrorWithContext(
			"invalid project configuration",
			err.Error(),
			map[string]string{"Config": configFile},
			nil,
		)
	}
	return cfg, nil
}

// newCollector creates the artifact collector for cfg.
func newCollector(cfg *config.FleetConfig) *artifact.Collector {
	return artifact.NewCollector(cfg.Resolve(cfg.Output.Dir), cfg.Output.Prefix, cfg.Output.Extension)
}

// newNotifier returns the configured release notifier and a close func.
func newNotifier(cfg *config.FleetConfig) (notify.Notifier, func(), error) {
	if cfg.Notify.RedisURL == "" {
		return notify.Nop{}, func() {}, nil
	}
	n, err := notify.NewRedisNotifierFromURL(cfg.Notify.RedisURL, cfg.Notify.Project)
	if err != nil {
		return nil, nil, err
	}
	return n, func() { n.Close() }, nil
}

// newEngine wires the orchestrator for cfg.
func newEngine(cfg *config.FleetConfig, exec builder.ExecContext, n notify.Notifier, onResult func(fleet.BuildResult)) *orchestrator.Engine {
	dir := cfg.Build.Dir
	if dir == "" {
		dir = "."
	}

	return orchestrator.NewEngine(orchestrator.Options{
		ConfigPath:   cfg.Resolve(cfg.ConfigPath),
		ArtifactPath: cfg.Resolve(cfg.Build.Artifact),
		Project:      cfg.Notify.Project,
		Exec:         exec,
		Builder: &builder.Invoker{
			Command: cfg.Build.Command,
			Dir:     cfg.Resolve(dir),
			Timeout: cfg.Timeout(),
		},
		Collector: newCollector(cfg),
		Notifier:  n,
		OnResult:  onResult,
	})
}
