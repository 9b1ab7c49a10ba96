package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dyluth/fleetbuild/internal/builder"
	"github.com/dyluth/fleetbuild/internal/config"
	"github.com/dyluth/fleetbuild/internal/orchestrator"
	"github.com/dyluth/fleetbuild/internal/printer"
	"github.com/dyluth/fleetbuild/pkg/fleet"
	"github.com/spf13/cobra"
)

var (
	buildTargets []string
	buildJSON    bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build firmware for every configured target",
	Long: `Build one firmware image per target listed in fleet.yml.

The shared configuration header is captured before the first target and
restored byte-for-byte when the run ends, whether it succeeds, fails or
is interrupted. A failing target is reported and the run continues with
the next one.

Examples:
  # Build all targets
  fleetbuild build

  # Build a subset, in the given order
  fleetbuild build --target vatna --target fjord

  # Machine-readable report
  fleetbuild build --json > report.json`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringSliceVarP(&buildTargets, "target", "t", nil, "Build only these target ids (repeatable)")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "Print the run report as JSON")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	exec := builder.FromEnv()
	if exec.Nested {
		printer.Skipped("fleetbuild already running (%s set), skipping nested build\n", builder.GuardEnv)
		return nil
	}

	cfg, err := loadProject()
	if err != nil {
		return err
	}

	targets, err := cfg.SelectTargets(buildTargets)
	if err != nil {
		return printer.Error(
			"unknown target",
			err.Error(),
			[]string{"List configured targets:\n  fleetbuild targets"},
		)
	}

	n, closeNotifier, err := newNotifier(cfg)
	if err != nil {
		return printer.ErrorWithContext(
			"invalid notify configuration",
			err.Error(),
			map[string]string{"Redis URL": cfg.Notify.RedisURL},
			nil,
		)
	}
	defer closeNotifier()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var onResult func(fleet.BuildResult)
	if !buildJSON {
		printer.Info("Building %d target(s) from %s\n\n", len(targets), cfg.ConfigPath)
		onResult = printer.Result
	}

	engine := newEngine(cfg, exec, n, onResult)
	report, runErr := engine.Run(ctx, targets)

	if report != nil {
		if err := printReport(cfg, report); err != nil {
			return err
		}
	}

	if runErr != nil {
		return buildError(cfg, runErr)
	}
	if len(report.Failed()) > 0 {
		return failedTargetsError(report)
	}
	return nil
}

func printReport(cfg *config.FleetConfig, report *fleet.Report) error {
	if buildJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printer.Summary(report, cfg.Output.Dir)
}

// failedTargetsError reports per-target failures as a CLI error.
func failedTargetsError(report *fleet.Report) error {
	failed := report.Failed()
	details := make([]string, 0, len(failed))
	for _, res := range failed {
		details = append(details, fmt.Sprintf("  %s (%s): %s", res.Target.ID, res.ErrorKind, res.Message))
	}
	return printer.Error(
		fmt.Sprintf("%d of %d targets failed", len(failed), report.Total()),
		strings.Join(details, "\n"),
		[]string{"Rebuild only the failed targets:\n  fleetbuild build --target <id>"},
	)
}

// buildError maps run-fatal errors to CLI errors.
func buildError(cfg *config.FleetConfig, err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrRunInProgress):
		return printer.Error("build already running", err.Error(), nil)
	case errors.Is(err, fleet.ErrSnapshot):
		return printer.ErrorWithContext(
			"configuration header unavailable",
			err.Error(),
			map[string]string{"Config header": cfg.ConfigPath},
			[]string{"Check that the header exists and is writable"},
		)
	default:
		return printer.ErrorWithContext(
			"build run failed",
			err.Error(),
			map[string]string{"Config header": cfg.ConfigPath},
			nil,
		)
	}
}
