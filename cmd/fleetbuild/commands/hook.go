package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/fleetbuild/internal/builder"
	"github.com/dyluth/fleetbuild/internal/printer"
	"github.com/spf13/cobra"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Post-build hook entry point",
	Long: `Entry point for the build tool's post-build hook.

When the build tool was started by fleetbuild itself, the hook exits
immediately without reading or writing any file. Invoked from a plain
build, it runs the full target sequence exactly like 'fleetbuild build'.

Example (PlatformIO extra_scripts):
  env.AddPostAction("buildprog", "fleetbuild hook")`,
	RunE: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	exec := builder.FromEnv()
	if exec.Nested {
		printer.Skipped("fleetbuild hook: nested invocation (%s set), nothing to do\n", builder.GuardEnv)
		return nil
	}

	cfg, err := loadProject()
	if err != nil {
		return err
	}

	n, closeNotifier, err := newNotifier(cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := newEngine(cfg, exec, n, printer.Result)
	report, err := engine.RunHook(ctx, cfg.Targets)
	if report != nil && !report.Skipped {
		if perr := printReport(cfg, report); perr != nil {
			return perr
		}
	}
	if err != nil {
		return buildError(cfg, err)
	}
	return nil
}
