package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/fleetbuild/internal/notify"
	"github.com/dyluth/fleetbuild/internal/printer"
	"github.com/dyluth/fleetbuild/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchOutputFormat string
	watchNext         bool
	watchTimeout      time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow release events",
	Long: `Follow release events published after successful builds.

Output Formats:
  default - Human-readable output with timestamps
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Stream releases until interrupted
  fleetbuild watch

  # Wait for the next release, print it and exit
  fleetbuild watch --next --timeout 30m

  # Feed a version-descriptor generator
  fleetbuild watch --output=json | ./generate-descriptors`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().BoolVar(&watchNext, "next", false, "Exit after the next release")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 10*time.Minute, "How long --next waits")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	cfg, err := loadProject()
	if err != nil {
		return err
	}
	if cfg.Notify.RedisURL == "" {
		return printer.Error(
			"release events not configured",
			"fleet.yml has no notify.redis_url.",
			[]string{"Add a Redis endpoint:\n  notify:\n    redis_url: redis://localhost:6379/0"},
		)
	}

	n, err := notify.NewRedisNotifierFromURL(cfg.Notify.RedisURL, cfg.Notify.Project)
	if err != nil {
		return fmt.Errorf("failed to create release client: %w", err)
	}
	defer n.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Verify Redis connectivity
	if err := n.Ping(ctx); err != nil {
		return printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.Notify.RedisURL),
			nil,
			[]string{"Check that Redis is running and notify.redis_url is correct"},
		)
	}

	if watchNext {
		return waitForNextRelease(ctx, n, format)
	}

	sub, err := n.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	return watch.StreamReleases(ctx, sub, format, cmd.OutOrStdout())
}

func waitForNextRelease(ctx context.Context, n *notify.RedisNotifier, format watch.OutputFormat) error {
	var after string
	latest, err := n.Latest(ctx)
	if err != nil {
		return err
	}
	if latest != nil {
		after = latest.RunID
	}

	ev, err := watch.PollForRelease(ctx, n, after, watchTimeout)
	if err != nil {
		return printer.Error("no release received", err.Error(), nil)
	}
	return watch.WriteRelease(os.Stdout, format, ev)
}
