package commands

import (
	"context"
	"time"

	"github.com/dyluth/fleetbuild/internal/notify"
	"github.com/dyluth/fleetbuild/internal/printer"
	"github.com/spf13/cobra"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "List collected firmware images",
	Long: `List the firmware images in the output directory with their sizes.

When notify.redis_url is configured, the most recent release event is
shown as well.`,
	Args: cobra.NoArgs,
	RunE: runArtifacts,
}

func init() {
	rootCmd.AddCommand(artifactsCmd)
}

func runArtifacts(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	artifacts, err := newCollector(cfg).List()
	if err != nil {
		return err
	}

	if len(artifacts) == 0 {
		printer.Info("No artifacts in %s\n", cfg.Output.Dir)
		printer.Info("\nBuild them first:\n  fleetbuild build\n")
	} else {
		paths := make([]string, len(artifacts))
		sizes := make([]int64, len(artifacts))
		for i, a := range artifacts {
			paths[i] = a.Path
			sizes[i] = a.Size
		}
		if err := printer.ArtifactTable(cmd.OutOrStdout(), paths, sizes); err != nil {
			return err
		}
	}

	if cfg.Notify.RedisURL == "" {
		return nil
	}

	n, err := notify.NewRedisNotifierFromURL(cfg.Notify.RedisURL, cfg.Notify.Project)
	if err != nil {
		return err
	}
	defer n.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	latest, err := n.Latest(ctx)
	if err != nil {
		printer.Warning("could not read release history: %v\n", err)
		return nil
	}
	if latest == nil {
		printer.Info("\nNo release recorded for %s\n", cfg.Notify.Project)
		return nil
	}
	printer.Println()
	printer.Step("Latest release: version %s, %d target(s), %s\n",
		latest.Version, len(latest.Targets), latest.At.Local().Format(time.RFC3339))
	return nil
}
