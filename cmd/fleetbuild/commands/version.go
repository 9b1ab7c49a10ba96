package commands

import (
	"fmt"
	"os"

	"github.com/dyluth/fleetbuild/internal/printer"
	fwversion "github.com/dyluth/fleetbuild/internal/version"
	"github.com/dyluth/fleetbuild/pkg/fleet"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the firmware version from the configuration header",
	Long: `Print the FIRMWARE_VERSION declared in the shared configuration header.

A missing or malformed version prints the sentinel 0.0.0 with a warning.
This is the version every artifact of the next build will carry.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	path := cfg.Resolve(cfg.ConfigPath)
	content, err := os.ReadFile(path)
	if err != nil {
		return printer.ErrorWithContext(
			"configuration header unavailable",
			err.Error(),
			map[string]string{"Config header": cfg.ConfigPath},
			nil,
		)
	}

	v, fallback := fwversion.ResolveWithWarning(content)
	if fallback {
		printer.Warning("no valid FIRMWARE_VERSION in %s, using %s\n", cfg.ConfigPath, fleet.SentinelVersion)
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}
