package commands

import (
	"fmt"

	"github.com/dyluth/fleetbuild/internal/config"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fleetbuild",
	Short: "fleetbuild - Per-device firmware builds from one source tree",
	Long: `fleetbuild builds one firmware image per device from a single source tree.

For each target listed in fleet.yml it patches the NODE_ID, NAME and
FIRMWARE_VERSION directives of the shared configuration header, runs the
build tool, and collects the resulting image under a per-device name.
The header is always restored to its original content afterwards.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no subcommand is specified, show help
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultFile, "Path to fleet.yml")
}
