package commands

import (
	"github.com/dyluth/fleetbuild/internal/printer"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List configured build targets",
	Long: `List the targets in fleet.yml in build order, with the artifact
name each one will be collected under.`,
	Args: cobra.NoArgs,
	RunE: runTargets,
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}

func runTargets(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	collector := newCollector(cfg)

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("ID", "NAME", "NODE ID", "ARTIFACT")
	for _, t := range cfg.Targets {
		if err := table.Append([]string{t.ID, t.Name, t.NodeID, collector.CanonicalName(t)}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	printer.Info("\n%d target(s), artifacts go to %s\n", len(cfg.Targets), cfg.Output.Dir)
	return nil
}
