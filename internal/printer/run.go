package printer

import (
	"github.com/dyluth/fleetbuild/pkg/fleet"
)

// Result prints one line for a recorded target, as it completes.
func Result(res fleet.BuildResult) {
	if res.Succeeded {
		Success("%s (%s): %s, %s\n", res.Target.ID, res.Target.NodeID, res.ArtifactPath, FormatBytes(res.ArtifactSize))
		return
	}
	if res.ErrorKind == fleet.ErrorKindCancelled {
		Skipped("%s (%s): not built, run cancelled\n", res.Target.ID, res.Target.NodeID)
		return
	}
	Warning("%s (%s): %s: %s\n", res.Target.ID, res.Target.NodeID, res.ErrorKind, res.Message)
}

// Summary prints the results table followed by the version, the N/M count
// and the failed targets.
func Summary(report *fleet.Report, outputDir string) error {
	Println()
	if err := ReportTable(stdout, report); err != nil {
		return err
	}

	Println()
	Step("Firmware version: %s\n", report.Version)
	Info("Built %d/%d targets into %s\n", report.SucceededCount(), report.Total(), outputDir)

	if failed := report.Failed(); len(failed) > 0 {
		Println()
		Warning("Failed targets:\n")
		for _, res := range failed {
			Info("  %s: %s\n", res.Target.ID, res.Message)
		}
	}
	return nil
}
