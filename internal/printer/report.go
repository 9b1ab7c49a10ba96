package printer

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dyluth/fleetbuild/pkg/fleet"
	"github.com/olekukonko/tablewriter"
)

// ReportTable renders one row per target result.
func ReportTable(w io.Writer, report *fleet.Report) error {
	table := tablewriter.NewWriter(w)
	table.Header("TARGET", "NODE ID", "STATUS", "ARTIFACT", "SIZE", "DURATION")

	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		status := "ok"
		artifact := "-"
		size := "-"
		if res.Succeeded {
			artifact = filepath.Base(res.ArtifactPath)
			size = FormatBytes(res.ArtifactSize)
		} else {
			status = string(res.ErrorKind)
		}
		rows = append(rows, []string{
			res.Target.ID,
			res.Target.NodeID,
			status,
			artifact,
			size,
			res.Duration.Round(100 * time.Millisecond).String(),
		})
	}

	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return table.Render()
}

// ArtifactTable renders collected artifacts with their sizes.
func ArtifactTable(w io.Writer, paths []string, sizes []int64) error {
	table := tablewriter.NewWriter(w)
	table.Header("FILE", "SIZE")

	rows := make([][]string, 0, len(paths))
	for i, p := range paths {
		rows = append(rows, []string{filepath.Base(p), FormatBytes(sizes[i])})
	}

	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to render artifacts: %w", err)
	}
	return table.Render()
}

// FormatBytes formats a byte count with thousands separators, e.g. "1,234,567 bytes".
func FormatBytes(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return s + " bytes"
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out) + " bytes"
}
