package printer

import (
	"bytes"
	"testing"
	"time"

	"github.com/dyluth/fleetbuild/pkg/fleet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title for multiple suggestions", func(t *testing.T) {
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})
}

func TestErrorWithContext(t *testing.T) {
	context := map[string]string{
		"Config": "src/config.h",
		"Target": "vatna",
	}
	err := ErrorWithContext("Test Error", "Explanation", context, []string{"Fix it"})
	require.Error(t, err)
	require.Equal(t, "Test Error", err.Error())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 bytes", FormatBytes(0))
	assert.Equal(t, "999 bytes", FormatBytes(999))
	assert.Equal(t, "1,000 bytes", FormatBytes(1000))
	assert.Equal(t, "1,234,567 bytes", FormatBytes(1234567))
}

func TestReportTable(t *testing.T) {
	report := fleet.NewReport("1.2.0")
	report.Results = append(report.Results,
		fleet.NewSuccess(fleet.Target{ID: "vatna", Name: "Vatna", NodeID: "playbuoy-vatna"},
			"firmware_builds/playbuoy-vatna.bin", 1048576, 2*time.Second),
		fleet.NewFailure(fleet.Target{ID: "grinde", Name: "Grinde", NodeID: "playbuoy-grinde"},
			fleet.ErrorKindBuildFailure, "exit code 1", time.Second),
	)

	var buf bytes.Buffer
	require.NoError(t, ReportTable(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "playbuoy-vatna.bin")
	assert.Contains(t, out, "1,048,576 bytes")
	assert.Contains(t, out, "BuildFailure")
	assert.Contains(t, out, "grinde")
}

func TestArtifactTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ArtifactTable(&buf, []string{"out/playbuoy-a.bin"}, []int64{2048}))
	assert.Contains(t, buf.String(), "playbuoy-a.bin")
	assert.Contains(t, buf.String(), "2,048 bytes")
}

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	t.Cleanup(SetOutput(out, errOut))
	return out, errOut
}

func TestErrorWithContext_PrintsToStderr(t *testing.T) {
	out, errOut := captureOutput(t)

	err := ErrorWithContext("header unavailable", "permission denied",
		map[string]string{"Target": "vatna", "Config": "src/config.h"},
		[]string{"Check permissions", "Run as the project owner"})
	require.EqualError(t, err, "header unavailable")

	assert.Empty(t, out.String())
	printed := errOut.String()
	assert.Contains(t, printed, "header unavailable")
	assert.Contains(t, printed, "permission denied")
	assert.Less(t, bytes.Index(errOut.Bytes(), []byte("Config:")), bytes.Index(errOut.Bytes(), []byte("Target:")))
	assert.Contains(t, printed, "Either:")
	assert.Contains(t, printed, "2. Run as the project owner")
}

func TestResult(t *testing.T) {
	target := fleet.Target{ID: "vatna", Name: "Vatna", NodeID: "playbuoy-vatna"}

	tests := []struct {
		name     string
		res      fleet.BuildResult
		expected []string
	}{
		{
			name:     "success",
			res:      fleet.NewSuccess(target, "firmware_builds/playbuoy-vatna.bin", 2048, time.Second),
			expected: []string{"✓ vatna (playbuoy-vatna)", "playbuoy-vatna.bin", "2,048 bytes"},
		},
		{
			name:     "build failure",
			res:      fleet.NewFailure(target, fleet.ErrorKindBuildFailure, "exit code 1", time.Second),
			expected: []string{"⚠️", "vatna (playbuoy-vatna): BuildFailure: exit code 1"},
		},
		{
			name:     "cancelled",
			res:      fleet.NewFailure(target, fleet.ErrorKindCancelled, "run cancelled before build", 0),
			expected: []string{"vatna (playbuoy-vatna): not built, run cancelled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := captureOutput(t)
			Result(tt.res)
			for _, s := range tt.expected {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	out, _ := captureOutput(t)

	report := fleet.NewReport("1.2.0")
	report.Results = append(report.Results,
		fleet.NewSuccess(fleet.Target{ID: "a", Name: "Alpha", NodeID: "node-a"}, "out/a.bin", 10, time.Second),
		fleet.NewFailure(fleet.Target{ID: "b", Name: "Bravo", NodeID: "node-b"}, fleet.ErrorKindBuildFailure, "exit code 2", time.Second),
	)

	require.NoError(t, Summary(report, "firmware_builds"))

	printed := out.String()
	assert.Contains(t, printed, "Firmware version: 1.2.0")
	assert.Contains(t, printed, "Built 1/2 targets into firmware_builds")
	assert.Contains(t, printed, "Failed targets:")
	assert.Contains(t, printed, "b: exit code 2")
}
