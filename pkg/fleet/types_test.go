package fleet

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetValidate(t *testing.T) {
	t.Run("accepts valid target", func(t *testing.T) {
		target := Target{ID: "vatna", Name: "Vatnakvamsvatnet", NodeID: "playbuoy-vatna"}
		assert.NoError(t, target.Validate())
	})

	t.Run("rejects empty id", func(t *testing.T) {
		err := Target{Name: "Alpha", NodeID: "node-a"}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id cannot be empty")
	})

	t.Run("rejects path separators in id", func(t *testing.T) {
		for _, id := range []string{"../etc", "a/b", `a\b`, ".hidden", "a b"} {
			err := Target{ID: id, Name: "X", NodeID: "n"}.Validate()
			assert.Error(t, err, "id %q should be rejected", id)
		}
	})

	t.Run("rejects missing name", func(t *testing.T) {
		err := Target{ID: "a", NodeID: "node-a"}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name is required")
	})

	t.Run("rejects missing node id", func(t *testing.T) {
		err := Target{ID: "a", Name: "Alpha"}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "node_id is required")
	})
}

func TestValidateTargets(t *testing.T) {
	t.Run("accepts unique targets", func(t *testing.T) {
		err := ValidateTargets([]Target{
			{ID: "a", Name: "Alpha", NodeID: "node-a"},
			{ID: "b", Name: "Beta", NodeID: "node-b"},
		})
		assert.NoError(t, err)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		err := ValidateTargets([]Target{
			{ID: "a", Name: "Alpha", NodeID: "node-a"},
			{ID: "a", Name: "Again", NodeID: "node-a2"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate target id 'a'")
	})

	t.Run("empty list is valid", func(t *testing.T) {
		assert.NoError(t, ValidateTargets(nil))
	})
}

func TestReportCounts(t *testing.T) {
	a := Target{ID: "a", Name: "Alpha", NodeID: "node-a"}
	b := Target{ID: "b", Name: "Beta", NodeID: "node-b"}
	c := Target{ID: "c", Name: "Gamma", NodeID: "node-c"}

	report := NewReport("1.2.0")
	report.Results = append(report.Results,
		NewSuccess(a, "out/a.bin", 42, time.Second),
		NewFailure(b, ErrorKindBuildFailure, "exit code 1", time.Second),
		NewSuccess(c, "out/c.bin", 7, time.Second),
	)

	assert.Equal(t, 3, report.Total())
	assert.Equal(t, 2, report.SucceededCount())
	assert.Equal(t, []Target{a, c}, report.SucceededTargets())
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, ErrorKindBuildFailure, report.Failed()[0].ErrorKind)

	_, err := uuid.Parse(report.RunID)
	assert.NoError(t, err)
}

func TestSkippedReport(t *testing.T) {
	report := SkippedReport()
	assert.True(t, report.Skipped)
	assert.Equal(t, SentinelVersion, report.Version)
	assert.Zero(t, report.Total())
	assert.Empty(t, report.SucceededTargets())
}

func TestSchemaKeys(t *testing.T) {
	assert.Equal(t, "fleetbuild:playbuoy:artifacts_ready", ArtifactsReadyChannel("playbuoy"))
	assert.Equal(t, "fleetbuild:playbuoy:releases", ReleasesKey("playbuoy"))
}
