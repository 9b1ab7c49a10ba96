package directive

import (
	"strings"
	"testing"

	"github.com/dyluth/fleetbuild/pkg/fleet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alpha = fleet.Target{ID: "a", Name: "Alpha", NodeID: "node-a"}
	beta  = fleet.Target{ID: "b", Name: "Beta", NodeID: "node-b"}
)

func TestPatch(t *testing.T) {
	out := string(Patch([]byte(sampleHeader), alpha, "1.2.0"))

	assert.Contains(t, out, "#define NODE_ID \"node-a\"\n")
	assert.Contains(t, out, "#define NAME \"Alpha\"\n")
	assert.Contains(t, out, "#define FIRMWARE_VERSION \"1.2.0\"\n")
	assert.NotContains(t, out, "playbuoy-vatna")
	assert.Contains(t, out, "#define GPS_SYNC_INTERVAL_SECONDS (24 * 3600)  // 24 hours\n")
}

func TestPatchIsolation(t *testing.T) {
	pristine := []byte(sampleHeader)
	pristineLines := strings.Split(sampleHeader, "\n")

	for _, target := range []fleet.Target{alpha, beta} {
		patched := strings.Split(string(Patch(pristine, target, "1.2.0")), "\n")
		require.Len(t, patched, len(pristineLines))

		for i := range pristineLines {
			if isIdentityLine(pristineLines[i]) {
				continue
			}
			assert.Equal(t, pristineLines[i], patched[i], "line %d changed for target %s", i, target.ID)
		}
	}

	// A and B only differ on identity lines.
	a := strings.Split(string(Patch(pristine, alpha, "1.2.0")), "\n")
	b := strings.Split(string(Patch(pristine, beta, "1.2.0")), "\n")
	for i := range a {
		if a[i] != b[i] {
			assert.True(t, isIdentityLine(a[i]), "unexpected difference on line %d: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestPatchNoCrossTargetDrift(t *testing.T) {
	pristine := []byte(sampleHeader)

	alone := Patch(pristine, beta, "1.2.0")

	// Sequence [A, B]: B is still derived from the pristine content.
	_ = Patch(pristine, alpha, "1.2.0")
	afterA := Patch(pristine, beta, "1.2.0")

	assert.Equal(t, alone, afterA)
}

func TestPatchDoesNotModifyInput(t *testing.T) {
	pristine := []byte(sampleHeader)
	_ = Patch(pristine, alpha, "1.2.0")
	assert.Equal(t, sampleHeader, string(pristine))
}

func TestPatchMissingDirectives(t *testing.T) {
	out := string(Patch([]byte("#define API_PORT 80\n"), alpha, "0.0.0"))
	expected := "#define NODE_ID \"node-a\"\n" +
		"#define NAME \"Alpha\"\n" +
		"#define FIRMWARE_VERSION \"0.0.0\"\n" +
		"#define API_PORT 80\n"
	assert.Equal(t, expected, out)
}

func isIdentityLine(line string) bool {
	doc := Parse([]byte(line))
	for _, key := range Keys {
		if doc.Has(key) {
			return true
		}
	}
	return false
}
