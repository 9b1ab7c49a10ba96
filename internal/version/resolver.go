// Package version extracts the firmware version currently compiled into the
// shared configuration header.
package version

import (
	"regexp"

	"github.com/dyluth/fleetbuild/internal/directive"
	"github.com/dyluth/fleetbuild/pkg/fleet"
)

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Resolve returns the FIRMWARE_VERSION value from content, or
// fleet.SentinelVersion when it is absent or not major.minor.patch.
func Resolve(content []byte) string {
	v, _ := ResolveWithWarning(content)
	return v
}

// ResolveWithWarning is Resolve, additionally reporting whether the sentinel
// was used so callers can surface a VersionParseWarning.
//
// The header is read with the same parser the patcher uses, so the version
// resolved here is always the one the patcher would find and replace.
func ResolveWithWarning(content []byte) (string, bool) {
	v, ok := directive.Parse(content).Value(directive.KeyFirmwareVersion)
	if !ok || !Valid(v) {
		return fleet.SentinelVersion, true
	}
	return v, false
}

// Valid reports whether v is a major.minor.patch version string.
func Valid(v string) bool {
	return semverPattern.MatchString(v)
}
