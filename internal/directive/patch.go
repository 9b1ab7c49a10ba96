package directive

import "github.com/dyluth/fleetbuild/pkg/fleet"

// Patch returns pristine with the identity directives of t and version
// applied. It must be given the captured pristine content, never the output
// of an earlier Patch call, so no target inherits another target's identity.
func Patch(pristine []byte, t fleet.Target, version string) []byte {
	doc := Parse(pristine)
	doc.Set(KeyNodeID, t.NodeID)
	doc.Set(KeyName, t.Name)
	doc.Set(KeyFirmwareVersion, version)
	return doc.Bytes()
}
