package fleet

import "fmt"

// ArtifactsReadyChannel returns the Pub/Sub channel release events are published on.
// Pattern: fleetbuild:{project}:artifacts_ready
func ArtifactsReadyChannel(project string) string {
	return fmt.Sprintf("fleetbuild:%s:artifacts_ready", project)
}

// ReleasesKey returns the Redis list holding the most recent release events.
// Pattern: fleetbuild:{project}:releases
func ReleasesKey(project string) string {
	return fmt.Sprintf("fleetbuild:%s:releases", project)
}
