// Package fleet provides the shared data model for fleetbuild: the device
// targets a run builds for, the per-target build results, and the run report
// handed to the CLI and to downstream release consumers.
//
// Targets are supplied as an ordered list. List order is build order, and
// every target gets exactly one BuildResult per run, whether it succeeded or
// not.
//
// The Redis key helpers in schema.go describe where release events are
// published. All keys and channels are namespaced by project name so several
// firmware projects can share one Redis server:
//
//	fleetbuild:{project}:artifacts_ready   (Pub/Sub channel)
//	fleetbuild:{project}:releases          (capped list of past events)
package fleet
