package orchestrator

// State is the position of a run in the build state machine:
//
//	Idle → SnapshotCaptured → {Patched → Building → Collecting → Recorded}* → Restoring → Done
//
// Collecting is skipped for targets whose build failed.
type State string

const (
	StateIdle             State = "idle"
	StateSnapshotCaptured State = "snapshot_captured"
	StatePatched          State = "patched"
	StateBuilding         State = "building"
	StateCollecting       State = "collecting"
	StateRecorded         State = "recorded"
	StateRestoring        State = "restoring"
	StateDone             State = "done"
)
