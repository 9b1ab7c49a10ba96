package fleet

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// SentinelVersion is reported when the configuration carries no usable
// FIRMWARE_VERSION directive.
const SentinelVersion = "0.0.0"

var (
	// ErrSnapshot marks failures to read or write the shared configuration
	// file. It is the only error that aborts a whole run.
	ErrSnapshot = errors.New("snapshot error")

	// ErrArtifactMissing marks a build that reported success without leaving
	// its output artifact behind.
	ErrArtifactMissing = errors.New("artifact missing")
)

var targetIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Target is one device variant that needs its own identity baked into the
// firmware image.
type Target struct {
	ID     string `json:"id" yaml:"id"`           // Filesystem-safe, unique within a run
	Name   string `json:"name" yaml:"name"`       // Display name compiled in as NAME
	NodeID string `json:"node_id" yaml:"node_id"` // Opaque node identifier compiled in as NODE_ID
}

// Validate checks that the target can be built and named on disk.
func (t Target) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("target id cannot be empty")
	}
	if !targetIDPattern.MatchString(t.ID) {
		return fmt.Errorf("target '%s': id must contain only letters, digits, '.', '_' or '-'", t.ID)
	}
	if t.Name == "" {
		return fmt.Errorf("target '%s': name is required", t.ID)
	}
	if t.NodeID == "" {
		return fmt.Errorf("target '%s': node_id is required", t.ID)
	}
	return nil
}

// ValidateTargets validates every target and enforces unique ids.
func ValidateTargets(targets []Target) error {
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate target id '%s'", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

// ErrorKind classifies why a target (or a run) failed.
type ErrorKind string

const (
	// ErrorKindNone is used for successful results
	ErrorKindNone ErrorKind = ""

	// ErrorKindSnapshot means the shared configuration could not be read or written
	ErrorKindSnapshot ErrorKind = "SnapshotError"

	// ErrorKindBuildFailure means the build tool exited nonzero or timed out
	ErrorKindBuildFailure ErrorKind = "BuildFailure"

	// ErrorKindArtifactMissing means the build succeeded but produced no artifact
	ErrorKindArtifactMissing ErrorKind = "ArtifactMissing"

	// ErrorKindCollectFailure means the artifact exists but could not be copied
	// to the output directory
	ErrorKindCollectFailure ErrorKind = "CollectFailure"

	// ErrorKindVersionParseWarning means the version fell back to SentinelVersion
	ErrorKindVersionParseWarning ErrorKind = "VersionParseWarning"

	// ErrorKindCancelled means the run was cancelled before this target was built
	ErrorKindCancelled ErrorKind = "Cancelled"
)

// BuildResult is the outcome of one target within a run. Results are created
// through NewSuccess or NewFailure and are not modified afterwards.
type BuildResult struct {
	Target       Target        `json:"target"`
	Succeeded    bool          `json:"succeeded"`
	ArtifactPath string        `json:"artifact_path,omitempty"`
	ArtifactSize int64         `json:"artifact_size,omitempty"`
	ErrorKind    ErrorKind     `json:"error_kind,omitempty"`
	Message      string        `json:"message,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// NewSuccess records a target whose artifact was collected.
func NewSuccess(t Target, artifactPath string, size int64, d time.Duration) BuildResult {
	return BuildResult{
		Target:       t,
		Succeeded:    true,
		ArtifactPath: artifactPath,
		ArtifactSize: size,
		Duration:     d,
	}
}

// NewFailure records a target that did not produce an artifact.
func NewFailure(t Target, kind ErrorKind, message string, d time.Duration) BuildResult {
	return BuildResult{
		Target:    t,
		ErrorKind: kind,
		Message:   message,
		Duration:  d,
	}
}

// Report aggregates every BuildResult of one run.
type Report struct {
	RunID      string        `json:"run_id"`
	Version    string        `json:"version"`
	Skipped    bool          `json:"skipped,omitempty"` // Nested invocation, nothing was built
	Results    []BuildResult `json:"results"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// NewReport starts a report with a fresh run id.
func NewReport(version string) *Report {
	return &Report{
		RunID:     uuid.New().String(),
		Version:   version,
		Results:   []BuildResult{},
		StartedAt: time.Now(),
	}
}

// SkippedReport is returned by nested invocations.
func SkippedReport() *Report {
	now := time.Now()
	return &Report{
		RunID:      uuid.New().String(),
		Version:    SentinelVersion,
		Skipped:    true,
		Results:    []BuildResult{},
		StartedAt:  now,
		FinishedAt: now,
	}
}

// Total returns the number of recorded results.
func (r *Report) Total() int {
	return len(r.Results)
}

// SucceededCount returns how many targets produced an artifact.
func (r *Report) SucceededCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Succeeded {
			n++
		}
	}
	return n
}

// SucceededTargets returns the targets that produced an artifact, in build order.
func (r *Report) SucceededTargets() []Target {
	var targets []Target
	for _, res := range r.Results {
		if res.Succeeded {
			targets = append(targets, res.Target)
		}
	}
	return targets
}

// Failed returns the failed results, in build order.
func (r *Report) Failed() []BuildResult {
	var failed []BuildResult
	for _, res := range r.Results {
		if !res.Succeeded {
			failed = append(failed, res)
		}
	}
	return failed
}
