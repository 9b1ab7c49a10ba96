// Package notify fires the release trigger consumed by version-descriptor
// emitters once a run has produced at least one artifact.
package notify

import (
	"context"
	"time"

	"github.com/dyluth/fleetbuild/pkg/fleet"
)

// Event announces newly built artifacts. Only targets that built
// successfully are listed.
type Event struct {
	RunID     string            `json:"run_id"`
	Project   string            `json:"project"`
	Version   string            `json:"version"`
	Targets   []fleet.Target    `json:"targets"`
	Artifacts map[string]string `json:"artifacts"` // target id -> artifact path
	At        time.Time         `json:"at"`
}

// NewEvent builds the release event for a finished report.
func NewEvent(project string, report *fleet.Report) *Event {
	ev := &Event{
		RunID:     report.RunID,
		Project:   project,
		Version:   report.Version,
		Targets:   []fleet.Target{},
		Artifacts: make(map[string]string),
		At:        time.Now().UTC(),
	}
	for _, res := range report.Results {
		if !res.Succeeded {
			continue
		}
		ev.Targets = append(ev.Targets, res.Target)
		ev.Artifacts[res.Target.ID] = res.ArtifactPath
	}
	return ev
}

// Notifier receives release events.
type Notifier interface {
	ArtifactsReady(ctx context.Context, ev *Event) error
}

// Nop discards events. Used when no release endpoint is configured.
type Nop struct{}

// ArtifactsReady implements Notifier.
func (Nop) ArtifactsReady(context.Context, *Event) error { return nil }

// Func adapts a function to Notifier.
type Func func(ctx context.Context, ev *Event) error

// ArtifactsReady implements Notifier.
func (f Func) ArtifactsReady(ctx context.Context, ev *Event) error { return f(ctx, ev) }
