// Package orchestrator drives a firmware build run across an ordered list of
// targets that all share one mutable configuration file.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dyluth/fleetbuild/internal/artifact"
	"github.com/dyluth/fleetbuild/internal/builder"
	"github.com/dyluth/fleetbuild/internal/directive"
	"github.com/dyluth/fleetbuild/internal/notify"
	"github.com/dyluth/fleetbuild/internal/snapshot"
	"github.com/dyluth/fleetbuild/internal/version"
	"github.com/dyluth/fleetbuild/pkg/fleet"
)

// ErrRunInProgress is returned when Run is called while another run, on this
// or any other Engine in the process, holds the snapshot.
var ErrRunInProgress = errors.New("a build run is already in progress")

// Builder writes a patched configuration and runs the build tool against it.
type Builder interface {
	Invoke(ctx context.Context, configPath string, patched []byte) (*builder.Outcome, error)
}

// Collector copies a built artifact to its canonical per-target location.
type Collector interface {
	Collect(source string, t fleet.Target) (*artifact.Artifact, error)
}

// Options configures an Engine.
type Options struct {
	ConfigPath   string // Shared configuration file the build tool reads
	ArtifactPath string // Where the build tool leaves its output
	Project      string // Namespace for release events

	Exec      builder.ExecContext
	Builder   Builder
	Collector Collector
	Notifier  notify.Notifier

	// OnResult, if set, is called after each target is recorded.
	OnResult func(fleet.BuildResult)
}

// Engine runs the build state machine. Runs are strictly sequential; an
// Engine refuses to start a second run while one is in progress.
type Engine struct {
	opts      Options
	snapshots *snapshot.Manager

	runMu sync.Mutex

	mu          sync.Mutex
	state       State
	transitions []State
}

// NewEngine creates an orchestrator engine. A nil Notifier is replaced by notify.Nop.
func NewEngine(opts Options) *Engine {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	return &Engine{
		opts:      opts,
		snapshots: snapshot.NewManager(),
		state:     StateIdle,
	}
}

// State returns the current state of the engine.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Transitions returns every state entered during the last run, in order.
func (e *Engine) Transitions() []State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]State(nil), e.transitions...)
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.transitions = append(e.transitions, s)
	e.mu.Unlock()
	log.Printf("[DEBUG] Orchestrator state: %s", s)
}

// RunHook is the entry point used by the build tool's post-build hook. When
// the recursion guard is set it returns a skipped report immediately, without
// touching the filesystem. Otherwise it behaves like Run.
func (e *Engine) RunHook(ctx context.Context, targets []fleet.Target) (*fleet.Report, error) {
	if e.opts.Exec.Nested {
		log.Printf("[INFO] Build hook invoked from a fleetbuild build, skipping")
		return fleet.SkippedReport(), nil
	}
	log.Printf("[INFO] Build hook invoked directly, running full target sequence")
	return e.Run(ctx, targets)
}

// Run builds every target in order and returns the aggregate report.
//
// The configuration file is captured once before the first target and
// restored on every exit path, including fatal errors and panics. Each
// target is patched from the captured pristine content. A failing target
// is recorded and the run moves on to the next one.
//
// The returned error is non-nil only for run-fatal conditions: invalid
// targets, a configuration that cannot be read or written (wrapping
// fleet.ErrSnapshot), or a failed restore. The report is returned alongside
// such an error whenever any target was attempted.
func (e *Engine) Run(ctx context.Context, targets []fleet.Target) (*fleet.Report, error) {
	if e.opts.Exec.Nested {
		log.Printf("[INFO] Nested fleetbuild invocation detected, skipping")
		return fleet.SkippedReport(), nil
	}

	if err := fleet.ValidateTargets(targets); err != nil {
		return nil, fmt.Errorf("invalid targets: %w", err)
	}

	if !e.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer e.runMu.Unlock()

	e.mu.Lock()
	e.state = StateIdle
	e.transitions = []State{StateIdle}
	e.mu.Unlock()

	report, err := e.run(ctx, targets)
	if err != nil {
		return report, err
	}
	e.setState(StateDone)

	log.Printf("[INFO] Run %s complete: %d/%d targets built (version %s)",
		report.RunID, report.SucceededCount(), report.Total(), report.Version)

	if report.SucceededCount() > 0 {
		ev := notify.NewEvent(e.opts.Project, report)
		if err := e.opts.Notifier.ArtifactsReady(ctx, ev); err != nil {
			log.Printf("[WARN] Failed to signal release consumers: %v", err)
		}
	}

	return report, nil
}

func (e *Engine) run(ctx context.Context, targets []fleet.Target) (report *fleet.Report, err error) {
	snap, release, err := e.snapshots.Guard(e.opts.ConfigPath)
	if err != nil {
		if errors.Is(err, snapshot.ErrOutstanding) {
			return nil, ErrRunInProgress
		}
		return nil, err
	}
	e.setState(StateSnapshotCaptured)

	defer func() {
		e.setState(StateRestoring)
		if rerr := release(); rerr != nil {
			err = errors.Join(err, rerr)
		} else {
			log.Printf("[INFO] Restored %s", e.opts.ConfigPath)
		}
	}()

	ver, fallback := version.ResolveWithWarning(snap.Content)
	if fallback {
		log.Printf("[WARN] %s: no valid FIRMWARE_VERSION in %s, using %s",
			fleet.ErrorKindVersionParseWarning, e.opts.ConfigPath, ver)
	}

	report = fleet.NewReport(ver)
	defer func() { report.FinishedAt = time.Now() }()

	for i, t := range targets {
		if ctx.Err() != nil {
			log.Printf("[WARN] Run cancelled, %d targets not built", len(targets)-i)
			for _, skipped := range targets[i:] {
				e.record(report, fleet.NewFailure(skipped, fleet.ErrorKindCancelled, "run cancelled before build", 0))
			}
			break
		}

		log.Printf("[INFO] Building target %d/%d: id=%s node_id=%s", i+1, len(targets), t.ID, t.NodeID)
		res, err := e.buildTarget(ctx, snap.Content, t, ver)
		if err != nil {
			return report, err
		}
		e.record(report, res)
	}

	return report, nil
}

func (e *Engine) record(report *fleet.Report, res fleet.BuildResult) {
	report.Results = append(report.Results, res)
	if e.opts.OnResult != nil {
		e.opts.OnResult(res)
	}
}

// buildTarget patches, builds and collects one target. Only configuration
// write failures are returned as errors; everything else becomes a result.
func (e *Engine) buildTarget(ctx context.Context, pristine []byte, t fleet.Target, ver string) (fleet.BuildResult, error) {
	start := time.Now()

	patched := directive.Patch(pristine, t, ver)
	e.setState(StatePatched)

	e.clearStaleArtifact()
	e.setState(StateBuilding)
	outcome, err := e.opts.Builder.Invoke(ctx, e.opts.ConfigPath, patched)
	if err != nil {
		return fleet.BuildResult{}, err
	}

	if !outcome.Succeeded() {
		msg := outcome.Reason()
		if tail := lastLine(outcome.Stderr); tail != "" {
			msg += ": " + truncate(tail, 200)
		}
		log.Printf("[ERROR] Build failed for target %s: %s", t.ID, msg)
		e.setState(StateRecorded)
		return fleet.NewFailure(t, fleet.ErrorKindBuildFailure, msg, time.Since(start)), nil
	}

	e.setState(StateCollecting)
	art, err := e.opts.Collector.Collect(e.opts.ArtifactPath, t)
	if err != nil {
		kind := fleet.ErrorKindCollectFailure
		if errors.Is(err, fleet.ErrArtifactMissing) {
			kind = fleet.ErrorKindArtifactMissing
		}
		log.Printf("[ERROR] %s for target %s: %v", kind, t.ID, err)
		e.setState(StateRecorded)
		return fleet.NewFailure(t, kind, err.Error(), time.Since(start)), nil
	}

	log.Printf("[INFO] Built target %s: %s (%d bytes)", t.ID, art.Path, art.Size)
	e.setState(StateRecorded)
	return fleet.NewSuccess(t, art.Path, art.Size, time.Since(start)), nil
}

// clearStaleArtifact removes the previous target's output so it can never be
// collected under the next target's name.
func (e *Engine) clearStaleArtifact() {
	if e.opts.ArtifactPath == "" {
		return
	}
	if err := os.Remove(e.opts.ArtifactPath); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] Failed to remove stale artifact %s: %v", e.opts.ArtifactPath, err)
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// truncate limits s to at most maxLen bytes, cutting on a rune boundary and
// appending "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
