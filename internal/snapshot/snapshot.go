// Package snapshot captures the pristine shared configuration before a run
// mutates it and writes it back afterwards.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dyluth/fleetbuild/pkg/fleet"
)

// ErrOutstanding is returned by Guard while another guarded snapshot, held by
// any Manager in this process, has not been released.
var ErrOutstanding = errors.New("another snapshot is outstanding")

// outstanding is held from a successful Guard until its release. Only one
// guarded snapshot may exist per process.
var outstanding sync.Mutex

// Snapshot is the captured content of the shared configuration file.
type Snapshot struct {
	Content    []byte
	CapturedAt time.Time
	mode       fs.FileMode
}

// Manager holds at most one snapshot. Capturing replaces the held snapshot,
// restoring consumes it.
type Manager struct {
	mu      sync.Mutex
	current *Snapshot
}

// NewManager creates a Manager with no snapshot held.
func NewManager() *Manager {
	return &Manager{}
}

// Capture reads path and stores its content, replacing any snapshot already
// held. A stale snapshot from an earlier run is never reused.
func (m *Manager) Capture(path string) (*Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat config %s: %w", fleet.ErrSnapshot, path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config %s: %w", fleet.ErrSnapshot, path, err)
	}

	snap := &Snapshot{
		Content:    content,
		CapturedAt: time.Now(),
		mode:       info.Mode().Perm(),
	}

	m.mu.Lock()
	if m.current != nil {
		log.Printf("[DEBUG] Replacing snapshot captured at %s", m.current.CapturedAt.Format(time.RFC3339))
	}
	m.current = snap
	m.mu.Unlock()

	return snap, nil
}

// Current returns the held snapshot, or nil.
func (m *Manager) Current() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Restore writes the held snapshot back to path and discards it. The snapshot
// is discarded even when the write fails so it cannot leak into a later run.
func (m *Manager) Restore(path string) error {
	m.mu.Lock()
	snap := m.current
	m.current = nil
	m.mu.Unlock()

	if snap == nil {
		return fmt.Errorf("%w: no snapshot held for %s", fleet.ErrSnapshot, path)
	}

	if err := os.WriteFile(path, snap.Content, snap.mode); err != nil {
		return fmt.Errorf("%w: failed to restore config %s: %w", fleet.ErrSnapshot, path, err)
	}
	return nil
}

// Guard captures path and returns a release func that restores it. Only one
// guarded snapshot may be outstanding process-wide; a second Guard fails with
// ErrOutstanding until the first is released. Callers defer the release
// immediately so restoration runs on every exit path:
//
//	snap, release, err := mgr.Guard(path)
//	if err != nil {
//		return err
//	}
//	defer release()
func (m *Manager) Guard(path string) (*Snapshot, func() error, error) {
	if !outstanding.TryLock() {
		return nil, nil, fmt.Errorf("%w: cannot capture %s", ErrOutstanding, path)
	}

	snap, err := m.Capture(path)
	if err != nil {
		outstanding.Unlock()
		return nil, nil, err
	}

	var once sync.Once
	var releaseErr error
	release := func() error {
		once.Do(func() {
			defer outstanding.Unlock()
			releaseErr = m.Restore(path)
			if releaseErr != nil {
				log.Printf("[WARN] Failed to restore %s: %v", path, releaseErr)
			}
		})
		return releaseErr
	}
	return snap, release, nil
}
