// Package watch streams and waits for release events published by fleetbuild runs.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dyluth/fleetbuild/internal/notify"
)

// OutputFormat selects how release events are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// ParseOutputFormat validates a user-supplied format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

type formatter interface {
	FormatRelease(ev *notify.Event) error
}

func newFormatter(format OutputFormat, w io.Writer) formatter {
	if format == OutputFormatJSON {
		return &jsonFormatter{enc: json.NewEncoder(w)}
	}
	return &defaultFormatter{writer: w}
}

// defaultFormatter writes one human-readable block per release.
type defaultFormatter struct {
	writer io.Writer
}

func (f *defaultFormatter) FormatRelease(ev *notify.Event) error {
	ids := make([]string, 0, len(ev.Targets))
	for _, t := range ev.Targets {
		ids = append(ids, t.ID)
	}
	_, err := fmt.Fprintf(f.writer, "[%s] 📦 Release %s: version=%s, targets=%s, run=%s\n",
		ev.At.Local().Format("15:04:05"), ev.Project, ev.Version, strings.Join(ids, ","), ev.RunID)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(ev.Artifacts))
	for id := range ev.Artifacts {
		paths = append(paths, id)
	}
	sort.Strings(paths)
	for _, id := range paths {
		if _, err := fmt.Fprintf(f.writer, "    %s → %s\n", id, ev.Artifacts[id]); err != nil {
			return err
		}
	}
	return nil
}

// jsonFormatter writes line-delimited JSON.
type jsonFormatter struct {
	enc *json.Encoder
}

func (f *jsonFormatter) FormatRelease(ev *notify.Event) error {
	return f.enc.Encode(ev)
}

// StreamReleases writes every event from sub until ctx is cancelled or the
// subscription ends. Malformed payloads are reported inline and skipped.
func StreamReleases(ctx context.Context, sub *notify.Subscription, format OutputFormat, w io.Writer) error {
	f := newFormatter(format, w)

	events := sub.Events()
	errs := sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := f.FormatRelease(ev); err != nil {
				return fmt.Errorf("failed to write release event: %w", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(w, "⚠️  %v\n", err)
		}
	}
}

// ReleaseSource is the read side of the release history.
type ReleaseSource interface {
	Latest(ctx context.Context) (*notify.Event, error)
}

// PollForRelease polls src until it reports a release whose run id differs
// from afterRunID. Polls every 200ms for the specified timeout duration.
func PollForRelease(ctx context.Context, src ReleaseSource, afterRunID string, timeout time.Duration) (*notify.Event, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for release after %v", timeout)

		case <-ticker.C:
			ev, err := src.Latest(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to query latest release: %w", err)
			}
			if ev == nil || ev.RunID == afterRunID {
				continue
			}
			return ev, nil
		}
	}
}

// WriteRelease writes a single event in the given format.
func WriteRelease(w io.Writer, format OutputFormat, ev *notify.Event) error {
	return newFormatter(format, w).FormatRelease(ev)
}
