// Package builder runs the external firmware build tool against a patched
// configuration and classifies the result.
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/dyluth/fleetbuild/pkg/fleet"
)

const (
	// DefaultTimeout bounds a single build when none is configured
	DefaultTimeout = 10 * time.Minute

	// maxOutputSize is the maximum number of bytes kept from build stdout/stderr (10MB)
	maxOutputSize = 10 * 1024 * 1024

	// waitDelay bounds how long we wait for output pipes after the build is killed
	waitDelay = 5 * time.Second
)

// Outcome is the classified result of one build tool invocation.
type Outcome struct {
	ExitCode int // -1 when the process could not be started or was killed
	Stdout   string
	Stderr   string
	TimedOut bool
	StartErr string
	Duration time.Duration
}

// Succeeded reports whether the build tool ran to completion with exit code 0.
func (o *Outcome) Succeeded() bool {
	return !o.TimedOut && o.StartErr == "" && o.ExitCode == 0
}

// Reason describes a failed outcome for reports.
func (o *Outcome) Reason() string {
	switch {
	case o.TimedOut:
		return fmt.Sprintf("build timed out after %s", o.Duration.Round(time.Second))
	case o.StartErr != "":
		return fmt.Sprintf("build tool could not be started: %s", o.StartErr)
	case o.ExitCode != 0:
		return fmt.Sprintf("build tool exited with code %d", o.ExitCode)
	default:
		return ""
	}
}

// Invoker runs the build tool. Command is executed directly, without a shell.
type Invoker struct {
	Command []string
	Dir     string
	Timeout time.Duration

	// Env is the base environment for the build tool. Nil means the
	// environment of the current process.
	Env []string
}

// Invoke writes patched to configPath and then runs the build tool with the
// recursion guard set. A nonzero exit code or a timeout is reported in the
// Outcome, not as an error. An error is returned only when the configuration
// cannot be written, which wraps fleet.ErrSnapshot.
func (i *Invoker) Invoke(ctx context.Context, configPath string, patched []byte) (*Outcome, error) {
	if err := writeConfig(configPath, patched); err != nil {
		return nil, err
	}
	return i.run(ctx), nil
}

func writeConfig(path string, content []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, content, mode); err != nil {
		return fmt.Errorf("%w: failed to write patched config %s: %w", fleet.ErrSnapshot, path, err)
	}
	return nil
}

func (i *Invoker) run(ctx context.Context) *Outcome {
	start := time.Now()
	if len(i.Command) == 0 {
		return &Outcome{ExitCode: -1, StartErr: "command array is empty"}
	}

	timeout := i.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, i.Command[0], i.Command[1:]...)
	cmd.Dir = i.Dir
	cmd.WaitDelay = waitDelay

	base := i.Env
	if base == nil {
		base = os.Environ()
	}
	cmd.Env = Environ(base)

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	cmd.Stdout = &limitedWriter{w: stdoutBuf, limit: maxOutputSize}
	cmd.Stderr = &limitedWriter{w: stderrBuf, limit: maxOutputSize}

	log.Printf("[INFO] Running build tool: command=%v dir=%s timeout=%s", i.Command, i.Dir, timeout)
	err := cmd.Run()

	outcome := &Outcome{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(start),
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		outcome.ExitCode = -1
		outcome.TimedOut = true
		log.Printf("[WARN] Build tool timed out after %s", timeout)
		return outcome
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			outcome.ExitCode = exitErr.ExitCode()
		} else {
			outcome.ExitCode = -1
			outcome.StartErr = err.Error()
		}
	}

	log.Printf("[INFO] Build tool finished: exit_code=%d duration=%s", outcome.ExitCode, outcome.Duration)
	return outcome
}

// limitedWriter wraps a writer and enforces a size limit.
// Once the limit is reached, further writes are discarded.
type limitedWriter struct {
	w       io.Writer
	limit   int
	written int
}

func (lw *limitedWriter) Write(p []byte) (n int, err error) {
	remaining := lw.limit - lw.written
	if remaining <= 0 {
		return len(p), nil
	}

	toWrite := p
	if len(p) > remaining {
		toWrite = p[:remaining]
	}

	n, err = lw.w.Write(toWrite)
	lw.written += n
	return len(p), err
}
