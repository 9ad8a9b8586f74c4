// Package runner executes shell commands with a bounded timeout.
// A Runner never returns an error: every outcome is folded into a Result.
package runner

//go:generate moq -stub -out runner_mock.go . Runner:RunnerMock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/newhook/ralph-doctor/internal/logging"
)

// DefaultTimeout bounds every command execution.
const DefaultTimeout = 5 * time.Second

// waitDelay is how long Run waits for stray children holding the output
// pipes after the shell has been killed.
const waitDelay = 500 * time.Millisecond

// Kind discriminates the outcome of a command.
type Kind int

const (
	// OK means the command exited zero.
	OK Kind = iota
	// TimedOut means the command exceeded the timeout and was killed.
	TimedOut
	// Failed means the command could not run or exited non-zero.
	Failed
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case TimedOut:
		return "timed out"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of a single command.
type Result struct {
	Kind   Kind
	Output string // trimmed stdout, set only when Kind is OK
	Reason string // short failure description, set only when Kind is Failed
}

// Ok returns a successful Result carrying output.
func Ok(output string) Result {
	return Result{Kind: OK, Output: output}
}

// Timeout returns a TimedOut Result.
func Timeout() Result {
	return Result{Kind: TimedOut}
}

// Failure returns a Failed Result carrying reason.
func Failure(reason string) Result {
	return Result{Kind: Failed, Reason: reason}
}

// IsOK reports whether the command succeeded.
func (r Result) IsOK() bool {
	return r.Kind == OK
}

// Display renders the result as report text. Failures use the bracketed
// placeholder forms "[timeout]" and "[error: reason]".
func (r Result) Display() string {
	switch r.Kind {
	case OK:
		return r.Output
	case TimedOut:
		return "[timeout]"
	default:
		return fmt.Sprintf("[error: %s]", r.Reason)
	}
}

// Runner runs a shell command string in an optional working directory.
type Runner interface {
	Run(ctx context.Context, command, dir string) Result
}

// ShellRunner runs commands through sh -c.
type ShellRunner struct {
	Timeout time.Duration
	Shell   string
}

// Compile-time check that ShellRunner implements Runner.
var _ Runner = (*ShellRunner)(nil)

// New creates a ShellRunner with the given timeout.
// A non-positive timeout falls back to DefaultTimeout.
func New(timeout time.Duration) *ShellRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ShellRunner{Timeout: timeout, Shell: "sh"}
}

// Run implements Runner.Run.
func (s *ShellRunner) Run(ctx context.Context, command, dir string) Result {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	shell := s.Shell
	if shell == "" {
		shell = "sh"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logging.DebugContext(ctx, "command timed out", "command", command, "dir", dir, "elapsed", elapsed)
		return Timeout()
	}
	if err != nil {
		reason := failureReason(err, stderr.String())
		logging.DebugContext(ctx, "command failed", "command", command, "dir", dir, "reason", reason)
		return Failure(reason)
	}

	logging.DebugContext(ctx, "command finished", "command", command, "dir", dir, "elapsed", elapsed)
	return Ok(strings.TrimSpace(ansi.Strip(stdout.String())))
}

// failureReason condenses an exec error and its stderr into one short line.
func failureReason(err error, stderr string) string {
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if line := firstLine(ansi.Strip(stderr)); line != "" {
			return line
		}
		return fmt.Sprintf("exit status %d", exitErr.ExitCode())
	}
	return err.Error()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const maxReason = 200
	if len(s) > maxReason {
		s = s[:maxReason]
	}
	return strings.TrimSpace(s)
}
