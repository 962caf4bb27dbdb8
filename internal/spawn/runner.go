// Package spawn runs shell commands with a hard deadline. When the
// deadline passes the child is killed and the call reports a timed out
// result instead of an error.
package spawn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Defaults for a Runner.
const (
	DefaultShell   = "/bin/sh"
	DefaultTimeout = 2 * time.Second
)

// Status tags the outcome of a Run call.
type Status string

// Run outcomes.
const (
	// StatusCompleted means the child exited on its own (or was killed by
	// someone else) before the deadline.
	StatusCompleted Status = "completed"

	// StatusTimedOut means the deadline passed and the child was killed.
	StatusTimedOut Status = "timed_out"
)

// Result is what a Run call observed. ExitCode is only meaningful for
// StatusCompleted; for StatusTimedOut, Stdout and Stderr hold whatever was
// captured before the kill.
type Result struct {
	Status   Status
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Completed reports whether the child finished before the deadline.
func (r Result) Completed() bool {
	return r.Status == StatusCompleted
}

// Runner executes commands through a shell.
type Runner struct {
	shell  string
	logger *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithShell sets the shell binary used as "<shell> -c <command>".
func WithShell(shell string) Option {
	return func(r *Runner) {
		r.shell = shell
	}
}

// NewRunner creates a Runner.
func NewRunner(logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		shell:  DefaultShell,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes command through the shell and waits at most timeout for it
// to finish. On expiry the child is killed and a StatusTimedOut result is
// returned with a nil error. A non-nil error means the command could not be
// run at all, or ctx was cancelled before the deadline.
func (r *Runner) Run(ctx context.Context, command string, timeout time.Duration) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.shell, "-c", command) //nolint:gosec // runs operator input on purpose
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// The child leads its own process group so the kill at the deadline
	// also reaches grandchildren holding the output pipes.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killGroup(cmd.Process.Pid)
	}
	// Output is read until EOF or the deadline, even after the shell itself
	// has exited and left background jobs behind.
	cmd.WaitDelay = timeout

	start := time.Now()
	if err := cmd.Start(); err != nil {
		observeSpawn(outcomeError, time.Since(start))
		return Result{}, fmt.Errorf("start %s: %w", r.shell, err)
	}

	r.logger.Debug("command started",
		zap.String("command", command),
		zap.Int("pid", cmd.Process.Pid),
		zap.Duration("timeout", timeout),
	)

	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	pipesExpired := errors.Is(waitErr, exec.ErrWaitDelay) && ctx.Err() == nil
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) || pipesExpired {
		_ = killGroup(cmd.Process.Pid)
		observeSpawn(outcomeTimedOut, elapsed)
		r.logger.Warn("command killed after timeout",
			zap.String("command", command),
			zap.Duration("timeout", timeout),
			zap.String("partial_stdout", decode(stdout.Bytes())),
			zap.String("partial_stderr", decode(stderr.Bytes())),
		)
		return Result{
			Status:   StatusTimedOut,
			ExitCode: -int(syscall.SIGKILL),
			Stdout:   decode(stdout.Bytes()),
			Stderr:   decode(stderr.Bytes()),
			Duration: elapsed,
		}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		observeSpawn(outcomeError, elapsed)
		return Result{}, fmt.Errorf("run command: %w", ctxErr)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
		observeSpawn(outcomeError, elapsed)
		return Result{}, fmt.Errorf("wait for command: %w", waitErr)
	}

	res := Result{
		Status:   StatusCompleted,
		ExitCode: exitCode(cmd.ProcessState),
		Stdout:   decode(stdout.Bytes()),
		Stderr:   decode(stderr.Bytes()),
		Duration: elapsed,
	}
	observeSpawn(outcomeCompleted, elapsed)

	r.logger.Debug("command finished",
		zap.String("command", command),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", elapsed),
	)

	return res, nil
}

// killGroup sends SIGKILL to every process in the group led by pid.
func killGroup(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

// exitCode returns the exit status, or the negated signal number when the
// process was terminated by a signal.
func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return state.ExitCode()
}

// decode turns captured output into a string, dropping invalid UTF-8.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "")
}
