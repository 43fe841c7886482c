// Package executor runs approved commands with a timeout, captures their
// output under a byte cap and reports the outcome as data.
//
// Every child is started in its own process group. When the timeout fires or
// the caller cancels, the whole group is killed, so a shell pipeline cannot
// leave grandchildren behind holding the output pipes.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
	"github.com/aatumaykin/cronkeeper/internal/logger"
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxOutputBytes = 1 << 20
	DefaultShell          = "sh"
	DefaultWaitDelay      = 2 * time.Second
)

// Config configures an Executor.
type Config struct {
	Timeout        time.Duration // per command, when the caller passes none
	MaxOutputBytes int64         // cap per stream
	WorkDir        string        // empty inherits the service's cwd
	Shell          string        // interpreter for shell commands, called as "<shell> -c <line>"
	// WaitDelay bounds how long Wait keeps draining pipes after the child exits
	// or is killed.
	WaitDelay time.Duration
	// KillGrace, when positive, sends SIGTERM to the group first and SIGKILL
	// only after the grace period.
	KillGrace time.Duration
}

// Recorder observes finished executions.
type Recorder interface {
	ObserveExecution(kind string, status string, d time.Duration)
	ObserveTruncation(stream string)
}

// Executor runs commands. It is safe for concurrent use.
type Executor struct {
	cfg      Config
	logger   *logger.Logger
	recorder Recorder
	pool     Submitter
}

// New creates an Executor. recorder may be nil.
func New(cfg Config, log *logger.Logger, recorder Recorder) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if cfg.Shell == "" {
		cfg.Shell = DefaultShell
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = DefaultWaitDelay
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{cfg: cfg, logger: log, recorder: recorder}
}

// Execute runs c and waits for it, at most timeout (zero means the configured
// default). It never returns a Go error: every failure is described by Result.
func (e *Executor) Execute(ctx context.Context, c Command, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}
	res := Result{Command: c, ExitCode: -1}

	name, args, err := e.argv(c)
	if err != nil {
		res.Err = err
		e.finish(ctx, res)
		return res
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = e.cfg.WorkDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return e.killGroup(cmd) }
	cmd.WaitDelay = e.cfg.WaitDelay

	stdout := newCappedBuffer(e.cfg.MaxOutputBytes)
	stderr := newCappedBuffer(e.cfg.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	e.logger.DebugCtx(ctx, "executing command",
		logger.Field{Key: "command", Value: c.Display},
		logger.Field{Key: "kind", Value: c.Kind()},
		logger.Field{Key: "timeout", Value: timeout.String()})

	start := time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(start)

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.StdoutTruncated = stdout.Truncated()
	res.StderrTruncated = stderr.Truncated()
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	e.classify(ctx, runCtx, runErr, timeout, &res)
	e.finish(ctx, res)
	return res
}

func (e *Executor) argv(c Command) (string, []string, error) {
	if len(c.Argv) == 0 || c.Argv[0] == "" {
		return "", nil, apperrors.New(apperrors.KindExecution, "empty command").
			WithDetail("command", c.Display)
	}
	if c.Shell {
		return e.cfg.Shell, []string{"-c", c.Argv[0]}, nil
	}
	return c.Argv[0], c.Argv[1:], nil
}

// killGroup signals the child's whole process group.
func (e *Executor) killGroup(cmd *exec.Cmd) error {
	pgid := -cmd.Process.Pid
	if e.cfg.KillGrace <= 0 {
		return ignoreGone(unix.Kill(pgid, unix.SIGKILL))
	}
	if err := unix.Kill(pgid, unix.SIGTERM); err != nil {
		return ignoreGone(unix.Kill(pgid, unix.SIGKILL))
	}
	grace := e.cfg.KillGrace
	go func() {
		time.Sleep(grace)
		// Группа могла уже завершиться, ESRCH здесь не ошибка.
		_ = unix.Kill(pgid, unix.SIGKILL)
	}()
	return nil
}

// ignoreGone maps "no such process" to os.ErrProcessDone, which exec treats
// as a successful cancel.
func ignoreGone(err error) error {
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

// classify turns the error returned by Run into Result fields.
func (e *Executor) classify(ctx, runCtx context.Context, runErr error, timeout time.Duration, res *Result) {
	// The child exited on its own but something kept the pipes open past
	// WaitDelay. The exit status is still valid.
	if errors.Is(runErr, exec.ErrWaitDelay) {
		runErr = nil
	}

	switch {
	case runErr == nil:
		// ExitCode already set from ProcessState.
	case ctx.Err() != nil:
		res.Err = apperrors.Wrap(ctx.Err(), apperrors.KindTimeout, "command cancelled").
			WithDetail("command", res.Command.Display)
	case runCtx.Err() != nil:
		res.TimedOut = true
		res.Err = apperrors.Newf(apperrors.KindTimeout, "command timed out after %s", timeout).
			WithDetail("command", res.Command.Display).
			WithSuggestion("increase executor.timeout_seconds or make the command faster")
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return
		}
		res.Err = spawnError(runErr, res.Command)
	}
}

func spawnError(err error, c Command) *apperrors.Error {
	appErr := apperrors.Wrap(err, apperrors.KindExecution, fmt.Sprintf("failed to start %q", c.Display)).
		WithDetail("command", c.Display)
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		appErr.WithSuggestion("check that the program is installed and on PATH")
	case errors.Is(err, os.ErrPermission):
		appErr.WithSuggestion("check that the program is executable by the service user")
	}
	return appErr
}

// finish logs the result and reports it to the recorder.
func (e *Executor) finish(ctx context.Context, res Result) {
	status := res.Status()
	fields := []logger.Field{
		{Key: "command", Value: res.Command.Display},
		{Key: "status", Value: string(status)},
		{Key: "exit_code", Value: res.ExitCode},
		{Key: "duration_ms", Value: res.Duration.Milliseconds()},
	}
	if res.StdoutTruncated || res.StderrTruncated {
		fields = append(fields,
			logger.Field{Key: "stdout_truncated", Value: res.StdoutTruncated},
			logger.Field{Key: "stderr_truncated", Value: res.StderrTruncated})
	}

	switch {
	case status == StatusError || status == StatusTimeout:
		e.logger.ErrorCtx(ctx, "command failed", res.Err, fields...)
	case res.Success():
		e.logger.InfoCtx(ctx, "command finished", fields...)
	default:
		e.logger.WarnCtx(ctx, "command did not succeed", fields...)
	}

	if e.recorder == nil {
		return
	}
	e.recorder.ObserveExecution(res.Command.Kind(), string(status), res.Duration)
	if res.StdoutTruncated {
		e.recorder.ObserveTruncation("stdout")
	}
	if res.StderrTruncated {
		e.recorder.ObserveTruncation("stderr")
	}
}
