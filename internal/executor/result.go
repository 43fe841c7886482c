package executor

import (
	"time"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
)

// Status summarizes a result for logs and metrics.
type Status string

const (
	StatusOK      Status = "ok"
	StatusNonZero Status = "nonzero"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
	StatusSkipped Status = "skipped"
	StatusDenied  Status = "denied"
)

// Result describes one execution. A non-zero exit code is data; Err is set
// only when the command could not run to completion.
type Result struct {
	Command         Command
	Stdout          string
	Stderr          string
	ExitCode        int
	Err             error
	Duration        time.Duration
	TimedOut        bool
	Skipped         bool
	StdoutTruncated bool
	StderrTruncated bool
}

// Status classifies the result.
func (r Result) Status() Status {
	switch {
	case r.Skipped:
		return StatusSkipped
	case r.Err != nil && apperrors.Is(r.Err, apperrors.KindNotPermitted):
		return StatusDenied
	case r.Err != nil && apperrors.Is(r.Err, apperrors.KindTimeout):
		return StatusTimeout
	case r.Err != nil:
		return StatusError
	case r.ExitCode != 0:
		return StatusNonZero
	default:
		return StatusOK
	}
}

// Success reports a clean zero exit.
func (r Result) Success() bool {
	return r.Status() == StatusOK
}

// Output returns stdout, or stderr when stdout is empty.
func (r Result) Output() string {
	if r.Stdout != "" {
		return r.Stdout
	}
	return r.Stderr
}
