package inspection

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/vietddude/crashguard/internal/debug/fault"
)

const (
	defaultStatusCode = http.StatusInternalServerError
	defaultExitCode   = fault.ExitError
)

// ValidationError reports a failure whose declared status or exit code is
// out of range. It is a classification bug, not something to handle.
type ValidationError struct {
	Field string
	Value int
	msg   string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// Inspector is a normalized, queryable view of one failure.
type Inspector struct {
	err  error
	file string
	line int

	chain *causeGuard

	framesOnce sync.Once
	frames     *Frames

	previousOnce sync.Once
	previous     *Inspector
}

// New inspects err.
func New(err error) *Inspector {
	guard := newCauseGuard()
	guard.mark(err)
	return newInspector(err, guard)
}

func newInspector(err error, chain *causeGuard) *Inspector {
	file, line := fault.ExtractFileLineFromEvalCode(location(err))
	return &Inspector{err: err, file: file, line: line, chain: chain}
}

// Failure returns the inspected error.
func (i *Inspector) Failure() error {
	return i.err
}

// Name returns the kind of the failure.
func (i *Inspector) Name() string {
	return fault.KindOf(i.err)
}

func (i *Inspector) Message() string {
	return i.err.Error()
}

// File returns the real source file the failure was raised in.
func (i *Inspector) File() string {
	return i.file
}

func (i *Inspector) Line() int {
	return i.line
}

// Severity classifies the failure.
func (i *Inspector) Severity() fault.Severity {
	return fault.SeverityOf(i.err)
}

// StatusCode returns the HTTP status of the failure: the one it declares, or
// 500. Anything outside the 4xx and 5xx families is a *ValidationError.
func (i *Inspector) StatusCode() (int, error) {
	status := defaultStatusCode
	if declared, ok := fault.StatusOf(i.err); ok {
		status = declared
	}

	if status < 400 || status >= 600 {
		return 0, &ValidationError{
			Field: "status_code",
			Value: status,
			msg: fmt.Sprintf(
				"HTTP status code for a failure must be in the 4xx and 5xx family, got %q instead",
				fmt.Sprint(status),
			),
		}
	}
	return status, nil
}

// MustStatusCode is StatusCode that panics on an invalid status.
func (i *Inspector) MustStatusCode() int {
	status, err := i.StatusCode()
	if err != nil {
		panic(err)
	}
	return status
}

// ExitCode returns the process exit code of the failure: the one it declares,
// or fault.ExitError. Codes outside 1..255 are a *ValidationError.
func (i *Inspector) ExitCode() (int, error) {
	code := defaultExitCode
	if declared, ok := fault.ExitCodeOf(i.err); ok {
		code = declared
	}

	if code <= 0 || code > 255 {
		if code == 0 {
			return 0, &ValidationError{
				Field: "exit_code",
				Value: code,
				msg:   `exit code for a failure cannot be "0" as it signifies the operation was successful`,
			}
		}
		return 0, &ValidationError{
			Field: "exit_code",
			Value: code,
			msg:   fmt.Sprintf("exit code for a failure must be between 1 and 255, got %q instead", fmt.Sprint(code)),
		}
	}
	return code, nil
}

// MustExitCode is ExitCode that panics on an invalid code.
func (i *Inspector) MustExitCode() int {
	code, err := i.ExitCode()
	if err != nil {
		panic(err)
	}
	return code
}

// Frames returns the normalized stack of the failure.
func (i *Inspector) Frames() *Frames {
	i.framesOnce.Do(func() {
		i.frames = CreateFrom(i.err)
	})
	return i.frames
}

// Previous returns an Inspector for the failure's cause, or nil when there is
// none, the chain loops back, or it is deeper than MaxCauseDepth.
func (i *Inspector) Previous() *Inspector {
	i.previousOnce.Do(func() {
		prev := Cause(i.err)
		if prev == nil || !i.chain.enter(prev) {
			return
		}
		i.previous = newInspector(prev, i.chain)
	})
	return i.previous
}
