package fault

import (
	"fmt"
	"runtime"
)

// Process exit codes.
const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitConfig   = 3
	ExitDatabase = 8
)

// HasStatusCode is implemented by failures that map to an HTTP status.
type HasStatusCode interface {
	StatusCode() int
}

// HasExitCode is implemented by failures that map to a process exit code.
type HasExitCode interface {
	ExitCode() int
}

// Locator is implemented by failures that know where they were raised.
type Locator interface {
	Location() (file string, line int)
}

// Tracer is implemented by failures that carry a raw call stack.
type Tracer interface {
	Trace() []TraceEntry
}

// DiagnosticTracer is implemented by failures that can offer a richer stack
// than the one captured where they were constructed.
type DiagnosticTracer interface {
	DiagnosticTrace() []TraceEntry
}

// Kinder lets a failure name its own kind instead of its Go type.
type Kinder interface {
	Kind() string
}

// TriggeredError is a runtime-triggered error converted into a failure value.
type TriggeredError struct {
	Severity Severity
	Message  string

	file       string
	line       int
	trace      []TraceEntry
	diagnostic []TraceEntry
	shutdown   bool
}

// NewTriggeredError builds a TriggeredError for the given location. The stack
// of the caller is captured; when file is empty the caller's location is used.
func NewTriggeredError(sev Severity, message, file string, line int) *TriggeredError {
	capturedFile, capturedLine, trace := Callers(1)
	if file == "" {
		file, line = capturedFile, capturedLine
	}
	return &TriggeredError{
		Severity: sev,
		Message:  message,
		file:     file,
		line:     line,
		trace:    trace,
	}
}

func (e *TriggeredError) Error() string {
	return e.Message
}

func (e *TriggeredError) Location() (string, int) {
	return e.file, e.line
}

func (e *TriggeredError) Trace() []TraceEntry {
	return e.trace
}

func (e *TriggeredError) DiagnosticTrace() []TraceEntry {
	return e.diagnostic
}

// WithDiagnosticTrace attaches the stack recorded when the error originally
// happened, for errors only observed later (at shutdown).
func (e *TriggeredError) WithDiagnosticTrace(trace []TraceEntry) *TriggeredError {
	e.diagnostic = trace
	return e
}

// AtShutdown marks the error as found while the runtime was shutting down.
func (e *TriggeredError) AtShutdown() *TriggeredError {
	e.shutdown = true
	return e
}

// FromShutdown reports whether the error was found at shutdown.
func (e *TriggeredError) FromShutdown() bool {
	return e.shutdown
}

// Origin names where a failure entered the handlers: "shutdown" for errors
// found at shutdown, "error" for other triggered errors and "exception" for
// everything else.
func Origin(err error) string {
	var te *TriggeredError
	if !As(err, &te) {
		return "exception"
	}
	if te.FromShutdown() {
		return "shutdown"
	}
	return "error"
}

// Panic is a recovered panic value.
type Panic struct {
	Value any

	file  string
	line  int
	trace []TraceEntry
}

// NewPanic wraps a value returned by recover. It must be called from the
// deferred function that recovered, so the panicking stack is still live.
func NewPanic(v any) *Panic {
	file, line, trace := panicCallers(1)
	return &Panic{Value: v, file: file, line: line, trace: trace}
}

func (p *Panic) Error() string {
	if err, ok := p.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(p.Value)
}

func (p *Panic) Kind() string {
	if p.Value == nil {
		return "panic"
	}
	return fmt.Sprintf("panic(%T)", p.Value)
}

func (p *Panic) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

func (p *Panic) Location() (string, int) {
	return p.file, p.line
}

func (p *Panic) Trace() []TraceEntry {
	return p.trace
}

// ParseError reports source that could not be parsed, such as a template or
// a configuration file.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Msg)
}

func (e *ParseError) Location() (string, int) {
	return e.File, e.Line
}

// KindOf names the kind of a failure: its Kind() when it has one, its Go type
// otherwise.
func KindOf(err error) string {
	if k, ok := err.(Kinder); ok {
		return k.Kind()
	}
	return fmt.Sprintf("%T", err)
}

// SeverityOf classifies a failure.
func SeverityOf(err error) Severity {
	var se *TriggeredError
	if As(err, &se) {
		return se.Severity
	}
	var pe *ParseError
	if As(err, &pe) {
		return SeverityParse
	}
	var p *Panic
	if As(err, &p) {
		if _, ok := p.Value.(runtime.Error); ok {
			return SeverityRecoverableError
		}
	}
	return SeverityError
}

type statusError struct {
	err    error
	status int
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) Kind() string    { return KindOf(e.err) }
func (e *statusError) StatusCode() int { return e.status }

// WithStatus attaches an HTTP status to err.
func WithStatus(err error, status int) error {
	if err == nil {
		return nil
	}
	return &statusError{err: err, status: status}
}

type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) Kind() string  { return KindOf(e.err) }
func (e *exitError) ExitCode() int { return e.code }

// WithExitCode attaches a process exit code to err.
func WithExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &exitError{err: err, code: code}
}

// StatusOf returns the HTTP status declared anywhere in err's chain.
func StatusOf(err error) (int, bool) {
	var sc HasStatusCode
	if As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

// ExitCodeOf returns the exit code declared anywhere in err's chain.
func ExitCodeOf(err error) (int, bool) {
	var ec HasExitCode
	if As(err, &ec) {
		return ec.ExitCode(), true
	}
	return 0, false
}
