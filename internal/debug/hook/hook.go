// Package hook holds the process-level hook points failures enter through:
// the exception and error handler stacks, shutdown functions, the
// error-reporting mask and the last unhandled error.
package hook

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vietddude/crashguard/internal/debug/fault"
)

// FatalExitCode is the exit code after an unhandled fatal error.
const FatalExitCode = 255

// ExceptionHandler receives failures nobody else handled.
type ExceptionHandler func(err error)

// ErrorHandler receives triggered errors. Returning false lets the runtime
// treat the error as unhandled.
type ErrorHandler func(sev fault.Severity, message, file string, line int) bool

// LastError is the most recent error that was not handled.
type LastError struct {
	Severity fault.Severity
	Message  string
	File     string
	Line     int
	Trace    []fault.TraceEntry
}

// Runtime is what the Debug manager installs itself into.
type Runtime interface {
	SetExceptionHandler(h ExceptionHandler)
	RestoreExceptionHandler()
	SetErrorHandler(h ErrorHandler)
	RestoreErrorHandler()
	RegisterShutdownFunction(fn func())
	ErrorReporting() fault.Severity
	LastError() *LastError
	IsCLI() bool
	Exit(code int)
}

// hooks is the state shared by every Runtime implementation.
type hooks struct {
	mu        sync.Mutex
	exception []ExceptionHandler
	errors    []ErrorHandler
	shutdown  []func()
	mask      fault.Severity
	last      *LastError

	shutdownStarted atomic.Bool
}

func (h *hooks) SetExceptionHandler(fn ExceptionHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exception = append(h.exception, fn)
}

// RestoreExceptionHandler reinstates the handler that was active before the
// last SetExceptionHandler.
func (h *hooks) RestoreExceptionHandler() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.exception); n > 0 {
		h.exception = h.exception[:n-1]
	}
}

func (h *hooks) SetErrorHandler(fn ErrorHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, fn)
}

func (h *hooks) RestoreErrorHandler() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.errors); n > 0 {
		h.errors = h.errors[:n-1]
	}
}

func (h *hooks) RegisterShutdownFunction(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shutdown = append(h.shutdown, fn)
}

// ErrorReporting returns the mask of severities that reach error handlers.
func (h *hooks) ErrorReporting() fault.Severity {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mask
}

// SetErrorReporting replaces the mask and returns the old one.
func (h *hooks) SetErrorReporting(mask fault.Severity) fault.Severity {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.mask
	h.mask = mask
	return old
}

func (h *hooks) LastError() *LastError {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return nil
	}
	cp := *h.last
	return &cp
}

func (h *hooks) exceptionHandler() ExceptionHandler {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.exception); n > 0 {
		return h.exception[n-1]
	}
	return nil
}

func (h *hooks) errorHandler() ErrorHandler {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.errors); n > 0 {
		return h.errors[n-1]
	}
	return nil
}

func (h *hooks) record(last *LastError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = last
}

// handlePanic turns a recovered value into a failure and passes it to the
// active exception handler. Without one the panic continues.
func (h *hooks) handlePanic(r any) {
	handler := h.exceptionHandler()
	if handler == nil {
		panic(r)
	}

	// Failures raised by an error handler already carry their stack.
	if se, ok := r.(*fault.TriggeredError); ok {
		handler(se)
		return
	}
	handler(fault.NewPanic(r))
}

// trigger routes a triggered error. Fatal severities never reach error
// handlers: they are recorded and end the runtime through exit.
func (h *hooks) trigger(sev fault.Severity, message string, exit func(int)) bool {
	file, line, trace := fault.Callers(2)
	last := &LastError{Severity: sev, Message: message, File: file, Line: line, Trace: trace}

	if sev.IsFatal() {
		h.record(last)
		exit(FatalExitCode)
		return false
	}

	if handler := h.errorHandler(); handler != nil && handler(sev, message, file, line) {
		return true
	}
	h.record(last)
	return false
}

// runShutdown calls the shutdown functions once, in registration order. A
// shutdown function may itself exit; the remaining ones are then skipped by
// the runtime going away.
func (h *hooks) runShutdown() {
	if !h.shutdownStarted.CompareAndSwap(false, true) {
		return
	}

	h.mu.Lock()
	fns := make([]func(), len(h.shutdown))
	copy(fns, h.shutdown)
	h.mu.Unlock()

	for _, fn := range fns {
		callShutdown(fn)
	}
}

func callShutdown(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Shutdown function panicked", "panic", r)
		}
	}()
	fn()
}
