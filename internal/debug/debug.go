// Package debug routes failures through an ordered chain of handlers. A
// Debug installs itself into a hook.Runtime and receives recovered panics,
// triggered errors and fatal errors seen at shutdown.
package debug

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/vietddude/crashguard/internal/debug/fault"
	"github.com/vietddude/crashguard/internal/debug/handlers"
	"github.com/vietddude/crashguard/internal/debug/hook"
	"github.com/vietddude/crashguard/internal/debug/inspection"
	"github.com/vietddude/crashguard/internal/debug/output"
	"github.com/vietddude/crashguard/internal/metrics"
)

// State is the registration state of a Debug.
type State int

const (
	StateUnregistered State = iota
	StateRegistered
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	default:
		return "unknown"
	}
}

// Debug owns a handler stack and drives failures through it. A Debug is not
// safe for concurrent use; give each request its own.
type Debug struct {
	runtime  hook.Runtime
	request  handlers.Request
	response handlers.Response
	out      *output.Buffer
	registry *handlers.Registry
	reserve  *Reserve

	stack []handlers.Handler
	state State

	shutdownInstalled bool
	fromShutdown      bool
}

// Option configures a Debug.
type Option func(*Debug)

// WithRequest sets the request handlers see.
func WithRequest(req handlers.Request) Option {
	return func(d *Debug) { d.request = req }
}

// WithResponse sets the response failures are reported on.
func WithResponse(resp handlers.Response) Option {
	return func(d *Debug) { d.response = resp }
}

// WithOutput sets the buffer handler output is captured in.
func WithOutput(out *output.Buffer) Option {
	return func(d *Debug) { d.out = out }
}

// WithRegistry sets where handler names are resolved.
func WithRegistry(r *handlers.Registry) Option {
	return func(d *Debug) { d.registry = r }
}

// WithReserve gives the Debug its own memory reserve instead of the
// process-wide one.
func WithReserve(r *Reserve) Option {
	return func(d *Debug) { d.reserve = r }
}

// New creates an unregistered Debug with an empty handler stack.
func New(rt hook.Runtime, opts ...Option) *Debug {
	d := &Debug{runtime: rt}
	for _, opt := range opts {
		opt(d)
	}
	if d.out == nil {
		d.out = output.New(os.Stdout)
	}
	if d.registry == nil {
		d.registry = handlers.NewRegistry()
	}
	if d.reserve == nil {
		d.reserve = processReserve
	}
	return d
}

// State returns the registration state.
func (d *Debug) State() State {
	return d.state
}

// DefaultHandlers names the handlers a Debug normally runs. Handlers that
// continue come before handlers that may end the chain.
func (d *Debug) DefaultHandlers() []string {
	return []string{"log", "api"}
}

// Append adds a handler at the end of the stack. h is a handlers.Handler, a
// handlers.Factory, or a name registered in the Debug's registry.
func (d *Debug) Append(h any) error {
	resolved, err := d.resolve(h)
	if err != nil {
		return err
	}
	d.stack = append(d.stack, resolved)
	return nil
}

// Prepend adds a handler at the start of the stack.
func (d *Debug) Prepend(h any) error {
	resolved, err := d.resolve(h)
	if err != nil {
		return err
	}
	d.stack = append([]handlers.Handler{resolved}, d.stack...)
	return nil
}

// Pop removes and returns the last handler, or nil.
func (d *Debug) Pop() handlers.Handler {
	n := len(d.stack)
	if n == 0 {
		return nil
	}
	h := d.stack[n-1]
	d.stack = d.stack[:n-1]
	return h
}

// Shift removes and returns the first handler, or nil.
func (d *Debug) Shift() handlers.Handler {
	if len(d.stack) == 0 {
		return nil
	}
	h := d.stack[0]
	d.stack = d.stack[1:]
	return h
}

// Handlers returns the stack in order.
func (d *Debug) Handlers() []handlers.Handler {
	out := make([]handlers.Handler, len(d.stack))
	copy(out, d.stack)
	return out
}

func (d *Debug) Clear() {
	d.stack = nil
}

func (d *Debug) resolve(h any) (handlers.Handler, error) {
	switch v := h.(type) {
	case handlers.Handler:
		return v, nil
	case handlers.Factory:
		return build(v)
	case func() handlers.Handler:
		return build(v)
	case string:
		f, ok := d.registry.Lookup(v)
		if !ok {
			return nil, fmt.Errorf("%w: no handler registered as %q", handlers.ErrInvalidHandler, v)
		}
		return build(f)
	}
	return nil, fmt.Errorf("%w: expected a handler, a factory or a registered name, got %T", handlers.ErrInvalidHandler, h)
}

func build(f func() handlers.Handler) (handlers.Handler, error) {
	h := f()
	if h == nil {
		return nil, fmt.Errorf("%w: factory returned nil", handlers.ErrInvalidHandler)
	}
	return h, nil
}

// Register sets the memory reserve aside and installs the Debug into its
// runtime. Calling it while registered only refreshes the reserve.
func (d *Debug) Register() {
	d.reserve.allocate()

	if d.state == StateRegistered {
		return
	}

	d.runtime.SetExceptionHandler(func(err error) {
		if herr := d.HandleException(err); herr != nil {
			slog.Error("Failure handler returned an error", "failure", err.Error(), "error", herr)
		}
	})
	d.runtime.SetErrorHandler(d.HandleError)
	if !d.shutdownInstalled {
		d.runtime.RegisterShutdownFunction(d.HandleShutdown)
		d.shutdownInstalled = true
	}
	d.state = StateRegistered
}

// Unregister restores the exception and error handlers that were active
// before Register. The shutdown function stays installed.
func (d *Debug) Unregister() {
	if d.state != StateRegistered {
		return
	}
	d.runtime.RestoreExceptionHandler()
	d.runtime.RestoreErrorHandler()
	d.state = StateUnregistered
}

// HandleException runs err through the handler stack. Handler output is
// captured and written after the response status has been decided. When a
// handler terminates, the runtime exits with the failure's exit code.
// Errors returned by handlers are joined and returned; they do not stop the
// chain.
func (d *Debug) HandleException(err error) error {
	started := time.Now()
	in := inspection.New(err)

	status, captured, herr := d.runHandlers(in)

	if !d.runtime.IsCLI() && d.response != nil {
		d.writeStatus(in)
	}
	if len(captured) > 0 {
		if _, werr := d.out.Write(captured); werr != nil {
			herr = errors.Join(herr, fmt.Errorf("failed to write handler output: %w", werr))
		}
	}

	metrics.HandlingDuration.WithLabelValues(fault.Origin(err)).Observe(time.Since(started).Seconds())
	slog.Debug("Failure handled",
		"kind", in.Name(),
		"message", in.Message(),
		"outcome", status.String(),
	)

	if status == handlers.StatusTerminate {
		d.runtime.Exit(in.MustExitCode())
	}
	return herr
}

// runHandlers runs the stack inside its own output level. The level, and any
// level a handler left open, is closed on every way out, panics included.
func (d *Debug) runHandlers(in *inspection.Inspector) (status handlers.Status, captured []byte, errs error) {
	level := d.out.Level()
	d.out.Start()
	defer func() {
		// Whatever is innermost now is what the handlers produced.
		captured, _ = d.out.GetClean()
		d.out.CleanTo(level)
	}()

	status = handlers.StatusContinue
	for _, h := range d.stack {
		h.SetInspector(in)
		h.SetRequest(d.request)
		h.SetResponse(d.response)

		name := fmt.Sprintf("%T", h)
		if !h.Valid() {
			metrics.HandlerOutcomes.WithLabelValues(name, "skipped").Inc()
			continue
		}

		var err error
		status, err = h.Handle()
		if err != nil {
			metrics.HandlerOutcomes.WithLabelValues(name, "error").Inc()
			errs = errors.Join(errs, fmt.Errorf("%s: %w", name, err))
		} else {
			metrics.HandlerOutcomes.WithLabelValues(name, status.String()).Inc()
		}

		if status != handlers.StatusContinue {
			break
		}
	}
	return status, captured, errs
}

// writeStatus sets the response status from the failure, falling back to
// 500 when the response rejects it, and emits the status line unless
// headers are already out.
func (d *Debug) writeStatus(in *inspection.Inspector) {
	code := in.MustStatusCode()
	if err := d.response.SetStatusCode(code); err != nil {
		code = http.StatusInternalServerError
		_ = d.response.SetStatusCode(code)
	}

	if d.response.HeadersSent() {
		return
	}
	proto := "1.1"
	if d.request != nil {
		proto = d.request.ProtocolVersion()
	}
	d.response.WriteStatusLine(
		fmt.Sprintf("HTTP/%s %d %s", proto, d.response.StatusCode(), d.response.ReasonPhrase()),
		code,
	)
}

// HandleError converts a triggered error into a failure. Severities outside
// the runtime's error-reporting mask are declined. Deprecations, and errors
// seen during shutdown, are handled on the spot; anything else is raised as
// a panic for the runtime to recover and hand to HandleException.
func (d *Debug) HandleError(sev fault.Severity, message, file string, line int) bool {
	return d.handleError(sev, message, file, line, nil)
}

func (d *Debug) handleError(sev fault.Severity, message, file string, line int, diagnostic []fault.TraceEntry) bool {
	if !d.runtime.ErrorReporting().Has(sev) {
		return false
	}

	failure := fault.NewTriggeredError(sev, message, file, line)
	if len(diagnostic) > 0 {
		failure = failure.WithDiagnosticTrace(diagnostic)
	}
	if d.fromShutdown {
		failure = failure.AtShutdown()
	}

	if d.fromShutdown || sev.IsDeprecation() {
		if err := d.HandleException(failure); err != nil {
			slog.Error("Failure handler returned an error", "failure", message, "error", err)
		}
		return true
	}
	panic(failure)
}

// HandleShutdown handles the fatal error the runtime recorded before
// shutting down, if any. It does nothing once the reserve is gone.
func (d *Debug) HandleShutdown() {
	if !d.reserve.release() {
		return
	}

	last := d.runtime.LastError()
	if last == nil {
		return
	}

	d.fromShutdown = true
	if last.Severity.IsFatal() {
		d.handleError(last.Severity, last.Message, last.File, last.Line, last.Trace)
	}
}
