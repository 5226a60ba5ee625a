package hook

import (
	"os"

	"github.com/vietddude/crashguard/internal/debug/fault"
)

// Process is the Runtime of a whole program. There should be one per process.
type Process struct {
	hooks
	cli  bool
	exit func(int)
}

// Option configures a Process.
type Option func(*Process)

// WithCLI marks the process as a command-line program: failures are not
// reported on an HTTP response.
func WithCLI(cli bool) Option {
	return func(p *Process) { p.cli = cli }
}

// WithExitFunc replaces os.Exit.
func WithExitFunc(exit func(int)) Option {
	return func(p *Process) { p.exit = exit }
}

// WithErrorReporting sets the initial error-reporting mask.
func WithErrorReporting(mask fault.Severity) Option {
	return func(p *Process) { p.mask = mask }
}

// NewProcess creates a CLI process runtime reporting every severity.
func NewProcess(opts ...Option) *Process {
	p := &Process{cli: true, exit: os.Exit}
	p.mask = fault.SeverityAll
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Process) IsCLI() bool {
	return p.cli
}

// Recover hands a panic on the current goroutine to the exception handler.
// It must be deferred directly:
//
//	defer proc.Recover()
func (p *Process) Recover() {
	if r := recover(); r != nil {
		p.handlePanic(r)
	}
}

// Go runs fn on a new goroutine whose panics are recovered.
func (p *Process) Go(fn func()) {
	go func() {
		defer p.Recover()
		fn()
	}()
}

// Trigger raises an error of the given severity from the caller's location.
// It reports whether an error handler took it.
func (p *Process) Trigger(sev fault.Severity, message string) bool {
	return p.trigger(sev, message, p.Exit)
}

// Shutdown runs the shutdown functions. Later calls do nothing.
func (p *Process) Shutdown() {
	p.runShutdown()
}

// Exit runs the shutdown functions and ends the process.
func (p *Process) Exit(code int) {
	p.Shutdown()
	p.exit(code)
}

var _ Runtime = (*Process)(nil)
