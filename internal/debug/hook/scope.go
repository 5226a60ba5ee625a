package hook

import (
	"context"
	"sync"

	"github.com/vietddude/crashguard/internal/debug/fault"
)

// RequestScope is the Runtime of a single HTTP request. It never exits the
// process: Exit ends the scope and remembers the code.
type RequestScope struct {
	hooks

	exitMu   sync.Mutex
	exited   bool
	exitCode int
}

// NewRequestScope creates a scope with the error-reporting mask of parent,
// or every severity when parent is nil.
func NewRequestScope(parent Runtime) *RequestScope {
	mask := fault.SeverityAll
	if parent != nil {
		mask = parent.ErrorReporting()
	}
	s := &RequestScope{}
	s.mask = mask
	return s
}

func (s *RequestScope) IsCLI() bool {
	return false
}

// Recover hands a panic in the request to the scope's exception handler.
// It must be deferred directly.
func (s *RequestScope) Recover() {
	if r := recover(); r != nil {
		s.handlePanic(r)
	}
}

// Trigger raises an error of the given severity from the caller's location.
func (s *RequestScope) Trigger(sev fault.Severity, message string) bool {
	return s.trigger(sev, message, s.Exit)
}

// Close runs the scope's shutdown functions. Later calls do nothing.
func (s *RequestScope) Close() {
	s.runShutdown()
}

// Exit records code and closes the scope. The last code wins.
func (s *RequestScope) Exit(code int) {
	s.exitMu.Lock()
	first := !s.exited
	s.exited = true
	s.exitCode = code
	s.exitMu.Unlock()

	if first {
		s.Close()
	}
}

// Exited reports whether Exit was called, and with which code.
func (s *RequestScope) Exited() (int, bool) {
	s.exitMu.Lock()
	defer s.exitMu.Unlock()
	return s.exitCode, s.exited
}

var _ Runtime = (*RequestScope)(nil)

type scopeKey struct{}

// ContextWithScope returns a copy of ctx carrying s.
func ContextWithScope(ctx context.Context, s *RequestScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the request scope carried by ctx.
func ScopeFrom(ctx context.Context) (*RequestScope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*RequestScope)
	return s, ok
}
