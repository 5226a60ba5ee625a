package fault

import (
	"runtime"
	"strings"
)

const (
	// InternalFunction marks a trace entry without a source location.
	InternalFunction = "[internal function]"

	// CallInstance and CallStatic are the call-type markers of a trace entry.
	CallInstance = "->"
	CallStatic   = "::"

	defaultMaxDepth = 64
)

// TraceEntry is one raw stack entry. File and Line describe where the call
// was made from; Function, Class, Type and Args describe what was called.
type TraceEntry struct {
	File     string
	Line     int
	Function string
	Class    string
	Type     string
	Args     []any
}

// Callers captures the stack of the caller of Callers, skipping skip extra
// frames. It returns the location of the innermost frame and the trace in
// call-site shape: entry i names function i and the location in function i+1
// that called it.
func Callers(skip int) (file string, line int, trace []TraceEntry) {
	return callers(skip+1, false)
}

// panicCallers is Callers for use inside a deferred recover: the runtime's own
// panic frames at the top of the stack are dropped.
func panicCallers(skip int) (file string, line int, trace []TraceEntry) {
	return callers(skip+1, true)
}

func callers(skip int, fromPanic bool) (string, int, []TraceEntry) {
	pc := make([]uintptr, defaultMaxDepth)
	// +2 for runtime.Callers and callers itself.
	n := runtime.Callers(skip+2, pc)
	if n == 0 {
		return InternalFunction, 0, nil
	}

	frames := runtime.CallersFrames(pc[:n])
	var stack []runtime.Frame
	for {
		fr, more := frames.Next()
		stack = append(stack, fr)
		if !more {
			break
		}
	}

	if fromPanic {
		// Everything up to runtime.gopanic belongs to the recovering code.
		for i := range stack {
			if stack[i].Function == "runtime.gopanic" {
				stack = stack[i+1:]
				break
			}
		}
		for len(stack) > 0 && strings.HasPrefix(stack[0].Function, "runtime.") {
			stack = stack[1:]
		}
	}
	if len(stack) == 0 {
		return InternalFunction, 0, nil
	}

	trace := make([]TraceEntry, 0, len(stack))
	for i, fr := range stack {
		entry := TraceEntry{File: InternalFunction}
		entry.Class, entry.Type, entry.Function = SplitFunction(fr.Function)
		if i+1 < len(stack) {
			entry.File = stack[i+1].File
			entry.Line = stack[i+1].Line
		}
		trace = append(trace, entry)
	}
	return stack[0].File, stack[0].Line, trace
}

// SplitFunction breaks a fully-qualified Go function name into receiver,
// call type and function name:
//
//	github.com/x/pkg.(*T).M  -> "(*pkg.T)", "->", "M"
//	github.com/x/pkg.T.M     -> "pkg.T", "->", "M"
//	github.com/x/pkg.F       -> "", "", "pkg.F"
//	github.com/x/pkg.F.func1 -> "", "", "pkg.F.func1"
func SplitFunction(name string) (class, typ, function string) {
	if name == "" {
		return "", "", "[unknown]"
	}
	rest := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		rest = name[i+1:]
	}
	dot := strings.Index(rest, ".")
	if dot < 0 {
		return "", "", name
	}
	pkg, member := rest[:dot], rest[dot+1:]

	if strings.HasPrefix(member, "(*") {
		if end := strings.Index(member, ")."); end > 0 {
			return "(*" + pkg + "." + member[2:end] + ")", CallInstance, member[end+2:]
		}
	}

	last := strings.LastIndex(member, ".")
	if last < 0 || isClosure(member[last+1:]) || strings.Contains(member[:last], "[") {
		return "", "", pkg + "." + member
	}
	return pkg + "." + member[:last], CallInstance, member[last+1:]
}

func isClosure(s string) bool {
	if isDigits(s) {
		return true
	}
	for _, prefix := range []string{"func", "gowrap", "deferwrap"} {
		if strings.HasPrefix(s, prefix) {
			return isDigits(s[len(prefix):])
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
