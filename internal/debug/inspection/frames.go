package inspection

import (
	"iter"

	"github.com/vietddude/crashguard/internal/debug/fault"
)

// MaxCauseDepth bounds every walk along a failure's cause chain.
const MaxCauseDepth = fault.MaxCauseDepth

// Frames is the normalized stack of a failure: innermost call first, the
// synthetic [main] frame last.
type Frames struct {
	frames   []Frame
	previous *Frames
}

// CreateFrom builds the frames of err and, recursively, of its causes.
func CreateFrom(err error) *Frames {
	guard := newCauseGuard()
	guard.mark(err)
	return createFrom(err, guard)
}

func createFrom(err error, guard *causeGuard) *Frames {
	f := &Frames{}
	f.frames = generateFrames(err)

	if prev := Cause(err); prev != nil && guard.enter(prev) {
		f.previous = createFrom(prev, guard)
	}
	return f
}

// Frames returns the frames in order.
func (f *Frames) Frames() []Frame {
	out := make([]Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

// All iterates over the frames with their 0-based index.
func (f *Frames) All() iter.Seq2[int, Frame] {
	return func(yield func(int, Frame) bool) {
		for i, fr := range f.frames {
			if !yield(i, fr) {
				return
			}
		}
	}
}

// Len returns the number of frames, [main] included.
func (f *Frames) Len() int {
	return len(f.frames)
}

// Previous returns the frames of the failure's cause, or nil.
func (f *Frames) Previous() *Frames {
	return f.previous
}

// Data exports every frame.
func (f *Frames) Data() []FrameData {
	out := make([]FrameData, 0, len(f.frames))
	for _, fr := range f.frames {
		out = append(out, fr.Data())
	}
	return out
}

// generateFrames pairs each trace entry's callee with the location of the
// entry before it: an entry records where a call was made from and what was
// called, so call sites have to be shifted by one to line up with the
// function they belong to. The failure's own location opens the sequence.
// Stack collection never panics out of here; whatever was built is returned.
func generateFrames(err error) (frames []Frame) {
	currentFile, currentLine := fault.ExtractFileLineFromEvalCode(location(err))

	defer func() {
		if r := recover(); r != nil {
			frames = append(frames, NewFrame(currentFile, currentLine, MainFunction, "", "", nil))
		}
	}()

	for _, entry := range trace(err) {
		frames = append(frames, NewFrame(
			currentFile,
			currentLine,
			entry.Function,
			entry.Class,
			entry.Type,
			entry.Args,
		))

		file := entry.File
		if file == "" {
			file = fault.InternalFunction
		}
		currentFile, currentLine = fault.ExtractFileLineFromEvalCode(file, entry.Line)
	}

	return append(frames, NewFrame(currentFile, currentLine, MainFunction, "", "", nil))
}

// trace returns the raw stack of err. A fatal runtime error that carries a
// richer diagnostic stack uses it instead, minus the entries that also appear
// in the current backtrace.
func trace(err error) []fault.TraceEntry {
	var tracer fault.Tracer
	var entries []fault.TraceEntry
	if fault.As(err, &tracer) {
		entries = tracer.Trace()
	}

	var se *fault.TriggeredError
	if !fault.As(err, &se) || !se.Severity.IsFatal() {
		return entries
	}
	diagnostic := se.DiagnosticTrace()
	if len(diagnostic) == 0 {
		return entries
	}

	_, _, current := fault.Callers(0)
	seen := make(map[traceKey]struct{}, len(current))
	for _, e := range current {
		seen[keyOf(e)] = struct{}{}
	}

	filtered := make([]fault.TraceEntry, 0, len(diagnostic))
	for _, e := range diagnostic {
		if _, dup := seen[keyOf(e)]; dup {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

type traceKey struct {
	file     string
	line     int
	function string
	class    string
}

func keyOf(e fault.TraceEntry) traceKey {
	return traceKey{file: e.File, line: e.Line, function: e.Function, class: e.Class}
}

func location(err error) (string, int) {
	var loc fault.Locator
	if fault.As(err, &loc) {
		if file, line := loc.Location(); file != "" {
			return file, line
		}
	}
	return fault.InternalFunction, 0
}

// Cause returns the failure err was caused by, or nil. Status and exit code
// annotations, and a panic carrying an error, are not causes of their own.
func Cause(err error) error {
	switch u := fault.Underlying(err).(type) {
	case interface{ Unwrap() error }:
		return u.Unwrap()
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if e != nil {
				return e
			}
		}
	}
	return nil
}

// causeGuard stops cause walks that revisit a failure or run too deep.
type causeGuard struct {
	depth int
	seen  map[uintptr]struct{}
}

func newCauseGuard() *causeGuard {
	return &causeGuard{seen: map[uintptr]struct{}{}}
}

func (g *causeGuard) mark(err error) {
	if id, ok := fault.Identity(err); ok {
		g.seen[id] = struct{}{}
	}
}

func (g *causeGuard) enter(err error) bool {
	if g.depth >= MaxCauseDepth {
		return false
	}
	g.depth++
	id, ok := fault.Identity(err)
	if !ok {
		return true
	}
	if _, dup := g.seen[id]; dup {
		return false
	}
	g.seen[id] = struct{}{}
	return true
}
