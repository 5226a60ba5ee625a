package inspection

// MainFunction is the function name of the synthetic frame that closes every
// trace.
const MainFunction = "[main]"

// Frame is a single normalized stack frame: the location of a call together
// with the function that was called there.
type Frame struct {
	file      string
	line      int
	function  string
	class     string
	typ       string
	arguments []any
}

// NewFrame builds a frame. class and typ are empty for free functions.
func NewFrame(file string, line int, function, class, typ string, arguments []any) Frame {
	return Frame{
		file:      file,
		line:      line,
		function:  function,
		class:     class,
		typ:       typ,
		arguments: arguments,
	}
}

func (f Frame) File() string     { return f.file }
func (f Frame) Line() int        { return f.line }
func (f Frame) Function() string { return f.function }
func (f Frame) Class() string    { return f.class }
func (f Frame) Type() string     { return f.typ }

// Arguments returns a copy of the call arguments.
func (f Frame) Arguments() []any {
	if len(f.arguments) == 0 {
		return []any{}
	}
	out := make([]any, len(f.arguments))
	copy(out, f.arguments)
	return out
}

// IsMain reports whether f is the synthetic terminal frame.
func (f Frame) IsMain() bool {
	return f.function == MainFunction
}

// CodeSnippet returns the source window around the frame's line.
func (f Frame) CodeSnippet(lines int) map[int]string {
	return NewCodeSnippet(f.file, f.line, lines).Get()
}

// FrameData is the exported form of a Frame.
type FrameData struct {
	File        string         `json:"file"`
	Line        int            `json:"line"`
	Class       string         `json:"class"`
	Type        string         `json:"type"`
	Function    string         `json:"function"`
	Arguments   []any          `json:"arguments"`
	CodeSnippet map[int]string `json:"code_snippet"`
}

// Data exports the frame, code snippet included.
func (f Frame) Data() FrameData {
	return FrameData{
		File:        f.file,
		Line:        f.line,
		Class:       f.class,
		Type:        f.typ,
		Function:    f.function,
		Arguments:   f.Arguments(),
		CodeSnippet: f.CodeSnippet(DefaultSnippetLines),
	}
}
