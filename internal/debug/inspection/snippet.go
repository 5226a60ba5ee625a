package inspection

import (
	"bufio"
	"os"
	"strings"
)

// DefaultSnippetLines is the window size used when none is given.
const DefaultSnippetLines = 15

// CodeSnippet is a window of source lines centered on a line of a file.
type CodeSnippet struct {
	file  string
	line  int
	lines int
}

// NewCodeSnippet creates a snippet of lines source lines around line.
func NewCodeSnippet(file string, line, lines int) CodeSnippet {
	if lines <= 0 {
		lines = DefaultSnippetLines
	}
	return CodeSnippet{file: file, line: line, lines: lines}
}

// Get returns the window as a map of 1-based line number to the right-trimmed
// line text. It is empty when the file cannot be read.
func (s CodeSnippet) Get() map[int]string {
	code := map[int]string{}

	info, err := os.Stat(s.file)
	if err != nil || !info.Mode().IsRegular() {
		return code
	}
	f, err := os.Open(s.file)
	if err != nil {
		return code
	}
	defer f.Close()

	var all []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		all = append(all, sc.Text())
	}
	if sc.Err() != nil || len(all) == 0 {
		return code
	}

	start, end := s.bounds(len(all))
	for i := start; i <= end; i++ {
		code[i+1] = strings.TrimRight(all[i], " \t\r\n\v\f")
	}
	return code
}

// bounds returns the 0-based inclusive index range of the window.
func (s CodeSnippet) bounds(total int) (int, int) {
	start := max(s.line-s.lines/2, 0)
	end := start + s.lines - 1

	if end > total-1 {
		end = total - 1
		start = max(end-s.lines+1, 0)
	}
	return start, end
}
