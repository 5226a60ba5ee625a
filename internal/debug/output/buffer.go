package output

import (
	"bytes"
	"io"
	"sync"
)

// Buffer is a stack of capture levels over a base writer. Writes land in the
// innermost open level, or go straight to the base writer when none is open.
type Buffer struct {
	mu     sync.Mutex
	base   io.Writer
	levels []*bytes.Buffer
}

// New creates a Buffer with no open levels.
func New(base io.Writer) *Buffer {
	if base == nil {
		base = io.Discard
	}
	return &Buffer{base: base}
}

// Write implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.levels); n > 0 {
		return b.levels[n-1].Write(p)
	}
	return b.base.Write(p)
}

// Level returns the number of open capture levels.
func (b *Buffer) Level() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.levels)
}

// Start opens a new capture level.
func (b *Buffer) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.levels = append(b.levels, &bytes.Buffer{})
}

// GetClean closes the innermost level and returns what it captured. The
// boolean is false when no level was open.
func (b *Buffer) GetClean() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.levels)
	if n == 0 {
		return nil, false
	}
	top := b.levels[n-1]
	b.levels = b.levels[:n-1]
	return top.Bytes(), true
}

// EndFlush closes the innermost level, passing its contents to the level
// below (or the base writer).
func (b *Buffer) EndFlush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.levels)
	if n == 0 {
		return nil
	}
	top := b.levels[n-1]
	b.levels = b.levels[:n-1]

	var dst io.Writer = b.base
	if n > 1 {
		dst = b.levels[n-2]
	}
	_, err := dst.Write(top.Bytes())
	return err
}

// CleanTo discards every level above depth.
func (b *Buffer) CleanTo(depth int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if depth < 0 {
		depth = 0
	}
	if depth < len(b.levels) {
		b.levels = b.levels[:depth]
	}
}
