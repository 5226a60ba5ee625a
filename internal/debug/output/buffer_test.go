package output

import (
	"bytes"
	"fmt"
	"testing"
)

func TestBuffer_WritesThroughWithoutLevels(t *testing.T) {
	var base bytes.Buffer
	b := New(&base)

	fmt.Fprint(b, "direct")
	if base.String() != "direct" {
		t.Fatalf("base = %q", base.String())
	}
	if _, ok := b.GetClean(); ok {
		t.Fatal("GetClean without a level should report false")
	}
}

func TestBuffer_NestedCapture(t *testing.T) {
	var base bytes.Buffer
	b := New(&base)

	b.Start()
	fmt.Fprint(b, "outer ")
	b.Start()
	fmt.Fprint(b, "inner")

	if b.Level() != 2 {
		t.Fatalf("level = %d", b.Level())
	}

	if err := b.EndFlush(); err != nil {
		t.Fatal(err)
	}
	out, ok := b.GetClean()
	if !ok || string(out) != "outer inner" {
		t.Fatalf("captured %q, %v", out, ok)
	}
	if base.Len() != 0 {
		t.Fatalf("nothing should reach the base writer, got %q", base.String())
	}
}

func TestBuffer_CleanTo(t *testing.T) {
	b := New(nil)
	b.Start()
	b.Start()
	b.Start()

	b.CleanTo(1)
	if b.Level() != 1 {
		t.Fatalf("level = %d", b.Level())
	}
	b.CleanTo(5)
	if b.Level() != 1 {
		t.Fatalf("CleanTo above the current level must not open levels, got %d", b.Level())
	}
	b.CleanTo(-1)
	if b.Level() != 0 {
		t.Fatalf("level = %d", b.Level())
	}
}
