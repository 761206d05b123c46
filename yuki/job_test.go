package yuki

import (
	"fmt"
	"testing"
)

func TestTailJobOp(t *testing.T) {
	op := &TailJobOp{numLines: 3}
	check := func(expected ...string) {
		if len(op.Lines) != len(expected) {
			t.Fatalf("tail = %v; want %v", op.Lines, expected)
		}
		for i := range expected {
			if op.Lines[i] != expected[i] {
				t.Errorf("tail[%d] = %s; want %s", i, op.Lines[i], expected[i])
			}
		}
	}

	op.Update([]string{"a", "b"})
	check("a", "b")
	// filling past capacity discards the oldest lines
	op.Update([]string{"c", "d"})
	check("b", "c", "d")
	// a burst larger than the tail keeps only its last lines
	op.Update([]string{"e", "f", "g", "h"})
	check("f", "g", "h")
}

func TestTailJobOpDefaultCapacity(t *testing.T) {
	op := &TailJobOp{}
	var lines []string
	for i := 0; i < TailJobOpNumLines+5; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	op.Update(lines)
	if len(op.Lines) != TailJobOpNumLines {
		t.Fatalf("tail holds %d lines; want %d", len(op.Lines), TailJobOpNumLines)
	}
	if op.Lines[0] != "line 5" {
		t.Errorf("oldest retained line = %s; want line 5", op.Lines[0])
	}
}
