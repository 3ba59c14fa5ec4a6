package chat

import (
	"reflect"
	"testing"
)

func TestLineBufferReassemblesSplitLines(t *testing.T) {
	var buf lineBuffer
	if lines := buf.Feed([]byte("data: he")); len(lines) != 0 {
		t.Fatalf("expected no complete lines, got %v", lines)
	}
	lines := buf.Feed([]byte("llo\ndata: wor"))
	if !reflect.DeepEqual(lines, []string{"data: hello"}) {
		t.Fatalf("unexpected lines: %v", lines)
	}
	lines = buf.Feed([]byte("ld\n\n"))
	if !reflect.DeepEqual(lines, []string{"data: world", ""}) {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestLineBufferStripsCarriageReturns(t *testing.T) {
	var buf lineBuffer
	lines := buf.Feed([]byte("data: a\r\ndata: b\r\n"))
	if !reflect.DeepEqual(lines, []string{"data: a", "data: b"}) {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestLineBufferRestReturnsUnterminatedTail(t *testing.T) {
	var buf lineBuffer
	buf.Feed([]byte("data: [DONE]"))
	if rest := buf.Rest(); rest != "data: [DONE]" {
		t.Fatalf("unexpected rest: %q", rest)
	}
	if rest := buf.Rest(); rest != "" {
		t.Fatalf("expected empty rest after drain, got %q", rest)
	}
}

func TestLineBufferManyLinesInOneFeed(t *testing.T) {
	var buf lineBuffer
	lines := buf.Feed([]byte("one\ntwo\nthree\npartial"))
	if !reflect.DeepEqual(lines, []string{"one", "two", "three"}) {
		t.Fatalf("unexpected lines: %v", lines)
	}
	if rest := buf.Rest(); rest != "partial" {
		t.Fatalf("unexpected rest: %q", rest)
	}
}
