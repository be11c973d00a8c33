package supervisor

import (
	"strings"
	"testing"
)

func TestTailBufferKeepsTail(t *testing.T) {
	tb := newTailBuffer(8)
	if _, err := tb.Write([]byte("abcdefgh")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := tb.Write([]byte("XYZ")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := tb.String()
	if got != "defghXYZ" {
		t.Fatalf("got %q", got)
	}
}

func TestTailBufferTrimsWhitespace(t *testing.T) {
	tb := newTailBuffer(64)
	_, _ = tb.Write([]byte("error: boom\n"))
	if got := tb.String(); got != "error: boom" {
		t.Fatalf("got %q", got)
	}
}

func TestTailBufferLargeSingleWrite(t *testing.T) {
	tb := newTailBuffer(4)
	_, _ = tb.Write([]byte(strings.Repeat("a", 100) + "tail"))
	if got := tb.String(); got != "tail" {
		t.Fatalf("got %q", got)
	}
}

func TestLibPathEnvVar(t *testing.T) {
	// Whatever the host platform, the variable must be non-empty and one
	// of the three known names.
	switch libPathEnvVar() {
	case "LD_LIBRARY_PATH", "DYLD_LIBRARY_PATH", "PATH":
	default:
		t.Fatalf("unexpected env var %q", libPathEnvVar())
	}
}
