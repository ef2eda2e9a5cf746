package extractor

import (
	"context"
	"strings"
	"testing"
)

func TestExecExtractor_ReadsStdout(t *testing.T) {
	e := &ExecExtractor{Command: "cat", Pattern: "extract-test-*.txt"}
	if !e.Available() {
		t.Skip("cat not on PATH")
	}
	out, err := e.ExtractText(context.Background(), []byte("first line\nsecond line\n"), "input.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "first line") || !strings.Contains(out, "second line") {
		t.Errorf("stdout not captured, got %q", out)
	}
}

func TestExecExtractor_CommandFailure(t *testing.T) {
	e := &ExecExtractor{Command: "false"}
	if !e.Available() {
		t.Skip("false not on PATH")
	}
	if _, err := e.ExtractText(context.Background(), []byte("data"), "x.doc"); err == nil {
		t.Fatal("expected error from failing command")
	}
}

func TestExecExtractor_Available(t *testing.T) {
	var nilExtractor *ExecExtractor
	if nilExtractor.Available() {
		t.Error("nil extractor reported available")
	}
	missing := &ExecExtractor{Command: "definitely-not-a-real-binary-xyz"}
	if missing.Available() {
		t.Error("missing binary reported available")
	}
}
