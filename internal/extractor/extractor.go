// Package extractor shells out to external structural-text extractors
// for formats without a native parser (legacy DOC, ODT). The binaries
// are deployment configuration; their absence is a configuration gap,
// not a transient failure.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// TextExtractor converts opaque document bytes into flat text.
type TextExtractor interface {
	// Available reports whether the extractor can run in this
	// deployment. Callers treat false as an unsupported format.
	Available() bool
	ExtractText(ctx context.Context, data []byte, filename string) (string, error)
}

// ExecExtractor runs an external command with the document written to
// a temp file appended as the final argument, reading text from stdout.
// Known good commands: antiword for .doc, odt2txt for .odt.
type ExecExtractor struct {
	Command string
	Args    []string
	// Pattern names the temp file, e.g. "docnorm-*.doc". Some tools
	// sniff the extension.
	Pattern string
}

// Available reports whether the configured binary exists on PATH.
func (e *ExecExtractor) Available() bool {
	if e == nil || e.Command == "" {
		return false
	}
	_, err := exec.LookPath(e.Command)
	return err == nil
}

func (e *ExecExtractor) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	pattern := e.Pattern
	if pattern == "" {
		pattern = "docnorm-*"
	}
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	args := append(append([]string{}, e.Args...), tmpPath)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) > 0 {
			return "", fmt.Errorf("%s: %w: %s", e.Command, err, msg)
		}
		return "", fmt.Errorf("%s: %w", e.Command, err)
	}
	return stdout.String(), nil
}
