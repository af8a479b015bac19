package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestTerminalHandlerFiltersByLevel(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(NewTerminalHandlerWithLevel(out, LevelInfo, false))
	logger.Debug("should not appear")
	if out.Len() != 0 {
		t.Fatalf("expected no output below min level, got %q", out.String())
	}
	logger.Info("hello", "k", "v")
	if !strings.Contains(out.String(), "hello") || !strings.Contains(out.String(), "k=v") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestSetVerbosity(t *testing.T) {
	out := new(bytes.Buffer)
	h := NewTerminalHandlerWithLevel(out, LevelInfo, false)
	logger := NewLogger(h)
	logger.Debug("hidden")
	if out.Len() != 0 {
		t.Fatalf("expected filtered output")
	}
	SetVerbosity(h, LevelTrace)
	logger.Debug("visible")
	if !strings.Contains(out.String(), "visible") {
		t.Fatalf("expected debug line after lowering verbosity, got %q", out.String())
	}
}

func TestJSONHandlerEmitsDebug(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(JSONHandler(out))
	logger.Debug("hi there")
	if out.Len() == 0 {
		t.Error("expected non-empty debug log output from JSON handler")
	}
}
