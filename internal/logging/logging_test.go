package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestLogLevelConstants(t *testing.T) {
	// Verify log level ordering
	if LevelDebug >= LevelInfo {
		t.Error("LevelDebug should be less than LevelInfo")
	}
	if LevelInfo >= LevelWarn {
		t.Error("LevelInfo should be less than LevelWarn")
	}
	if LevelWarn >= LevelError {
		t.Error("LevelWarn should be less than LevelError")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestOpFormatsComponentAndOperation(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(log.Writer())

	Op(LevelError, "cache", "evict", "removed %d entries", 3)

	out := buf.String()
	if !strings.Contains(out, "cache/evict") {
		t.Errorf("expected component/operation prefix, got %q", out)
	}
	if !strings.Contains(out, "removed 3 entries") {
		t.Errorf("expected formatted message, got %q", out)
	}
	if !strings.Contains(out, "[ERROR]") {
		t.Errorf("expected level tag, got %q", out)
	}
}

func TestOpSuppressedBelowCurrentLevel(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(log.Writer())

	// Default level is info unless the environment raised it, so a
	// debug-level Op from a default process emits nothing.
	if GetLevel() > LevelDebug {
		Op(LevelDebug, "discovery", "scan", "should not appear")
		if buf.Len() != 0 {
			t.Errorf("debug Op emitted output at level %v: %q", GetLevel(), buf.String())
		}
	}
}
