package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{input: "debug", want: DEBUG},
		{input: "", want: INFO},
		{input: "WARN", want: WARN},
		{input: "warning", want: WARN},
		{input: " error ", want: ERROR},
		{input: "verbose", want: INFO, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggerWritesSortedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(DEBUG, &buf)

	logger.Info("loaded diff", map[string]any{
		"path":    "f.txt",
		"edits":   2,
		"project": "demo",
	})

	out := buf.String()
	editsIdx := strings.Index(out, "edits=2")
	pathIdx := strings.Index(out, "path=f.txt")
	projectIdx := strings.Index(out, "project=demo")
	if editsIdx < 0 || pathIdx < 0 || projectIdx < 0 {
		t.Fatalf("missing fields in output: %q", out)
	}
	if !(editsIdx < pathIdx && pathIdx < projectIdx) {
		t.Errorf("fields not sorted in output: %q", out)
	}
}

func TestLoggerCountsSuppressedWarnings(t *testing.T) {
	var buf bytes.Buffer
	logger := New(ERROR, &buf)

	logger.Warn("dropped key", nil)
	logger.WarnErr("ancestry check failed", errors.New("boom"), nil)

	if buf.Len() != 0 {
		t.Errorf("expected warnings to be suppressed, got %q", buf.String())
	}
	if got := logger.GetWarningCount(); got != 2 {
		t.Errorf("GetWarningCount() = %d, want 2", got)
	}
}

func TestLoggerErrorStats(t *testing.T) {
	logger := Discard()
	logger.Error("load failed", errors.New("disk"), nil)

	if !logger.HasErrors() {
		t.Fatal("expected HasErrors() to be true")
	}
	stats := logger.GetStats()
	if stats.LastError != "load failed: disk" {
		t.Errorf("LastError = %q, want %q", stats.LastError, "load failed: disk")
	}

	logger.Reset()
	if logger.HasErrors() {
		t.Error("expected HasErrors() to be false after Reset")
	}
}

func TestQuietModeOnlyErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := New(DEBUG, &buf)
	logger.SetQuiet(true)

	logger.Info("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected info to be hidden in quiet mode, got %q", buf.String())
	}

	logger.Error("shown", nil, nil)
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected error in output, got %q", buf.String())
	}
}
