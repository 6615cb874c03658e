package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func saveAndRestoreLogger(t *testing.T) {
	t.Helper()
	original := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(original)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q): unexpected error state: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestSetup_Debug(t *testing.T) {
	saveAndRestoreLogger(t)

	var buf bytes.Buffer
	Setup(slog.LevelDebug, &buf)

	slog.Debug("retrying request", "attempt", 2)

	output := buf.String()
	if !strings.Contains(output, "retrying request") {
		t.Errorf("expected debug message in output, got: %s", output)
	}
	if !strings.Contains(output, "attempt=2") {
		t.Errorf("expected attempt=2 in output, got: %s", output)
	}
}

func TestSetup_InfoFiltersDebug(t *testing.T) {
	saveAndRestoreLogger(t)

	var buf bytes.Buffer
	Setup(slog.LevelInfo, &buf)

	slog.Debug("debug message")
	slog.Info("info message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Errorf("debug message should not appear at info level")
	}
	if !strings.Contains(output, "info message") {
		t.Errorf("info message should appear")
	}
}

func TestSetupJSON(t *testing.T) {
	saveAndRestoreLogger(t)

	var buf bytes.Buffer
	SetupJSON(slog.LevelInfo, &buf)

	slog.Info("query finished", "tables", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "query finished" {
		t.Errorf("expected msg %q, got %v", "query finished", entry["msg"])
	}
	if entry["tables"] != float64(2) {
		t.Errorf("expected tables=2, got %v", entry["tables"])
	}
}

func TestSetup_NilWriter(t *testing.T) {
	saveAndRestoreLogger(t)

	Setup(slog.LevelError, nil)
	slog.Info("dropped")
}
