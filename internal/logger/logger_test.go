package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewWritesJSONToConfiguredOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")

	log, err := New(Options{JSON: true, Debug: true, Output: path})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	log.Debug("matching started")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("expected a json entry, got %q: %v", data, err)
	}

	if entry["step"] != "matching started" {
		t.Fatalf("unexpected message: %v", entry["step"])
	}
	if entry["level"] != "debug" {
		t.Fatalf("unexpected level: %v", entry["level"])
	}
}

func TestNewSkipsDebugByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")

	log, err := New(Options{Output: path})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	log.Debug("hidden")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected no output, got %q", data)
	}
}
