package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Printf("resolved %s", "demo")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "resolved demo") {
		t.Errorf("log file missing entry, got %q", string(data))
	}
}

func TestNewStderrOnly(t *testing.T) {
	logger, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger")
	}
}
