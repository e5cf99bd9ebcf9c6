package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"igrepost/pkg/logger"
)

func TestSaveVideo(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	path, err := m.SaveVideo(strings.NewReader("video-bytes"), "abc123")
	if err != nil {
		t.Fatalf("Failed to save video: %v", err)
	}

	if path != filepath.Join(dir, "abc123.mp4") {
		t.Errorf("Unexpected path: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved video: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Errorf("Unexpected content: %s", data)
	}
}

func TestSaveVideoRejectsEmpty(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if _, err := m.SaveVideo(strings.NewReader(""), "abc123"); err == nil {
		t.Fatal("Expected error for empty download")
	}

	// Neither the final file nor the temp file may remain
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty directory, found %d entries", len(entries))
	}
}

func TestRemoveBestEffort(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewTestLogger()
	m, err := NewManager(dir, log)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	path, err := m.SaveVideo(strings.NewReader("bytes"), "abc123")
	if err != nil {
		t.Fatalf("Failed to save video: %v", err)
	}

	m.Remove(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected file to be removed")
	}

	// Removing again, a missing path, and an empty path must all be silent no-ops
	m.Remove(path)
	m.Remove(filepath.Join(dir, "never-existed.mp4"))
	m.Remove("")

	if log.HasError() {
		t.Error("Cleanup must never log at error level")
	}
}

func TestNewManagerCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	if _, err := NewManager(dir, logger.NewTestLogger()); err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Expected directory to exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected a directory")
	}
}
