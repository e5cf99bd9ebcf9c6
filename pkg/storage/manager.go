// Package storage manages the downloads directory. Downloaded videos are
// short-lived, exclusively-owned files: saved before publishing, removed
// afterwards regardless of the publish outcome.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"igrepost/pkg/logger"
)

// Manager handles video file storage
type Manager struct {
	dir    string
	logger logger.Logger
}

// NewManager creates a storage manager rooted at dir, creating it if needed
func NewManager(dir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}

	return &Manager{dir: dir, logger: log}, nil
}

// VideoPath returns the download path for a video name
func (m *Manager) VideoPath(name string) string {
	return filepath.Join(m.dir, name+".mp4")
}

// SaveVideo writes a video stream to disk under name. The write is atomic
// (temp file then rename) and an empty result is an error: a zero-byte
// download means the stream was bad, not that we have a video.
func (m *Manager) SaveVideo(r io.Reader, name string) (string, error) {
	filename := m.VideoPath(name)
	tempFile := filename + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	written, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to save video data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}
	if written == 0 {
		os.Remove(tempFile)
		return "", fmt.Errorf("downloaded video %s is empty", name)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.logger.InfoWithFields("video downloaded", map[string]interface{}{
		"path":     filename,
		"size_mib": float64(written) / (1024 * 1024),
	})

	return filename, nil
}

// Remove deletes a downloaded file, best-effort. Failures are logged and
// never propagate: cleanup must not affect control flow.
func (m *Manager) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			m.logger.WithError(err).WithField("path", path).Warn("failed to clean up file")
		}
		return
	}
	m.logger.DebugWithFields("cleaned up file", map[string]interface{}{"path": path})
}

// Dir returns the downloads directory path
func (m *Manager) Dir() string {
	return m.dir
}
