// Package local implements a local filesystem blob store for page archives.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory where page snapshots are stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore writes page snapshots to the local filesystem.
type BlobStore struct {
	baseDir string
}

// New creates a local filesystem-backed blob store, creating BaseDir if needed.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	return &BlobStore{baseDir: cfg.BaseDir}, nil
}

// PutObject writes data under BaseDir and returns a file:// URI. Paths that
// escape BaseDir are rejected.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}

	fullPath := filepath.Join(s.baseDir, path)
	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("file://%s", fullPath), nil
}
