package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// LocalStorage writes uploads into a directory served by the API under /<prefix>/.
type LocalStorage struct {
	dir    string
	prefix string
}

// NewLocalStorage creates the upload directory if needed.
func NewLocalStorage(dir, prefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir, prefix: prefix}, nil
}

// Dir returns the directory uploads are written to.
func (s *LocalStorage) Dir() string { return s.dir }

// Save streams r into a new file and returns its public path, e.g. "uploads/<uuid>.png".
func (s *LocalStorage) Save(ctx context.Context, contentType string, r io.Reader) (string, error) {
	name := objectName(contentType)
	full := filepath.Join(s.dir, name)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full) // Clean up partial file
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(full)
		return "", err
	}

	return path.Join(s.prefix, name), nil
}
