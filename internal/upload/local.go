package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Local implements Uploader using the local filesystem. It serves
// development and constrained environments where no object store is
// configured, and is the deterministic stand-in used by tests.
type Local struct {
	basePath string
}

// NewLocal creates a Local uploader rooted at basePath, creating the
// directory if it doesn't exist.
func NewLocal(basePath string) (*Local, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &Local{basePath: basePath}, nil
}

// Upload writes the object under the base directory, mirroring the object
// store key layout.
func (l *Local) Upload(_ context.Context, data []byte, filename string) Result {
	if len(data) == 0 {
		return failure("no image data to upload")
	}

	key := filename
	if key == "" {
		key = generateKey(time.Now())
	}

	path := filepath.Join(l.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return failure("creating directory for %s: %v", key, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return failure("writing file %s: %v", key, err)
	}

	return Result{
		Success: true,
		URL:     "file://" + path,
		Bucket:  l.basePath,
		Key:     key,
		Size:    len(data),
	}
}

// Get retrieves a previously uploaded object by key.
func (l *Local) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes an object by key.
func (l *Local) Delete(key string) error {
	if err := os.Remove(filepath.Join(l.basePath, filepath.FromSlash(key))); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// Close is a no-op for local storage.
func (l *Local) Close() error {
	return nil
}
