package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStore stores objects under a root directory and serves them from
// a static URL prefix.
type FilesystemStore struct {
	root    string
	baseURL string
}

// NewFilesystemStore constructs a FilesystemStore rooted at dir.
func NewFilesystemStore(root, baseURL string) (*FilesystemStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("storage: empty root")
	}
	if errMkdir := os.MkdirAll(root, 0o755); errMkdir != nil {
		return nil, fmt.Errorf("storage: create root: %w", errMkdir)
	}
	return &FilesystemStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Root returns the filesystem root directory.
func (s *FilesystemStore) Root() string { return s.root }

// Upload writes the object and returns its storage path.
func (s *FilesystemStore) Upload(_ context.Context, objectName string, _ string, r io.Reader) (string, error) {
	objectName = sanitizeObjectName(objectName)
	if objectName == "" {
		return "", fmt.Errorf("storage: empty object name")
	}

	target := filepath.Join(s.root, objectName)
	f, errCreate := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errCreate != nil {
		return "", fmt.Errorf("storage: create object: %w", errCreate)
	}
	if _, errCopy := io.Copy(f, r); errCopy != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("storage: write object: %w", errCopy)
	}
	if errClose := f.Close(); errClose != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("storage: close object: %w", errClose)
	}
	return objectName, nil
}

// PublicURL returns the public URL for a stored object.
func (s *FilesystemStore) PublicURL(objectPath string) string {
	return s.baseURL + "/" + sanitizeObjectName(objectPath)
}

// Remove deletes a stored object. Removing a missing object is not an error.
func (s *FilesystemStore) Remove(_ context.Context, objectPath string) error {
	objectPath = sanitizeObjectName(objectPath)
	if objectPath == "" {
		return fmt.Errorf("storage: empty object path")
	}
	if errRemove := os.Remove(filepath.Join(s.root, objectPath)); errRemove != nil && !os.IsNotExist(errRemove) {
		return fmt.Errorf("storage: remove object: %w", errRemove)
	}
	return nil
}

// sanitizeObjectName strips path separators so objects stay inside the root.
func sanitizeObjectName(name string) string {
	name = strings.TrimSpace(name)
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
