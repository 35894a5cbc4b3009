// Package storage provides the object store backing uploaded assets.
package storage

import (
	"context"
	"io"
)

// Store persists binary objects and serves them under public URLs.
type Store interface {
	// Upload writes the object and returns its storage path.
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error)
	// PublicURL returns the public URL for a stored object.
	PublicURL(objectPath string) string
	// Remove deletes a stored object.
	Remove(ctx context.Context, objectPath string) error
}
