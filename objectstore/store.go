// Package objectstore abstracts blob storage for uploaded media and
// rendered artifacts. Two implementations are provided: a local
// filesystem store for single-node deployments and a MinIO/S3 store.
package objectstore

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	// Key is the object's storage key.
	Key string `json:"key"`
	// Name is the original file name at upload time.
	Name string `json:"name"`
	// Size is the object size in bytes.
	Size int64 `json:"size"`
	// ContentType is the MIME type reported at upload time.
	ContentType string `json:"content_type,omitempty"`
	// StoredAt is when the object was written.
	StoredAt time.Time `json:"stored_at"`
}

// Store is the blob storage interface. Implementations must be safe
// for concurrent use.
type Store interface {
	// Put writes an object and returns its descriptor. The key is
	// derived from name; size may be -1 if unknown.
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (*ObjectInfo, error)

	// Open returns a reader for the object at key.
	// The caller must close the returned reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Remove deletes the object at key.
	Remove(ctx context.Context, key string) error
}
