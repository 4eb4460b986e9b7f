package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"dubforge/storage"
)

// LocalStore keeps objects as files under a base directory. Keys are
// uuid-prefixed sanitized file names, so concurrent uploads of the
// same name never collide.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a filesystem-backed store rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("objectstore: create directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Put writes the object atomically via a temp file and rename.
func (s *LocalStore) Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (*ObjectInfo, error) {
	key := uuid.NewString() + "-" + sanitizeName(name)

	w, err := storage.NewAtomicWriter(filepath.Join(s.dir, key))
	if err != nil {
		return nil, fmt.Errorf("objectstore: put %s: %w", key, err)
	}

	n, err := io.Copy(w, r)
	if err != nil {
		w.Abort()
		return nil, fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	if err := w.Commit(); err != nil {
		return nil, fmt.Errorf("objectstore: put %s: %w", key, err)
	}

	return &ObjectInfo{
		Key:         key,
		Name:        name,
		Size:        n,
		ContentType: contentType,
		StoredAt:    time.Now().UTC(),
	}, nil
}

// Open returns a reader for the object at key.
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("objectstore: invalid key %q", key)
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("objectstore: open %s: %w", key, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("objectstore: open %s: %w", key, err)
	}
	return f, nil
}

// Remove deletes the object at key.
func (s *LocalStore) Remove(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("objectstore: invalid key %q", key)
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("objectstore: remove %s: %w", key, storage.ErrNotFound)
		}
		return fmt.Errorf("objectstore: remove %s: %w", key, err)
	}
	return nil
}

// sanitizeName strips path separators and control characters from an
// upload name so it is safe as a file name component.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		out = "upload"
	}
	return out
}

// validKey rejects keys that could escape the base directory.
func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, "/\\") && key != "." && key != ".."
}
