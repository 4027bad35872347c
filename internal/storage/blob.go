package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// DefaultURLTTL is how long a signed download link stays valid.
const DefaultURLTTL = time.Hour

var ErrNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// URLSigner issues expiring download links for stored objects.
type URLSigner interface {
	Sign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// BlobStore is the object store contract used by the upload and listing paths.
//
// Put silently replaces an existing object under the same key. List never
// returns an entry whose key equals the prefix itself and makes no ordering
// promise. Head returns the attributes attached at Put time with lower-cased
// keys.
type BlobStore interface {
	URLSigner
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, attrs map[string]string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Head(ctx context.Context, key string) (map[string]string, error)
}

// StorageError wraps any failure reported by an object store backend.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func wrapErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Key: key, Err: err}
}
