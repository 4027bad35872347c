// Package storagetest provides an in-memory BlobStore for tests.
package storagetest

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"photoshelf/internal/storage"
)

type Object struct {
	Data         []byte
	ContentType  string
	Attributes   map[string]string
	LastModified time.Time
}

// MemoryStore is a BlobStore kept in a map. The Fail* fields inject errors
// for the matching operation.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]Object
	Now     func() time.Time

	FailPut  error
	FailList error
	FailHead map[string]error
	FailSign map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:  make(map[string]Object),
		Now:      time.Now,
		FailHead: make(map[string]error),
		FailSign: make(map[string]error),
	}
}

func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, attrs map[string]string) error {
	if m.FailPut != nil {
		return &storage.StorageError{Op: "put", Key: key, Err: m.FailPut}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return &storage.StorageError{Op: "put", Key: key, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[strings.ToLower(k)] = v
	}
	m.objects[key] = Object{
		Data:         data,
		ContentType:  contentType,
		Attributes:   copied,
		LastModified: m.Now().UTC(),
	}
	return nil
}

// Seed stores an object directly, bypassing Put.
func (m *MemoryStore) Seed(key string, obj Object) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = obj
}

func (m *MemoryStore) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	if m.FailList != nil {
		return nil, &storage.StorageError{Op: "list", Key: prefix, Err: m.FailList}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []storage.ObjectInfo
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) || key == prefix {
			continue
		}
		out = append(out, storage.ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.Data)),
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}

func (m *MemoryStore) Head(ctx context.Context, key string) (map[string]string, error) {
	if err := m.FailHead[key]; err != nil {
		return nil, &storage.StorageError{Op: "head", Key: key, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, &storage.StorageError{Op: "head", Key: key, Err: storage.ErrNotFound}
	}
	out := make(map[string]string, len(obj.Attributes))
	for k, v := range obj.Attributes {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := m.FailSign[key]; err != nil {
		return "", &storage.StorageError{Op: "sign", Key: key, Err: err}
	}
	expires := m.Now().Add(ttl).Unix()
	return fmt.Sprintf("https://blobs.test/%s?expires=%d", url.PathEscape(key), expires), nil
}

// Get returns a stored object and whether it exists.
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
