package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"photoshelf/internal/security"
)

var (
	ErrInvalidKey   = errors.New("invalid object key")
	ErrLinkExpired  = errors.New("signed link expired")
	ErrBadSignature = errors.New("signed link signature mismatch")
)

const (
	diskObjectsDir = "objects"
	diskMetaDir    = "meta"
)

type diskMeta struct {
	ContentType string            `json:"contentType"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// DiskStore keeps objects in a local directory and hands out HMAC-signed
// links that the HTTP server verifies before streaming the file. Object
// bytes live under objects/ and their attributes under meta/ so that any
// user-chosen filename is representable.
type DiskStore struct {
	root    string
	baseURL string
	secret  string
	now     func() time.Time
}

func NewDiskStore(root, baseURL, secret string) (*DiskStore, error) {
	if secret == "" {
		return nil, errors.New("disk store requires a signing secret")
	}
	for _, dir := range []string{diskObjectsDir, diskMetaDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", dir, err)
		}
	}
	return &DiskStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		now:     time.Now,
	}, nil
}

func (s *DiskStore) objectPath(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return "", ErrInvalidKey
	}
	if path.Clean(key) != key {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	return filepath.Join(s.root, diskObjectsDir, filepath.FromSlash(key)), nil
}

func (s *DiskStore) metaPath(key string) string {
	return filepath.Join(s.root, diskMetaDir, filepath.FromSlash(key)+".json")
}

func (s *DiskStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, attrs map[string]string) error {
	dst, err := s.objectPath(key)
	if err != nil {
		return wrapErr("put", key, err)
	}
	if err := writeAtomic(dst, r); err != nil {
		return wrapErr("put", key, err)
	}

	meta, err := json.Marshal(diskMeta{ContentType: contentType, Attributes: attrs})
	if err != nil {
		return wrapErr("put", key, err)
	}
	if err := writeAtomic(s.metaPath(key), strings.NewReader(string(meta))); err != nil {
		return wrapErr("put", key, err)
	}
	return nil
}

func writeAtomic(dst string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (s *DiskStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	base := filepath.Join(s.root, diskObjectsDir)

	var objects []ObjectInfo
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) || key == prefix {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, wrapErr("list", prefix, err)
	}
	return objects, nil
}

func (s *DiskStore) readMeta(key string) (diskMeta, error) {
	if _, err := s.objectPath(key); err != nil {
		return diskMeta{}, err
	}
	raw, err := os.ReadFile(s.metaPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return diskMeta{}, ErrNotFound
		}
		return diskMeta{}, err
	}
	var meta diskMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return diskMeta{}, err
	}
	return meta, nil
}

func (s *DiskStore) Head(ctx context.Context, key string) (map[string]string, error) {
	meta, err := s.readMeta(key)
	if err != nil {
		return nil, wrapErr("head", key, err)
	}
	attrs := make(map[string]string, len(meta.Attributes))
	for k, v := range meta.Attributes {
		attrs[strings.ToLower(k)] = v
	}
	return attrs, nil
}

// Sign returns <baseURL>/files/<key>?expires=<unix>&sig=<hmac>.
func (s *DiskStore) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := s.objectPath(key); err != nil {
		return "", wrapErr("sign", key, err)
	}
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	expires := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)
	sig := security.SignResource(s.secret, key, expires)

	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	query := url.Values{}
	query.Set("expires", expires)
	query.Set("sig", string(sig))

	return fmt.Sprintf("%s/files/%s?%s", s.baseURL, strings.Join(segments, "/"), query.Encode()), nil
}

// Verify checks a link produced by Sign. Links are rejected once the
// expiry has passed or when the signature does not match.
func (s *DiskStore) Verify(key, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if !security.VerifyResource(s.secret, sig, key, expires) {
		return ErrBadSignature
	}
	if s.now().Unix() >= exp {
		return ErrLinkExpired
	}
	return nil
}

// Open returns the object content and its stored content type.
func (s *DiskStore) Open(key string) (*os.File, string, error) {
	p, err := s.objectPath(key)
	if err != nil {
		return nil, "", wrapErr("open", key, err)
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", wrapErr("open", key, ErrNotFound)
		}
		return nil, "", wrapErr("open", key, err)
	}
	meta, err := s.readMeta(key)
	if err != nil {
		meta = diskMeta{}
	}
	return f, meta.ContentType, nil
}
