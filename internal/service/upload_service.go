package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"photoshelf/internal/media/sniffer"
	"photoshelf/internal/models"
	"photoshelf/internal/storage"
)

// KeyTimeLayout is the YYYYMMDDHHMMSS stamp embedded in every storage key.
const KeyTimeLayout = "20060102150405"

const fallbackContentType = "application/octet-stream"

// AssetWriter persists asset records. It is nil when assets are described
// by object metadata only.
type AssetWriter interface {
	Insert(ctx context.Context, asset models.Asset) (string, error)
}

type UploadInput struct {
	File         io.Reader
	Filename     string
	ContentType  string
	Size         int64
	Photographer string
	Description  string
}

type UploadResult struct {
	Uploaded   bool
	StorageKey string
	AssetID    string
}

type UploadService struct {
	store  storage.BlobStore
	assets AssetWriter
	prefix string
	now    func() time.Time
}

func NewUploadService(store storage.BlobStore, assets AssetWriter, prefix string) *UploadService {
	return &UploadService{
		store:  store,
		assets: assets,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock replaces the time source used to stamp storage keys.
func (s *UploadService) WithClock(now func() time.Time) *UploadService {
	s.now = now
	return s
}

// StorageKey builds <prefix><YYYYMMDDHHMMSS>_<filename>. Two uploads of the
// same name within one second map to the same key.
func StorageKey(prefix string, at time.Time, filename string) string {
	return prefix + at.UTC().Format(KeyTimeLayout) + "_" + filename
}

// Upload stores the file and, when a record store is configured, its asset
// row. A missing file or empty filename is a no-op. When the blob write
// succeeds but the record write fails the blob stays in place and the
// result still carries its key alongside the error.
func (s *UploadService) Upload(ctx context.Context, input UploadInput) (UploadResult, error) {
	filename := baseName(input.Filename)
	if input.File == nil || filename == "" {
		return UploadResult{}, nil
	}

	photographer := input.Photographer
	if photographer == "" {
		photographer = models.DefaultPhotographer
	}

	body, contentType, err := resolveContentType(input.File, input.ContentType)
	if err != nil {
		return UploadResult{}, err
	}

	uploadedAt := s.now().UTC()
	key := StorageKey(s.prefix, uploadedAt, filename)

	var attrs map[string]string
	if s.assets == nil {
		attrs = storage.EncodeAttributes(models.BlobAttributes{
			Filename:     filename,
			Photographer: photographer,
			Description:  input.Description,
		})
	}

	size := input.Size
	if size <= 0 {
		size = -1
	}
	if err := s.store.Put(ctx, key, body, size, contentType, attrs); err != nil {
		return UploadResult{}, err
	}

	result := UploadResult{Uploaded: true, StorageKey: key}
	if s.assets == nil {
		return result, nil
	}

	id, err := s.assets.Insert(ctx, models.Asset{
		Filename:     filename,
		StorageKey:   key,
		Photographer: photographer,
		Description:  input.Description,
		ContentType:  contentType,
		SizeBytes:    input.Size,
		UploadedAt:   uploadedAt,
	})
	if err != nil {
		return result, err
	}
	result.AssetID = id
	return result, nil
}

// baseName drops any directory part a client may send with the file name.
func baseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.TrimSpace(name)
}

// resolveContentType trusts the declared type unless it is missing or
// generic, in which case the leading bytes are sniffed. The returned reader
// yields the complete original content.
func resolveContentType(r io.Reader, declared string) (io.Reader, string, error) {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != fallbackContentType {
		return r, declared, nil
	}

	mime, head, err := sniffer.Detect(r)
	body := io.MultiReader(bytes.NewReader(head), r)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnknownType) {
			return body, fallbackContentType, nil
		}
		return nil, "", err
	}
	return body, mime, nil
}
