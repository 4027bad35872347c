package service

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"photoshelf/internal/models"
	"photoshelf/internal/storage"
)

// Catalog assembles the gallery listing.
type Catalog interface {
	List(ctx context.Context, search string) ([]models.DisplayEntry, error)
	SupportsSearch() bool
}

type AssetQuerier interface {
	Query(ctx context.Context, search string) ([]models.Asset, error)
}

// RecordCatalog lists assets from the relational store and signs a link for
// each of them.
type RecordCatalog struct {
	assets AssetQuerier
	signer storage.URLSigner
	ttl    time.Duration
	log    zerolog.Logger
}

func NewRecordCatalog(assets AssetQuerier, signer storage.URLSigner, ttl time.Duration, log zerolog.Logger) *RecordCatalog {
	return &RecordCatalog{
		assets: assets,
		signer: signer,
		ttl:    ttl,
		log:    log,
	}
}

func (c *RecordCatalog) SupportsSearch() bool {
	return true
}

func (c *RecordCatalog) List(ctx context.Context, search string) ([]models.DisplayEntry, error) {
	assets, err := c.assets.Query(ctx, search)
	if err != nil {
		return nil, err
	}

	entries := make([]models.DisplayEntry, 0, len(assets))
	for _, asset := range assets {
		url, err := c.signer.Sign(ctx, asset.StorageKey, c.ttl)
		if err != nil {
			c.log.Warn().Err(err).Str("key", asset.StorageKey).Msg("sign asset url failed")
			continue
		}
		entries = append(entries, models.DisplayEntry{
			Filename:     asset.Filename,
			StorageKey:   asset.StorageKey,
			URL:          url,
			Photographer: asset.Photographer,
			Description:  asset.Description,
			UploadedAt:   asset.UploadedAt,
		})
	}
	sortNewestFirst(entries)
	return entries, nil
}

// MetadataCatalog lists objects straight from the blob store and reads the
// descriptive fields from each object's metadata. It has no search support;
// the term is ignored.
type MetadataCatalog struct {
	store  storage.BlobStore
	prefix string
	ttl    time.Duration
	log    zerolog.Logger
}

func NewMetadataCatalog(store storage.BlobStore, prefix string, ttl time.Duration, log zerolog.Logger) *MetadataCatalog {
	return &MetadataCatalog{
		store:  store,
		prefix: prefix,
		ttl:    ttl,
		log:    log,
	}
}

func (c *MetadataCatalog) SupportsSearch() bool {
	return false
}

func (c *MetadataCatalog) List(ctx context.Context, _ string) ([]models.DisplayEntry, error) {
	objects, err := c.store.List(ctx, c.prefix)
	if err != nil {
		return nil, err
	}

	entries := make([]models.DisplayEntry, 0, len(objects))
	for _, obj := range objects {
		raw, err := c.store.Head(ctx, obj.Key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			c.log.Warn().Err(err).Str("key", obj.Key).Msg("read object metadata failed")
			raw = nil
		}

		attrs, err := storage.DecodeAttributes(raw)
		if err != nil {
			c.log.Warn().Err(err).Str("key", obj.Key).Msg("object metadata not decodable")
		}

		url, err := c.store.Sign(ctx, obj.Key, c.ttl)
		if err != nil {
			c.log.Warn().Err(err).Str("key", obj.Key).Msg("sign object url failed")
			continue
		}

		filename := attrs.Filename
		if filename == "" {
			filename = FilenameFromKey(obj.Key)
		}

		entries = append(entries, models.DisplayEntry{
			Filename:     filename,
			StorageKey:   obj.Key,
			URL:          url,
			Photographer: attrs.Photographer,
			Description:  attrs.Description,
			UploadedAt:   obj.LastModified,
		})
	}
	sortNewestFirst(entries)
	return entries, nil
}

var keyStampPattern = regexp.MustCompile(`^\d{14}_`)

// FilenameFromKey returns the last key segment without the upload stamp.
func FilenameFromKey(key string) string {
	name := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		name = key[idx+1:]
	}
	if stripped := keyStampPattern.ReplaceAllString(name, ""); stripped != "" {
		return stripped
	}
	return name
}

func sortNewestFirst(entries []models.DisplayEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].UploadedAt.Equal(entries[j].UploadedAt) {
			return entries[i].UploadedAt.After(entries[j].UploadedAt)
		}
		return entries[i].StorageKey > entries[j].StorageKey
	})
}
