package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedSigner reuses signed links from redis. Links are signed for
// ttl + ttl/2 and cached for ttl/2, so every link handed out still has at
// least ttl to live. Any redis failure falls back to signing directly.
type CachedSigner struct {
	inner URLSigner
	cache redis.Cmdable
	log   zerolog.Logger
}

func NewCachedSigner(inner URLSigner, cache redis.Cmdable, log zerolog.Logger) *CachedSigner {
	return &CachedSigner{
		inner: inner,
		cache: cache,
		log:   log,
	}
}

func (s *CachedSigner) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	cacheKey := fmt.Sprintf("photoshelf:signed:%d:%s", int64(ttl/time.Second), key)

	cached, err := s.cache.Get(ctx, cacheKey).Result()
	switch {
	case err == nil && cached != "":
		return cached, nil
	case err != nil && !errors.Is(err, redis.Nil):
		s.log.Debug().Err(err).Str("key", key).Msg("signed url cache read failed")
	}

	cacheFor := ttl / 2
	signed, err := s.inner.Sign(ctx, key, ttl+cacheFor)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(ctx, cacheKey, signed, cacheFor).Err(); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("signed url cache write failed")
	}
	return signed, nil
}

// SignerStore overrides the Sign method of a BlobStore.
type SignerStore struct {
	BlobStore
	Signer URLSigner
}

func (s SignerStore) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.Signer.Sign(ctx, key, ttl)
}
