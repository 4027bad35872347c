package storage_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoshelf/internal/storage"
	"photoshelf/internal/storage/storagetest"
)

type countingSigner struct {
	calls int
	err   error
}

func (s *countingSigner) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "https://signed.test/" + key, nil
}

// unreachableRedis points at a closed port so every command fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCachedSignerFallsBackWhenRedisDown(t *testing.T) {
	inner := &countingSigner{}
	signer := storage.NewCachedSigner(inner, unreachableRedis(t), zerolog.Nop())

	url, err := signer.Sign(context.Background(), "uploads/a.jpg", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.test/uploads/a.jpg", url)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedSignerPropagatesSignError(t *testing.T) {
	inner := &countingSigner{err: errors.New("no credentials")}
	signer := storage.NewCachedSigner(inner, unreachableRedis(t), zerolog.Nop())

	_, err := signer.Sign(context.Background(), "uploads/a.jpg", time.Hour)
	assert.Error(t, err)
}

func TestSignerStoreOverridesSign(t *testing.T) {
	mem := storagetest.NewMemoryStore()
	inner := &countingSigner{}
	store := storage.SignerStore{BlobStore: mem, Signer: inner}

	url, err := store.Sign(context.Background(), "uploads/a.jpg", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.test/uploads/a.jpg", url)
	assert.Equal(t, 1, inner.calls)

	// Other operations still reach the wrapped store.
	objects, err := store.List(context.Background(), "uploads/")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

// clockSigner embeds its absolute expiry in the link, like a presigned URL.
type clockSigner struct {
	now   time.Time
	calls int
	ttls  []time.Duration
}

func (s *clockSigner) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.calls++
	s.ttls = append(s.ttls, ttl)
	return fmt.Sprintf("https://signed.test/%s?expires=%d&n=%d", key, s.now.Add(ttl).Unix(), s.calls), nil
}

func linkExpiry(t *testing.T, link string) time.Time {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	sec, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	return time.Unix(sec, 0)
}

func TestCachedSignerReusesLinkWithinHalfLife(t *testing.T) {
	client, server := storagetest.NewRedis(t)
	inner := &clockSigner{now: time.Unix(1700000000, 0)}
	signer := storage.NewCachedSigner(inner, client, zerolog.Nop())
	ctx := context.Background()

	first, err := signer.Sign(ctx, "uploads/a.jpg", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{90 * time.Minute}, inner.ttls)

	cacheKey := "photoshelf:signed:3600:uploads/a.jpg"
	assert.True(t, server.Exists(cacheKey))
	assert.Equal(t, 30*time.Minute, server.TTL(cacheKey))

	inner.now = inner.now.Add(29 * time.Minute)
	server.FastForward(29 * time.Minute)

	second, err := signer.Sign(ctx, "uploads/a.jpg", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.GreaterOrEqual(t, linkExpiry(t, second).Sub(inner.now), time.Hour)

	inner.now = inner.now.Add(2 * time.Minute)
	server.FastForward(2 * time.Minute)

	third, err := signer.Sign(ctx, "uploads/a.jpg", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedSignerLinksAlwaysCoverRequestedTTL(t *testing.T) {
	client, server := storagetest.NewRedis(t)
	inner := &clockSigner{now: time.Unix(1700000000, 0)}
	signer := storage.NewCachedSigner(inner, client, zerolog.Nop())

	for minute := 0; minute <= 180; minute++ {
		link, err := signer.Sign(context.Background(), "uploads/a.jpg", time.Hour)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, linkExpiry(t, link).Sub(inner.now), time.Hour, "minute %d", minute)

		inner.now = inner.now.Add(time.Minute)
		server.FastForward(time.Minute)
	}
	assert.Less(t, inner.calls, 10)
}

func TestCachedSignerKeysByTTL(t *testing.T) {
	client, server := storagetest.NewRedis(t)
	inner := &clockSigner{now: time.Unix(1700000000, 0)}
	signer := storage.NewCachedSigner(inner, client, zerolog.Nop())
	ctx := context.Background()

	hour, err := signer.Sign(ctx, "uploads/a.jpg", time.Hour)
	require.NoError(t, err)
	short, err := signer.Sign(ctx, "uploads/a.jpg", 10*time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, hour, short)
	assert.Equal(t, 2, inner.calls)
	assert.True(t, server.Exists("photoshelf:signed:600:uploads/a.jpg"))

	// Zero asks for the default lifetime.
	def, err := signer.Sign(ctx, "uploads/a.jpg", 0)
	require.NoError(t, err)
	assert.Equal(t, hour, def)
	assert.Equal(t, 2, inner.calls)
}
