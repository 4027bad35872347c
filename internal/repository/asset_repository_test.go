package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoshelf/internal/config"
	"photoshelf/internal/database"
	"photoshelf/internal/models"
	"photoshelf/internal/repository"
)

func newTestRepository(t *testing.T) (*repository.AssetRepository, *database.DB) {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver: config.DatabaseDriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "assets.db"),
	}
	require.NoError(t, database.Migrate(cfg))

	db, err := database.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return repository.NewAssetRepository(db), db
}

func seed(t *testing.T, repo *repository.AssetRepository, assets ...models.Asset) {
	t.Helper()
	for _, a := range assets {
		_, err := repo.Insert(context.Background(), a)
		require.NoError(t, err)
	}
}

func fixtures() []models.Asset {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []models.Asset{
		{Filename: "beach.jpg", StorageKey: "uploads/20240301100000_beach.jpg", Photographer: "Ana", Description: "sunset", UploadedAt: base},
		{Filename: "city.jpg", StorageKey: "uploads/20240301110000_city.jpg", Photographer: "Bo", Description: "Sunset over towers", UploadedAt: base.Add(time.Hour)},
		{Filename: "dog.png", StorageKey: "uploads/20240301090000_dog.png", Photographer: "Sunny", Description: "good boy", UploadedAt: base.Add(-time.Hour)},
		{Filename: "pct.png", StorageKey: "uploads/20240301080000_pct.png", Photographer: "Anonymous", Description: "100%_done", UploadedAt: base.Add(-2 * time.Hour)},
	}
}

func TestInsertAssignsID(t *testing.T) {
	repo, _ := newTestRepository(t)

	id, err := repo.Insert(context.Background(), models.Asset{
		Filename:   "beach.jpg",
		StorageKey: "uploads/20240301100000_beach.jpg",
	})
	require.NoError(t, err)
	assert.Len(t, id, 27)

	assets, err := repo.Query(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, id, assets[0].ID)
	assert.False(t, assets[0].UploadedAt.IsZero())
}

func TestQueryEmptyReturnsAllNewestFirst(t *testing.T) {
	repo, _ := newTestRepository(t)
	seed(t, repo, fixtures()...)

	assets, err := repo.Query(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, assets, 4)

	names := make([]string, 0, len(assets))
	for i, a := range assets {
		names = append(names, a.Filename)
		if i > 0 {
			assert.False(t, a.UploadedAt.After(assets[i-1].UploadedAt), "results must be non-increasing by upload time")
		}
	}
	assert.Equal(t, []string{"city.jpg", "beach.jpg", "dog.png", "pct.png"}, names)
}

func TestQuerySearchIsCaseSensitiveSubstringOnEitherField(t *testing.T) {
	repo, _ := newTestRepository(t)
	seed(t, repo, fixtures()...)

	cases := map[string][]string{
		"sunset": {"beach.jpg"},
		"Sunset": {"city.jpg"},
		"Sun":    {"city.jpg", "dog.png"},
		"Ana":    {"beach.jpg"},
		"o":      {"city.jpg", "dog.png", "pct.png"},
		"%_":     {"pct.png"},
		"_":      {"pct.png"},
		"zebra":  {},
	}
	for term, want := range cases {
		t.Run(term, func(t *testing.T) {
			assets, err := repo.Query(context.Background(), term)
			require.NoError(t, err)
			got := make([]string, 0, len(assets))
			for _, a := range assets {
				got = append(got, a.Filename)
				matches := containsEither(a, term)
				assert.True(t, matches, "%s does not contain %q", a.Filename, term)
			}
			assert.Equal(t, want, got)
		})
	}
}

func containsEither(a models.Asset, term string) bool {
	return strings.Contains(a.Description, term) || strings.Contains(a.Photographer, term)
}

func TestQueryRoundTripsFields(t *testing.T) {
	repo, _ := newTestRepository(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC)
	seed(t, repo, models.Asset{
		ID:           "2d7PVyS9Yl4uZcMkZ4NvUPiwjwx",
		Filename:     "海灘.jpg",
		StorageKey:   "uploads/20240301100000_海灘.jpg",
		Photographer: "王小明",
		Description:  "夕陽",
		ContentType:  "image/jpeg",
		SizeBytes:    2048,
		UploadedAt:   at,
	})

	assets, err := repo.Query(context.Background(), "夕")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	a := assets[0]
	assert.Equal(t, "2d7PVyS9Yl4uZcMkZ4NvUPiwjwx", a.ID)
	assert.Equal(t, "海灘.jpg", a.Filename)
	assert.Equal(t, "uploads/20240301100000_海灘.jpg", a.StorageKey)
	assert.Equal(t, "王小明", a.Photographer)
	assert.Equal(t, "image/jpeg", a.ContentType)
	assert.Equal(t, int64(2048), a.SizeBytes)
	assert.True(t, at.Equal(a.UploadedAt))
}

func TestInsertDuplicateIDIsPersistenceError(t *testing.T) {
	repo, _ := newTestRepository(t)
	a := models.Asset{ID: "dup", Filename: "a.jpg", StorageKey: "uploads/a.jpg"}
	seed(t, repo, a)

	_, err := repo.Insert(context.Background(), a)
	require.Error(t, err)
	var perr *repository.PersistenceError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, "insert", perr.Op)
}

func TestQueryOnClosedDatabaseFails(t *testing.T) {
	repo, db := newTestRepository(t)
	require.NoError(t, db.Close())

	_, err := repo.Query(context.Background(), "")
	var perr *repository.PersistenceError
	assert.True(t, errors.As(err, &perr))
}

func TestStorageKeys(t *testing.T) {
	repo, _ := newTestRepository(t)
	seed(t, repo, fixtures()...)

	keys, err := repo.StorageKeys(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"uploads/20240301100000_beach.jpg",
		"uploads/20240301110000_city.jpg",
		"uploads/20240301090000_dog.png",
		"uploads/20240301080000_pct.png",
	}, keys)
}
