package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"photoshelf/internal/cache"
	"photoshelf/internal/config"
	"photoshelf/internal/database"
	"photoshelf/internal/handlers"
	"photoshelf/internal/jobs"
	"photoshelf/internal/repository"
	"photoshelf/internal/service"
	"photoshelf/internal/storage"
)

// app owns the long-lived clients built from configuration at startup.
type app struct {
	cfg    *config.AppConfig
	log    zerolog.Logger
	store  storage.BlobStore
	files  *storage.DiskStore
	db     *database.DB
	assets *repository.AssetRepository
	redis  *redis.Client
}

func newApp(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: logger}

	switch cfg.Storage.Driver {
	case config.StorageDriverDisk:
		files, err := storage.NewDiskStore(cfg.Storage.DiskRoot, cfg.HTTP.PublicBaseURL, cfg.Storage.SigningSecret)
		if err != nil {
			return nil, fmt.Errorf("init disk store: %w", err)
		}
		a.store, a.files = files, files
	default:
		objects, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure bucket failed")
		}
		a.store = objects
	}

	if cfg.RecordsMode() {
		if err := database.Migrate(cfg.Database); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = db
		a.assets = repository.NewAssetRepository(db)
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, signed urls will not be cached")
	}
	a.redis = redisClient

	return a, nil
}

func (a *app) Dependencies() handlers.Dependencies {
	ttl := a.cfg.Storage.URLTTL
	prefix := a.cfg.Storage.Prefix

	listStore := a.store
	var cacheClient redis.Cmdable
	if a.redis != nil {
		cacheClient = a.redis
		listStore = storage.SignerStore{
			BlobStore: a.store,
			Signer:    storage.NewCachedSigner(a.store, a.redis, a.log),
		}
	}

	deps := handlers.Dependencies{
		Files: a.files,
		Cache: cacheClient,
	}

	if a.assets != nil {
		deps.Uploads = service.NewUploadService(a.store, a.assets, prefix)
		deps.Catalog = service.NewRecordCatalog(a.assets, listStore, ttl, a.log)
		deps.DB = a.assets
	} else {
		deps.Uploads = service.NewUploadService(a.store, nil, prefix)
		deps.Catalog = service.NewMetadataCatalog(listStore, prefix, ttl, a.log)
	}
	return deps
}

func (a *app) Scheduler() *jobs.Scheduler {
	var keys jobs.KeyLister
	if a.assets != nil {
		keys = a.assets
	}
	return jobs.NewScheduler(a.store, keys, a.cfg.Storage.Prefix, a.cfg.Jobs.InventorySchedule, a.log)
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error().Err(err).Msg("database close error")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error().Err(err).Msg("redis close error")
		}
	}
}
