package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"photoshelf/internal/config"
	"photoshelf/internal/service"
	"photoshelf/internal/storage"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators built at startup. Files, DB and Cache
// are optional.
type Dependencies struct {
	Uploads *service.UploadService
	Catalog service.Catalog
	Files   *storage.DiskStore
	DB      Pinger
	Cache   redis.Cmdable
}

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	uploads *service.UploadService
	catalog service.Catalog
	files   *storage.DiskStore
	db      Pinger
	cache   redis.Cmdable
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Dependencies) HandlerSet {
	return HandlerSet{
		log:     log,
		cfg:     cfg,
		uploads: deps.Uploads,
		catalog: deps.Catalog,
		files:   deps.Files,
		db:      deps.DB,
		cache:   deps.Cache,
	}
}

func (h HandlerSet) Register(router gin.IRouter) {
	router.GET("/", h.Gallery)
	router.POST("/upload", h.Upload)
	router.GET("/healthz", h.Health)

	if h.files != nil {
		router.GET("/files/*key", h.ServeFile)
	}

	v1 := router.Group("/api/v1")
	v1.GET("/assets", h.ListAssets)
}
