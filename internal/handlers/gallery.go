package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"photoshelf/internal/media/sniffer"
	"photoshelf/internal/models"
	"photoshelf/internal/repository"
	"photoshelf/internal/service"
	"photoshelf/internal/storage"
)

func (h HandlerSet) Gallery(c *gin.Context) {
	search := c.Query("search")
	if !h.catalog.SupportsSearch() {
		search = ""
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"assets":        h.listEntries(c, search),
		"search":        search,
		"searchEnabled": h.catalog.SupportsSearch(),
	})
}

// listEntries never fails the request: a listing error renders as an empty
// gallery.
func (h HandlerSet) listEntries(c *gin.Context, search string) []models.DisplayEntry {
	entries, err := h.catalog.List(c.Request.Context(), search)
	if err != nil {
		h.log.Error().Err(err).Str("search", search).Msg("list assets failed")
		return []models.DisplayEntry{}
	}
	return entries
}

// Upload always redirects back to the gallery. Failures are logged and
// otherwise ignored.
func (h HandlerSet) Upload(c *gin.Context) {
	if h.cfg.HTTP.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.HTTP.MaxUploadBytes)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			h.log.Warn().Err(err).Msg("read upload form failed")
		}
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	defer file.Close()

	result, err := h.uploads.Upload(c.Request.Context(), service.UploadInput{
		File:         file,
		Filename:     header.Filename,
		ContentType:  sniffer.MimeTypeFromHTTP(http.Header(header.Header)),
		Size:         header.Size,
		Photographer: c.PostForm("photographer"),
		Description:  c.PostForm("description"),
	})
	h.logUpload(header.Filename, result, err)

	c.Redirect(http.StatusSeeOther, "/")
}

func (h HandlerSet) logUpload(filename string, result service.UploadResult, err error) {
	var (
		storageErr     *storage.StorageError
		persistenceErr *repository.PersistenceError
	)
	switch {
	case err == nil && !result.Uploaded:
		h.log.Debug().Str("filename", filename).Msg("upload skipped: no file")
	case err == nil:
		h.log.Info().
			Str("filename", filename).
			Str("key", result.StorageKey).
			Str("asset_id", result.AssetID).
			Msg("upload stored")
	case errors.As(err, &persistenceErr):
		h.log.Error().Err(err).
			Str("filename", filename).
			Str("key", result.StorageKey).
			Msg("upload stored but record write failed")
	case errors.As(err, &storageErr):
		h.log.Error().Err(err).Str("filename", filename).Msg("upload to object store failed")
	default:
		h.log.Error().Err(err).Str("filename", filename).Msg("upload failed")
	}
}
