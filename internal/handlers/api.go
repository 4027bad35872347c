package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type assetListResponse struct {
	Items           any    `json:"items"`
	Search          string `json:"search"`
	SearchSupported bool   `json:"searchSupported"`
}

func (h HandlerSet) ListAssets(c *gin.Context) {
	search := c.Query("search")
	if !h.catalog.SupportsSearch() {
		search = ""
	}

	c.JSON(http.StatusOK, assetListResponse{
		Items:           h.listEntries(c, search),
		Search:          search,
		SearchSupported: h.catalog.SupportsSearch(),
	})
}
