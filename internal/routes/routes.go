package routes

import (
	"net/http"

	"dropnest_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Account *handlers.AccountHandler
	Folder  *handlers.FolderHandler
	Link    *handlers.LinkHandler
	Upload  *handlers.UploadHandler
}

// RegisterRoutes mounts the API under /api/v1 and the public ingestion
// surface at the root.
func RegisterRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	h.Account.RegisterRoutes(api)
	h.Folder.RegisterRoutes(api)
	h.Link.RegisterRoutes(api)

	// Public ingestion lives outside /api/v1: the URLs are shared with
	// people, not programs.
	public := r.Group("")
	h.Upload.RegisterRoutes(public)
}
