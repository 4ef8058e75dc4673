package handlers

import (
	"net/http"

	"dropnest_backend/internal/middleware"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type LinkHandler struct {
	*BaseHandler
	links services.LinkService
	perms services.PermissionService
}

func NewLinkHandler(base *BaseHandler, links services.LinkService, perms services.PermissionService) *LinkHandler {
	return &LinkHandler{
		BaseHandler: base,
		links:       links,
		perms:       perms,
	}
}

func (h *LinkHandler) RegisterRoutes(r *gin.RouterGroup) {
	links := r.Group("/links")
	links.Use(middleware.AuthMiddleware())
	{
		links.POST("", h.CreateLink)
		links.GET("", h.ListLinks)
		links.GET("/:linkId", h.GetLink)
		links.PATCH("/:linkId", h.UpdateLink)
		links.DELETE("/:linkId", h.DeleteLink)
		links.GET("/:linkId/batches", h.ListBatches)
		links.GET("/:linkId/permissions", h.ListPermissions)
		links.POST("/:linkId/permissions/promote", h.PromoteUploader)
	}
}

func (h *LinkHandler) CreateLink(c *gin.Context) {
	account, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	var req models.CreateLinkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	link, err := h.links.CreateLink(account, workspace.ID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (h *LinkHandler) ListLinks(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	links, err := h.links.ListLinks(workspace.ID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

func (h *LinkHandler) GetLink(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	link, err := h.links.GetLink(workspace.ID, c.Param("linkId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *LinkHandler) UpdateLink(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	var req models.UpdateLinkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	link, err := h.links.UpdateLink(workspace.ID, c.Param("linkId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// DeleteLink removes the sharing surface; collected content stays in the
// workspace.
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	if err := h.links.DeleteLink(workspace.ID, c.Param("linkId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LinkHandler) ListBatches(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	batches, err := h.links.ListBatches(workspace.ID, c.Param("linkId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

func (h *LinkHandler) ListPermissions(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	perms, err := h.links.ListPermissions(workspace.ID, c.Param("linkId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

func (h *LinkHandler) PromoteUploader(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	var req models.PromoteUploaderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	perm, err := h.perms.PromoteUploader(workspace.ID, c.Param("linkId"), req.Email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, perm)
}
