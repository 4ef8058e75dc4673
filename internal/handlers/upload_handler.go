package handlers

import (
	"net/http"

	"dropnest_backend/internal/middleware"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// UploadHandler serves the public, unauthenticated ingestion surface under
// /u/:slug/:topic. Uploaders identify themselves by email only; link
// visibility decides whether that is enough.
type UploadHandler struct {
	*BaseHandler
	uploads services.UploadService
	perms   services.PermissionService
	limiter *middleware.FixedWindowLimiter
}

func NewUploadHandler(
	base *BaseHandler,
	uploads services.UploadService,
	perms services.PermissionService,
	limiter *middleware.FixedWindowLimiter,
) *UploadHandler {
	return &UploadHandler{
		BaseHandler: base,
		uploads:     uploads,
		perms:       perms,
		limiter:     limiter,
	}
}

func (h *UploadHandler) RegisterRoutes(r *gin.RouterGroup) {
	public := r.Group("/u/:slug/:topic")
	if h.limiter != nil {
		public.Use(middleware.UploadRateLimit(h.limiter))
	}
	{
		public.GET("", h.GetLinkInfo)
		public.POST("/batches", h.OpenBatch)
		public.POST("/batches/:batchId/files", h.UploadFile)
		public.POST("/batches/:batchId/complete", h.CompleteBatch)
		public.POST("/batches/:batchId/fail", h.FailBatch)
		public.POST("/verify/request", h.RequestVerification)
		public.POST("/verify/confirm", h.ConfirmVerification)
	}
}

// GetLinkInfo exposes what an uploader needs before sending anything: title,
// limits, and whether the link still accepts uploads.
func (h *UploadHandler) GetLinkInfo(c *gin.Context) {
	link, _, err := h.uploads.ResolveLink(c.Param("slug"), c.Param("topic"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":         link.Title,
		"is_active":     link.IsActive,
		"expires_at":    link.ExpiresAt,
		"max_file_size": link.MaxFileSize,
		"remaining":     link.Remaining(),
		"visibility":    link.Visibility,
	})
}

func (h *UploadHandler) OpenBatch(c *gin.Context) {
	var req models.OpenBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := h.uploads.OpenBatch(c.Param("slug"), c.Param("topic"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

func (h *UploadHandler) UploadFile(c *gin.Context) {
	upload, ok := bindFileUpload(c)
	if !ok {
		return
	}
	defer upload.close()

	file, err := h.uploads.IngestFile(
		c.Request.Context(),
		c.Param("slug"),
		c.Param("topic"),
		c.Param("batchId"),
		upload.FileUpload,
	)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func (h *UploadHandler) CompleteBatch(c *gin.Context) {
	batch, err := h.uploads.CompleteBatch(c.Param("slug"), c.Param("topic"), c.Param("batchId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *UploadHandler) FailBatch(c *gin.Context) {
	batch, err := h.uploads.FailBatch(c.Param("slug"), c.Param("topic"), c.Param("batchId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *UploadHandler) RequestVerification(c *gin.Context) {
	var req models.RequestVerificationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	err := h.perms.RequestVerification(c.Request.Context(), c.Param("slug"), c.Param("topic"), req.Email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Verification code sent"})
}

func (h *UploadHandler) ConfirmVerification(c *gin.Context) {
	var req models.ConfirmVerificationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	perm, err := h.perms.ConfirmVerification(
		c.Request.Context(),
		c.Param("slug"),
		c.Param("topic"),
		req.Email,
		req.Code,
	)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, perm)
}
