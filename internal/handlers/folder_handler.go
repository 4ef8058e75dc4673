package handlers

import (
	"net/http"

	"dropnest_backend/internal/middleware"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type FolderHandler struct {
	*BaseHandler
	folders services.FolderService
	uploads services.UploadService
}

func NewFolderHandler(base *BaseHandler, folders services.FolderService, uploads services.UploadService) *FolderHandler {
	return &FolderHandler{
		BaseHandler: base,
		folders:     folders,
		uploads:     uploads,
	}
}

func (h *FolderHandler) RegisterRoutes(r *gin.RouterGroup) {
	folders := r.Group("/folders")
	folders.Use(middleware.AuthMiddleware())
	{
		folders.POST("", h.CreateFolder)
		folders.GET("", h.ListRoot)
		folders.GET("/resolve", h.ResolvePath)
		folders.GET("/:folderId", h.GetFolder)
		folders.GET("/:folderId/children", h.ListChildren)
		folders.GET("/:folderId/files", h.ListFiles)
		folders.POST("/:folderId/files", h.UploadFile)
		folders.POST("/:folderId/move", h.MoveFolder)
		folders.POST("/:folderId/rename", h.RenameFolder)
		folders.DELETE("/:folderId", h.DeleteFolder)
	}

	files := r.Group("/files")
	files.Use(middleware.AuthMiddleware())
	{
		files.GET("/:fileId/download", h.DownloadFile)
		files.DELETE("/:fileId", h.DeleteFile)
	}
}

func (h *FolderHandler) CreateFolder(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	var req models.CreateFolderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	folder, err := h.folders.CreateFolder(workspace.ID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, folder)
}

func (h *FolderHandler) ListRoot(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	folders, err := h.folders.ListChildren(workspace.ID, nil)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

// ResolvePath looks a folder up by its materialized path (?path=/a/b).
func (h *FolderHandler) ResolvePath(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	folder, err := h.folders.ResolvePath(workspace.ID, c.Query("path"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

func (h *FolderHandler) GetFolder(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	folder, err := h.folders.GetFolder(workspace.ID, c.Param("folderId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

func (h *FolderHandler) ListChildren(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	folderID := c.Param("folderId")
	folders, err := h.folders.ListChildren(workspace.ID, &folderID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

func (h *FolderHandler) ListFiles(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	files, err := h.folders.ListFiles(workspace.ID, c.Param("folderId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// UploadFile stores owner content directly into a folder.
func (h *FolderHandler) UploadFile(c *gin.Context) {
	account, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	upload, ok := bindFileUpload(c)
	if !ok {
		return
	}
	defer upload.close()

	file, err := h.uploads.StoreOwnerFile(c.Request.Context(), account, workspace.ID, c.Param("folderId"), upload.FileUpload)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func (h *FolderHandler) MoveFolder(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	var req models.MoveFolderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	folder, err := h.folders.MoveFolder(workspace.ID, c.Param("folderId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

func (h *FolderHandler) RenameFolder(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	var req models.RenameFolderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	folder, err := h.folders.RenameFolder(workspace.ID, c.Param("folderId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

func (h *FolderHandler) DeleteFolder(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	if err := h.folders.DeleteFolder(workspace.ID, c.Param("folderId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FolderHandler) DownloadFile(c *gin.Context) {
	_, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	url, err := h.uploads.FileDownloadURL(c.Request.Context(), workspace.ID, c.Param("fileId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *FolderHandler) DeleteFile(c *gin.Context) {
	account, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	if err := h.uploads.DeleteFile(c.Request.Context(), workspace.ID, account.ID, c.Param("fileId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
