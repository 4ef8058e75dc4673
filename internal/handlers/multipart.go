package handlers

import (
	"mime/multipart"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// boundUpload wraps the multipart stream so callers can release it once the
// service is done reading.
type boundUpload struct {
	*services.FileUpload
	src multipart.File
}

func (b *boundUpload) close() {
	if b.src != nil {
		b.src.Close()
	}
}

// bindFileUpload extracts the "file" part of a multipart request. On failure
// the error response is already written.
func bindFileUpload(c *gin.Context) (*boundUpload, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		appErrors.HandleError(c, appErrors.ValidationError(map[string]string{
			"file": "multipart field 'file' is required",
		}))
		return nil, false
	}

	src, err := header.Open()
	if err != nil {
		appErrors.HandleError(c, appErrors.InternalError(err))
		return nil, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &boundUpload{
		FileUpload: &services.FileUpload{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: contentType,
			Reader:      src,
		},
		src: src,
	}, true
}
