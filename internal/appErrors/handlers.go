package appErrors

import (
	"net/http"

	"dropnest_backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// HandleError writes err to the Gin response, converting unknown errors to
// an opaque internal error. Nothing is ever swallowed: 5xx errors are logged
// with their cause.
func HandleError(c *gin.Context, err error) {
	var appErr *AppError
	if !As(err, &appErr) {
		appErr = InternalError(err)
	}

	if appErr.HTTPCode >= 500 {
		logger.CtxWithError(c.Request.Context(), "request failed", err, "code", appErr.Code)
	}

	c.AbortWithStatusJSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}

// HandleValidationError converts binding/validation failures to the
// validation error shape.
func HandleValidationError(c *gin.Context, err error) {
	HandleError(c, ErrValidationFailed.WithDetails(gin.H{"details": err.Error()}))
}

// HandleBindError is used for malformed request bodies.
func HandleBindError(c *gin.Context, err error) {
	HandleError(c, New(CodeValidationFailed, "Malformed request body", http.StatusBadRequest).WithError(err))
}
