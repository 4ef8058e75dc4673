package handlers

import (
	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/logger"
	"dropnest_backend/internal/middleware"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/repositories"
	"dropnest_backend/internal/validator"

	"github.com/gin-gonic/gin"
)

// BaseHandler carries the pieces every handler needs: request validation,
// error rendering, and resolution of the authenticated account.
type BaseHandler struct {
	validator   *validator.Validator
	accountRepo repositories.AccountRepository
}

func NewBaseHandler(v *validator.Validator, accountRepo repositories.AccountRepository) *BaseHandler {
	return &BaseHandler{
		validator:   v,
		accountRepo: accountRepo,
	}
}

// BindJSON binds and validates the request body, writing the error response
// itself on failure.
func (h *BaseHandler) BindJSON(c *gin.Context, obj interface{}) bool {
	ctx := c.Request.Context()

	if err := c.ShouldBindJSON(obj); err != nil {
		logger.CtxWarn(ctx, "failed to bind request body", "error", err.Error(), "path", c.Request.URL.Path)
		appErrors.HandleBindError(c, err)
		return false
	}

	if err := h.validator.Validate(obj); err != nil {
		if vErr, ok := err.(*validator.ValidationError); ok {
			appErrors.HandleError(c, appErrors.ValidationError(vErr.Errors))
		} else {
			appErrors.HandleError(c, appErrors.InternalError(err))
		}
		return false
	}
	return true
}

// HandleServiceError renders a service error, logging non-client failures.
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	appErrors.HandleError(c, err)
}

// CurrentAccount resolves the authenticated account and its workspace. On
// failure the response is already written and ok is false.
func (h *BaseHandler) CurrentAccount(c *gin.Context) (*models.Account, *models.Workspace, bool) {
	accountID := middleware.AccountID(c)
	if accountID == "" {
		appErrors.HandleError(c, appErrors.ErrUnauthorized)
		return nil, nil, false
	}

	account, err := h.accountRepo.FindByID(accountID)
	if err != nil {
		appErrors.HandleError(c, appErrors.ErrUnauthorized)
		return nil, nil, false
	}

	workspace, err := h.accountRepo.FindWorkspaceByAccount(account.ID)
	if err != nil {
		appErrors.HandleError(c, appErrors.ErrWorkspaceNotFound)
		return nil, nil, false
	}
	return account, workspace, true
}
