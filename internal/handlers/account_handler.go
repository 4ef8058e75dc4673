package handlers

import (
	"net/http"

	"dropnest_backend/internal/middleware"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	*BaseHandler
	provisioning services.ProvisioningService
}

func NewAccountHandler(base *BaseHandler, provisioning services.ProvisioningService) *AccountHandler {
	return &AccountHandler{
		BaseHandler:  base,
		provisioning: provisioning,
	}
}

func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts")
	{
		accounts.POST("", h.CreateAccount)
		accounts.POST("/login", h.Login)
	}

	me := r.Group("/me")
	me.Use(middleware.AuthMiddleware())
	{
		me.GET("", h.GetAccount)
		me.GET("/usage", h.GetUsage)
	}
}

// CreateAccount provisions a new account with its workspace and default
// collection link in one shot.
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req models.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.provisioning.ProvisionAccount(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"account":   result.Account,
		"workspace": result.Workspace,
		"link":      result.Link,
	})
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	token, account, err := h.provisioning.Login(&req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"account": account,
	})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, workspace, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account":   account,
		"workspace": workspace,
	})
}

func (h *AccountHandler) GetUsage(c *gin.Context) {
	account, _, ok := h.CurrentAccount(c)
	if !ok {
		return
	}

	used, limit, err := h.accountRepo.UsageSnapshot(account.ID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"used":      used,
		"limit":     limit,
		"remaining": limit - used,
	})
}
