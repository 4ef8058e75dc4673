package middleware

import (
	"strings"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/auth"
	"dropnest_backend/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	// CtxAccountID is the Gin context key holding the authenticated account id.
	CtxAccountID = "accountID"
	// CtxAccountEmail is the Gin context key holding the account email.
	CtxAccountEmail = "accountEmail"
)

// AuthMiddleware verifies the bearer token and stores the account identity
// in the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			appErrors.HandleError(c, appErrors.ErrUnauthorized)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.ParseToken(tokenStr)
		if err != nil {
			appErrors.HandleError(c, appErrors.ErrInvalidToken)
			return
		}

		c.Set(CtxAccountID, claims.AccountID)
		c.Set(CtxAccountEmail, claims.Email)

		ctx := logger.WithAccountID(c.Request.Context(), claims.AccountID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// AccountID reads the authenticated account id from the Gin context.
func AccountID(c *gin.Context) string {
	return c.GetString(CtxAccountID)
}

// AccountEmail reads the authenticated account email from the Gin context.
func AccountEmail(c *gin.Context) string {
	return c.GetString(CtxAccountEmail)
}
