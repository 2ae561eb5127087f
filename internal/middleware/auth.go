package middleware

import (
	"net/http"
	"strings"

	"github.com/askbase/askbase/internal/service/auth"
	"github.com/gin-gonic/gin"
)

// AdminAuth 管理端认证中间件
// Bearer 凭据接受两种形式：管理员口令（前端直连）或 /admin/login 签发的 JWT
func AdminAuth(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Missing Authorization header")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(c, "Invalid Authorization header format")
			return
		}

		credential := strings.TrimPrefix(authHeader, "Bearer ")
		if err := authService.VerifyPassword(credential); err == nil {
			c.Next()
			return
		}
		if err := authService.ValidateToken(c.Request.Context(), credential); err == nil {
			c.Next()
			return
		}

		unauthorized(c, "Invalid credentials")
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status":  "error",
		"message": message,
	})
}
