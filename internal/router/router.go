// Package router 装配 HTTP 路由
package router

import (
	"github.com/askbase/askbase/internal/handler"
	"github.com/askbase/askbase/internal/middleware"
	"github.com/askbase/askbase/internal/service"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, svc *service.Services) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 问答接口（公开）
	api := r.Group("/api")
	{
		api.POST("/chat", h.Chat.Ask)
		api.GET("/chat/examples", h.Chat.Examples)
	}

	// 管理接口（登录公开，其余需要认证）
	admin := r.Group("/admin")
	{
		admin.POST("/login", h.Admin.Login)

		authorized := admin.Group("", middleware.AdminAuth(svc.Auth))
		{
			authorized.POST("/upload", h.Admin.Upload)
			authorized.GET("/files", h.Admin.ListFiles)
			authorized.GET("/status", h.Admin.Status)
			authorized.DELETE("/files/:filename", h.Admin.DeleteFile)
		}
	}

	return r
}
