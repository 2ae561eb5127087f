// Package handler 提供 HTTP 接口层
package handler

import (
	"github.com/askbase/askbase/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chat  *ChatHandler
	Admin *AdminHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Chat:  NewChatHandler(svc),
		Admin: NewAdminHandler(svc),
	}
}
