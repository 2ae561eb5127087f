package handler

import (
	"net/http"

	"github.com/askbase/askbase/internal/service"
	"github.com/askbase/askbase/internal/service/chat"
	"github.com/gin-gonic/gin"
)

// ChatHandler 问答处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建问答处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Ask 处理一轮问答
// POST /api/chat
func (h *ChatHandler) Ask(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.svc.Chat.Ask(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":        resp.Response,
		"sources":         resp.Sources,
		"conversation_id": resp.ConversationID,
		"timestamp":       timestamp(),
	})
}

// Examples 返回示例问题
// GET /api/chat/examples
func (h *ChatHandler) Examples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"examples": h.svc.Chat.Examples(c.Request.Context()),
	})
}
