package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/askbase/askbase/internal/service/types"
	"github.com/gin-gonic/gin"
)

// timestamp 响应时间戳（RFC3339）
func timestamp() string {
	return time.Now().Format(time.RFC3339)
}

// errorBody 统一错误响应体
func errorBody(message string) gin.H {
	return gin.H{
		"status":    "error",
		"message":   message,
		"timestamp": timestamp(),
	}
}

// badRequest 400 错误响应
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody(message))
}

// errorResponse 按错误类别映射 HTTP 状态码
func errorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrMalformedFile):
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, types.ErrAuth):
		c.JSON(http.StatusUnauthorized, errorBody(err.Error()))
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody(err.Error()))
	default:
		// ErrEmbedding / ErrIndexUnavailable 及未分类错误
		c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
}
