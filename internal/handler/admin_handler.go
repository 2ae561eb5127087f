package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/askbase/askbase/internal/model"
	"github.com/askbase/askbase/internal/service"
	"github.com/gin-gonic/gin"
)

// 上传大小上限（50MB）
const maxUploadBytes = 50 << 20

// AdminHandler 管理端处理器
type AdminHandler struct {
	svc *service.Services
}

// NewAdminHandler 创建管理端处理器
func NewAdminHandler(svc *service.Services) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Login 管理员登录
// POST /admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.svc.Auth.Login(c.Request.Context(), req.Password)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt.Format(time.RFC3339),
		"timestamp":  timestamp(),
	})
}

// Upload 上传并摄取知识库文件
// POST /admin/upload
func (h *AdminHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file field is required")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		badRequest(c, fmt.Sprintf("file exceeds maximum size of %d bytes", maxUploadBytes))
		return
	}

	filename := filepath.Base(fileHeader.Filename)
	if filename == "" || filename == "." || strings.ContainsAny(filename, "/\\") {
		badRequest(c, "invalid filename")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "failed to open uploaded file")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		badRequest(c, "failed to read uploaded file")
		return
	}

	result, err := h.svc.Ingest.Ingest(c.Request.Context(), filename, data)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"message":           fmt.Sprintf("File %s ingested successfully", filename),
		"filename":          filename,
		"backup_filename":   result.BackupFilename,
		"entries_processed": result.EntriesProcessed,
		"questions_count":   result.QuestionsCount,
		"batch_id":          result.BatchID,
		"timestamp":         timestamp(),
	})
}

// ListFiles 列出知识库文件
// GET /admin/files
func (h *AdminHandler) ListFiles(c *gin.Context) {
	files, err := h.svc.Registry.List(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"total":  len(files),
		"files":  fileInfos(files),
	})
}

// Status 返回系统状态
// GET /admin/status
func (h *AdminHandler) Status(c *gin.Context) {
	stats, err := h.svc.Store.Stats(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	files, err := h.svc.Registry.List(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	// 最近上传取前 5 条（注册表已按修改时间倒序）
	recent := files
	if len(recent) > 5 {
		recent = recent[:5]
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"vector_count":   stats.VectorCount,
		"dimension":      stats.Dimension,
		"index_name":     stats.IndexName,
		"total_files":    len(files),
		"recent_uploads": fileInfos(recent),
		"timestamp":      timestamp(),
	})
}

// DeleteFile 删除知识库文件
// DELETE /admin/files/:filename
func (h *AdminHandler) DeleteFile(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	if filename == "" || filename == "." {
		badRequest(c, "invalid filename")
		return
	}

	batchID, err := h.svc.Ingest.DeleteFile(c.Request.Context(), filename)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":             "success",
		"message":            fmt.Sprintf("File %s deleted", filename),
		"filename":           filename,
		"batch_id":           batchID,
		"deleted_from_index": true,
		"timestamp":          timestamp(),
	})
}

// fileInfo 文件信息响应项
type fileInfo struct {
	Filename   string  `json:"filename"`
	SizeBytes  int64   `json:"size_bytes"`
	SizeMB     float64 `json:"size_mb"`
	CreatedAt  string  `json:"created_at"`
	ModifiedAt string  `json:"modified_at"`
}

// fileInfos 将注册表条目转换为响应项
func fileInfos(files []*model.KnowledgeBaseFile) []fileInfo {
	infos := make([]fileInfo, 0, len(files))
	for _, f := range files {
		infos = append(infos, fileInfo{
			Filename:   f.Filename,
			SizeBytes:  f.SizeBytes,
			SizeMB:     f.SizeMB(),
			CreatedAt:  f.CreatedAt.Format(time.RFC3339),
			ModifiedAt: f.ModifiedAt.Format(time.RFC3339),
		})
	}
	return infos
}
