package types

import "errors"

// 错误分类：handler 层通过 errors.Is 映射为对应的 HTTP 状态码
var (
	// ErrEmbedding Embedding 提供方不可达或返回非法向量（可重试）
	ErrEmbedding = errors.New("embedding provider error")

	// ErrIndexUnavailable 向量索引存储不可用（可重试）
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrMalformedFile 上传文件格式非法（不可重试，需要用户修正文件）
	ErrMalformedFile = errors.New("malformed file")

	// ErrAuth 认证失败（不可重试）
	ErrAuth = errors.New("unauthorized")

	// ErrNotFound 目标不存在（区别于内部失败）
	ErrNotFound = errors.New("not found")
)
