// Package registry 维护知识库文件的元数据注册表
// 纯元数据，不存向量；与向量索引的一致性由摄取管线的提交/回滚协议保证
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/askbase/askbase/internal/model"
	"github.com/askbase/askbase/internal/repository"
	"github.com/askbase/askbase/internal/service/types"
	"gorm.io/gorm"
)

// Registry 知识库文件注册表
type Registry interface {
	// List 按修改时间倒序列出全部条目
	List(ctx context.Context) ([]*model.KnowledgeBaseFile, error)

	// Get 按文件名查找条目，不存在返回 ErrNotFound
	Get(ctx context.Context, filename string) (*model.KnowledgeBaseFile, error)

	// Upsert 创建或更新条目
	Upsert(ctx context.Context, entry *model.KnowledgeBaseFile) error

	// Remove 删除条目，不存在返回 ErrNotFound
	Remove(ctx context.Context, filename string) error

	// TotalFiles 条目总数
	TotalFiles(ctx context.Context) (int64, error)
}

// ========== 数据库实现 ==========

// DBRegistry 基于 gorm 的注册表实现
type DBRegistry struct {
	repo *repository.Repositories
}

// NewDBRegistry 创建数据库注册表
func NewDBRegistry(repo *repository.Repositories) *DBRegistry {
	return &DBRegistry{repo: repo}
}

// List 按修改时间倒序列出全部条目
func (r *DBRegistry) List(ctx context.Context) ([]*model.KnowledgeBaseFile, error) {
	files, err := r.repo.File.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// Get 按文件名查找条目
func (r *DBRegistry) Get(ctx context.Context, filename string) (*model.KnowledgeBaseFile, error) {
	file, err := r.repo.File.GetByFilename(filename)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: file %s", types.ErrNotFound, filename)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

// Upsert 创建或更新条目
func (r *DBRegistry) Upsert(ctx context.Context, entry *model.KnowledgeBaseFile) error {
	if err := r.repo.File.Upsert(entry); err != nil {
		return fmt.Errorf("failed to upsert file entry: %w", err)
	}
	return nil
}

// Remove 删除条目
func (r *DBRegistry) Remove(ctx context.Context, filename string) error {
	if _, err := r.Get(ctx, filename); err != nil {
		return err
	}
	if err := r.repo.File.Delete(filename); err != nil {
		return fmt.Errorf("failed to delete file entry: %w", err)
	}
	return nil
}

// TotalFiles 条目总数
func (r *DBRegistry) TotalFiles(ctx context.Context) (int64, error) {
	total, err := r.repo.File.Count()
	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return total, nil
}

var _ Registry = (*DBRegistry)(nil)
