package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/askbase/askbase/internal/model"
	"github.com/askbase/askbase/internal/service/types"
)

// MemoryRegistry 进程内注册表实现
// 用于测试以及未配置数据库的开发模式
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]*model.KnowledgeBaseFile
}

// NewMemoryRegistry 创建进程内注册表
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string]*model.KnowledgeBaseFile),
	}
}

// List 按修改时间倒序列出全部条目
func (r *MemoryRegistry) List(ctx context.Context) ([]*model.KnowledgeBaseFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files := make([]*model.KnowledgeBaseFile, 0, len(r.entries))
	for _, entry := range r.entries {
		clone := *entry
		files = append(files, &clone)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModifiedAt.After(files[j].ModifiedAt)
	})
	return files, nil
}

// Get 按文件名查找条目
func (r *MemoryRegistry) Get(ctx context.Context, filename string) (*model.KnowledgeBaseFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[filename]
	if !ok {
		return nil, fmt.Errorf("%w: file %s", types.ErrNotFound, filename)
	}
	clone := *entry
	return &clone, nil
}

// Upsert 创建或更新条目
func (r *MemoryRegistry) Upsert(ctx context.Context, entry *model.KnowledgeBaseFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *entry
	r.entries[entry.Filename] = &clone
	return nil
}

// Remove 删除条目
func (r *MemoryRegistry) Remove(ctx context.Context, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[filename]; !ok {
		return fmt.Errorf("%w: file %s", types.ErrNotFound, filename)
	}
	delete(r.entries, filename)
	return nil
}

// TotalFiles 条目总数
func (r *MemoryRegistry) TotalFiles(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.entries)), nil
}

var _ Registry = (*MemoryRegistry)(nil)
