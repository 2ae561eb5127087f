// Package index 提供问答记录的向量索引存储
// 相关度统一定义为 (1 + cosine) / 2，与 ES8 cosine kNN 的打分一致，取值 [0,1]
package index

import (
	"context"

	"github.com/askbase/askbase/internal/service/types"
)

// Store 向量索引存储
// Upsert 以记录 ID 幂等；DeleteByBatch 对调用方呈现原子语义
type Store interface {
	// EnsureIndex 确保索引存在（不存在则按配置维度创建）
	EnsureIndex(ctx context.Context) error

	// Upsert 写入或覆盖记录（按 ID 幂等）
	Upsert(ctx context.Context, records []types.QARecord) error

	// Search 按相似度降序返回至多 topK 条结果；同分按插入先后排序
	Search(ctx context.Context, queryVector []float64, topK int, filter *types.SearchFilter) ([]types.SearchHit, error)

	// DeleteByBatch 删除指定批次的全部向量
	DeleteByBatch(ctx context.Context, batchID string) error

	// Stats 返回索引统计信息
	Stats(ctx context.Context) (*types.IndexStats, error)
}
