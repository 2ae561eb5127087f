package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/askbase/askbase/internal/service/types"
)

// MemoryStore 进程内向量索引
// 检索结果确定：同分记录按插入先后排序。用于测试以及未配置 Elasticsearch 的开发模式
type MemoryStore struct {
	mu        sync.RWMutex
	dim       int
	indexName string
	records   map[string]*memoryEntry
	seq       int64
}

type memoryEntry struct {
	record types.QARecord
	seq    int64
}

// NewMemoryStore 创建进程内向量索引
func NewMemoryStore(dim int, indexName string) *MemoryStore {
	return &MemoryStore{
		dim:       dim,
		indexName: indexName,
		records:   make(map[string]*memoryEntry),
	}
}

// EnsureIndex 进程内索引无需创建
func (s *MemoryStore) EnsureIndex(ctx context.Context) error {
	return nil
}

// Upsert 写入或覆盖记录（按 ID 幂等，覆盖保留原插入序）
func (s *MemoryStore) Upsert(ctx context.Context, records []types.QARecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if len(rec.Embedding) != s.dim {
			return fmt.Errorf("record %s dimension mismatch: expected %d, got %d", rec.ID, s.dim, len(rec.Embedding))
		}
		if existing, ok := s.records[rec.ID]; ok {
			existing.record = rec
			continue
		}
		s.seq++
		s.records[rec.ID] = &memoryEntry{record: rec, seq: s.seq}
	}
	return nil
}

// Search 余弦相似度检索，分数降序，同分按插入先后
func (s *MemoryStore) Search(ctx context.Context, queryVector []float64, topK int, filter *types.SearchFilter) ([]types.SearchHit, error) {
	if len(queryVector) != s.dim {
		return nil, fmt.Errorf("query vector dimension mismatch: expected %d, got %d", s.dim, len(queryVector))
	}
	if topK <= 0 {
		return []types.SearchHit{}, nil
	}

	// 打分与拷贝都在读锁内完成：并发 Upsert 会原地覆盖条目，锁外不能再读 entry.record
	s.mu.RLock()
	scored := make([]types.SearchHit, 0, len(s.records))
	seqs := make(map[string]int64, len(s.records))
	for _, entry := range s.records {
		if filter != nil {
			if filter.BatchID != "" && entry.record.BatchID != filter.BatchID {
				continue
			}
			if filter.SourceFile != "" && entry.record.SourceFile != filter.SourceFile {
				continue
			}
		}
		score := relevance(queryVector, entry.record.Embedding)
		rec := entry.record
		rec.Embedding = nil // 检索结果只携带元数据
		scored = append(scored, types.SearchHit{Record: rec, Score: score})
		seqs[rec.ID] = entry.seq
	}
	s.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return seqs[scored[i].Record.ID] < seqs[scored[j].Record.ID]
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// DeleteByBatch 删除指定批次的全部向量
func (s *MemoryStore) DeleteByBatch(ctx context.Context, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.records {
		if entry.record.BatchID == batchID {
			delete(s.records, id)
		}
	}
	return nil
}

// Stats 返回索引统计信息
func (s *MemoryStore) Stats(ctx context.Context) (*types.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &types.IndexStats{
		VectorCount: int64(len(s.records)),
		Dimension:   s.dim,
		IndexName:   s.indexName,
	}, nil
}

// relevance (1 + cosine) / 2，与 ES8 cosine kNN 打分保持一致
func relevance(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (1 + cos) / 2
}

var _ Store = (*MemoryStore)(nil)
