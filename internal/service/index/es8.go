package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/askbase/askbase/internal/config"
	"github.com/askbase/askbase/internal/service/types"
	"github.com/avast/retry-go/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 100 * time.Millisecond
)

// ES8Store Elasticsearch 8 dense_vector 向量索引
// 记录携带 batch_id/source_file keyword 字段，按来源删除是一次 delete_by_query
type ES8Store struct {
	client    *elasticsearch.Client
	indexName string
	dim       int
	attempts  uint
	delay     time.Duration
}

// NewES8Store 创建 ES8 向量索引
func NewES8Store(cfg *config.Config) (*ES8Store, error) {
	esCfg := cfg.Elastic
	if esCfg.Host == "" {
		return nil, fmt.Errorf("elasticsearch host not configured")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esCfg.Host},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	// retry.Attempts(0) 意味着无限重试，未配置时归一到默认值保证退避有界
	attempts := cfg.Ingest.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	delay := time.Duration(cfg.Ingest.RetryDelayMs) * time.Millisecond
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	return &ES8Store{
		client:    client,
		indexName: esCfg.IndexName,
		dim:       cfg.AI.Embedding.Dimensions,
		attempts:  uint(attempts),
		delay:     delay,
	}, nil
}

// EnsureIndex 确保索引存在（如不存在则创建向量映射）
func (s *ES8Store) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.indexName},
		s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: failed to check index existence: %v", types.ErrIndexUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil // 索引已存在
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"question": map[string]interface{}{"type": "text"},
				"answer":   map[string]interface{}{"type": "text"},
				"answer_position": map[string]interface{}{"type": "integer"},
				"total_answers":   map[string]interface{}{"type": "integer"},
				"source_file":     map[string]interface{}{"type": "keyword"},
				"batch_id":        map[string]interface{}{"type": "keyword"},
				"embedding": map[string]interface{}{
					"type":       "dense_vector",
					"dims":       s.dim,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
	}

	mappingData, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	req := esapi.IndicesCreateRequest{
		Index: s.indexName,
		Body:  bytes.NewReader(mappingData),
	}

	res, err = req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("%w: failed to create index: %v", types.ErrIndexUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: failed to create index: %s", types.ErrIndexUnavailable, res.String())
	}

	log.Printf("Index %s created with %d dimensions", s.indexName, s.dim)
	return nil
}

// Upsert 通过 Bulk API 写入记录（文档 ID 即记录 ID，重复写入覆盖）
func (s *ES8Store) Upsert(ctx context.Context, records []types.QARecord) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, rec := range records {
		if len(rec.Embedding) != s.dim {
			return fmt.Errorf("record %s dimension mismatch: expected %d, got %d", rec.ID, s.dim, len(rec.Embedding))
		}

		meta := map[string]map[string]string{
			"index": {"_index": s.indexName, "_id": rec.ID},
		}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal bulk meta: %w", err)
		}

		doc := map[string]interface{}{
			"question":        rec.Question,
			"answer":          rec.Answer,
			"answer_position": rec.AnswerPosition,
			"total_answers":   rec.TotalAnswers,
			"source_file":     rec.SourceFile,
			"batch_id":        rec.BatchID,
			"embedding":       rec.Embedding,
		}
		docLine, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		buf.Write(metaLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	return s.withRetry(ctx, func() error {
		res, err := s.client.Bulk(bytes.NewReader(buf.Bytes()),
			s.client.Bulk.WithContext(ctx),
			s.client.Bulk.WithRefresh("wait_for"))
		if err != nil {
			return fmt.Errorf("bulk request failed: %v", err)
		}
		defer res.Body.Close()

		if res.IsError() {
			return fmt.Errorf("bulk request failed: %s", res.String())
		}

		var bulkResp struct {
			Errors bool `json:"errors"`
		}
		if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
			return fmt.Errorf("failed to decode bulk response: %v", err)
		}
		if bulkResp.Errors {
			return fmt.Errorf("bulk response reported item failures")
		}
		return nil
	})
}

// Search kNN 检索，分数为 ES cosine 打分 (1 + cos) / 2
// 注意：同分并列顺序由 ES 决定，不保证插入序（内存索引保证；见 DESIGN.md）
func (s *ES8Store) Search(ctx context.Context, queryVector []float64, topK int, filter *types.SearchFilter) ([]types.SearchHit, error) {
	if topK <= 0 {
		return []types.SearchHit{}, nil
	}

	knn := map[string]interface{}{
		"field":          "embedding",
		"query_vector":   queryVector,
		"k":              topK,
		"num_candidates": topK * 10,
	}

	if filter != nil {
		terms := make([]map[string]interface{}, 0, 2)
		if filter.BatchID != "" {
			terms = append(terms, map[string]interface{}{
				"term": map[string]interface{}{"batch_id": filter.BatchID},
			})
		}
		if filter.SourceFile != "" {
			terms = append(terms, map[string]interface{}{
				"term": map[string]interface{}{"source_file": filter.SourceFile},
			})
		}
		if len(terms) > 0 {
			knn["filter"] = map[string]interface{}{
				"bool": map[string]interface{}{"must": terms},
			}
		}
	}

	body := map[string]interface{}{
		"knn":     knn,
		"size":    topK,
		"_source": map[string]interface{}{"excludes": []string{"embedding"}},
	}

	bodyData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search body: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.indexName),
		s.client.Search.WithBody(bytes.NewReader(bodyData)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", types.ErrIndexUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: search failed: %s", types.ErrIndexUnavailable, res.String())
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Question       string `json:"question"`
					Answer         string `json:"answer"`
					AnswerPosition int    `json:"answer_position"`
					TotalAnswers   int    `json:"total_answers"`
					SourceFile     string `json:"source_file"`
					BatchID        string `json:"batch_id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]types.SearchHit, 0, len(searchResp.Hits.Hits))
	for _, h := range searchResp.Hits.Hits {
		hits = append(hits, types.SearchHit{
			Record: types.QARecord{
				ID:             h.ID,
				Question:       h.Source.Question,
				Answer:         h.Source.Answer,
				AnswerPosition: h.Source.AnswerPosition,
				TotalAnswers:   h.Source.TotalAnswers,
				SourceFile:     h.Source.SourceFile,
				BatchID:        h.Source.BatchID,
			},
			Score: h.Score,
		})
	}
	return hits, nil
}

// DeleteByBatch 按批次删除向量（delete_by_query，冲突重试到干净为止）
func (s *ES8Store) DeleteByBatch(ctx context.Context, batchID string) error {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"batch_id": batchID},
		},
	}
	bodyData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal delete query: %w", err)
	}

	return s.withRetry(ctx, func() error {
		res, err := s.client.DeleteByQuery(
			[]string{s.indexName},
			bytes.NewReader(bodyData),
			s.client.DeleteByQuery.WithContext(ctx),
			s.client.DeleteByQuery.WithRefresh(true),
			s.client.DeleteByQuery.WithConflicts("proceed"),
		)
		if err != nil {
			return fmt.Errorf("delete_by_query failed: %v", err)
		}
		defer res.Body.Close()

		if res.IsError() {
			return fmt.Errorf("delete_by_query failed: %s", res.String())
		}

		var delResp struct {
			VersionConflicts int `json:"version_conflicts"`
		}
		if err := json.NewDecoder(res.Body).Decode(&delResp); err != nil {
			return fmt.Errorf("failed to decode delete response: %v", err)
		}
		if delResp.VersionConflicts > 0 {
			return fmt.Errorf("delete_by_query left %d conflicting documents", delResp.VersionConflicts)
		}
		return nil
	})
}

// Stats 返回索引统计信息
func (s *ES8Store) Stats(ctx context.Context) (*types.IndexStats, error) {
	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(s.indexName),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: count failed: %v", types.ErrIndexUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: count failed: %s", types.ErrIndexUnavailable, res.String())
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return nil, fmt.Errorf("failed to decode count response: %w", err)
	}

	return &types.IndexStats{
		VectorCount: countResp.Count,
		Dimension:   s.dim,
		IndexName:   s.indexName,
	}, nil
}

// withRetry 写操作的有界退避重试，耗尽后归类为索引不可用
func (s *ES8Store) withRetry(ctx context.Context, fn func() error) error {
	err := retry.Do(fn,
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrIndexUnavailable, err)
	}
	return nil
}

var _ Store = (*ES8Store)(nil)
