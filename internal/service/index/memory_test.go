package index

import (
	"context"
	"sync"
	"testing"

	"github.com/askbase/askbase/internal/service/types"
)

// unit 构造一个在指定维度上为 1 的三维单位向量
func unit(dim int) []float64 {
	v := make([]float64, 3)
	v[dim] = 1
	return v
}

func record(id, batchID string, embedding []float64) types.QARecord {
	return types.QARecord{
		ID:        id,
		Question:  "q-" + id,
		Answer:    "a-" + id,
		BatchID:   batchID,
		Embedding: embedding,
	}
}

func TestMemoryStoreSearchRanking(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3, "test")

	// r1 与查询同向（相似度 1），r2 正交（0.5），r3 反向（0）
	err := s.Upsert(ctx, []types.QARecord{
		record("r2", "b1", unit(1)),
		record("r1", "b1", unit(0)),
		record("r3", "b1", []float64{-1, 0, 0}),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	hits, err := s.Search(ctx, unit(0), 3, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}

	if hits[0].Record.ID != "r1" || hits[0].Score < 0.999 {
		t.Errorf("expected r1 first with score 1.0, got %s %.3f", hits[0].Record.ID, hits[0].Score)
	}
	if hits[1].Record.ID != "r2" || hits[1].Score < 0.499 || hits[1].Score > 0.501 {
		t.Errorf("expected r2 second with score 0.5, got %s %.3f", hits[1].Record.ID, hits[1].Score)
	}
	if hits[2].Record.ID != "r3" || hits[2].Score > 0.001 {
		t.Errorf("expected r3 last with score 0, got %s %.3f", hits[2].Record.ID, hits[2].Score)
	}

	// 检索结果不携带向量
	if hits[0].Record.Embedding != nil {
		t.Error("search hits must not carry embeddings")
	}
}

func TestMemoryStoreTieBreakInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3, "test")

	// 两条记录与查询的相似度完全相同
	if err := s.Upsert(ctx, []types.QARecord{record("first", "b1", unit(1))}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := s.Upsert(ctx, []types.QARecord{record("second", "b1", unit(1))}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	hits, err := s.Search(ctx, unit(0), 2, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if hits[0].Record.ID != "first" || hits[1].Record.ID != "second" {
		t.Errorf("equal scores must keep insertion order, got %s, %s",
			hits[0].Record.ID, hits[1].Record.ID)
	}
}

func TestMemoryStoreUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3, "test")

	if err := s.Upsert(ctx, []types.QARecord{record("r1", "b1", unit(0))}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	// 同 ID 覆盖
	updated := record("r1", "b2", unit(1))
	updated.Answer = "updated"
	if err := s.Upsert(ctx, []types.QARecord{updated}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	stats, _ := s.Stats(ctx)
	if stats.VectorCount != 1 {
		t.Fatalf("expected 1 vector after overwrite, got %d", stats.VectorCount)
	}

	hits, _ := s.Search(ctx, unit(1), 1, nil)
	if hits[0].Record.Answer != "updated" {
		t.Errorf("overwrite did not take effect: %+v", hits[0].Record)
	}
}

func TestMemoryStoreDimensionMismatch(t *testing.T) {
	s := NewMemoryStore(3, "test")
	err := s.Upsert(context.Background(), []types.QARecord{record("r1", "b1", []float64{1, 0})})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}

	_, err = s.Search(context.Background(), []float64{1}, 5, nil)
	if err == nil {
		t.Fatal("expected query dimension mismatch error")
	}
}

func TestMemoryStoreDeleteByBatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3, "test")

	if err := s.Upsert(ctx, []types.QARecord{
		record("r1", "b1", unit(0)),
		record("r2", "b1", unit(1)),
		record("r3", "b2", unit(2)),
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := s.DeleteByBatch(ctx, "b1"); err != nil {
		t.Fatalf("DeleteByBatch failed: %v", err)
	}

	stats, _ := s.Stats(ctx)
	if stats.VectorCount != 1 {
		t.Fatalf("expected 1 vector left, got %d", stats.VectorCount)
	}

	hits, _ := s.Search(ctx, unit(2), 5, nil)
	if len(hits) != 1 || hits[0].Record.ID != "r3" {
		t.Errorf("expected only r3 to survive, got %+v", hits)
	}

	// 删除不存在的批次是幂等的
	if err := s.DeleteByBatch(ctx, "b1"); err != nil {
		t.Errorf("repeated delete must not fail: %v", err)
	}
}

func TestMemoryStoreSearchFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3, "test")

	r1 := record("r1", "b1", unit(0))
	r1.SourceFile = "a.csv"
	r2 := record("r2", "b2", unit(0))
	r2.SourceFile = "b.csv"
	if err := s.Upsert(ctx, []types.QARecord{r1, r2}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	hits, err := s.Search(ctx, unit(0), 5, &types.SearchFilter{SourceFile: "b.csv"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Record.ID != "r2" {
		t.Errorf("filter by source file failed: %+v", hits)
	}

	hits, _ = s.Search(ctx, unit(0), 5, &types.SearchFilter{BatchID: "b1"})
	if len(hits) != 1 || hits[0].Record.ID != "r1" {
		t.Errorf("filter by batch id failed: %+v", hits)
	}
}

// 检索与同一记录的并发覆盖写可以完全并行（-race 下验证）
func TestMemoryStoreConcurrentSearchUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3, "test")
	if err := s.Upsert(ctx, []types.QARecord{record("r1", "b1", unit(0))}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if err := s.Upsert(ctx, []types.QARecord{record("r1", "b1", unit(i%3))}); err != nil {
				t.Errorf("Upsert failed: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			hits, err := s.Search(ctx, unit(0), 1, nil)
			if err != nil {
				t.Errorf("Search failed: %v", err)
				return
			}
			if len(hits) != 1 || hits[0].Record.ID != "r1" {
				t.Errorf("unexpected hits: %+v", hits)
				return
			}
		}
	}()
	wg.Wait()
}

func TestMemoryStoreStats(t *testing.T) {
	s := NewMemoryStore(5, "askbase_qa")
	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Dimension != 5 || stats.IndexName != "askbase_qa" || stats.VectorCount != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
