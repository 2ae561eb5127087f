package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/askbase/askbase/internal/model"
	"github.com/askbase/askbase/internal/service/types"
)

func TestMemoryRegistryCRUD(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	if _, err := r.Get(ctx, "missing.csv"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	entry := &model.KnowledgeBaseFile{
		Filename:   "faq.csv",
		SizeBytes:  123,
		BatchID:    "b1",
		CreatedAt:  time.Now(),
		ModifiedAt: time.Now(),
	}
	if err := r.Upsert(ctx, entry); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := r.Get(ctx, "faq.csv")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.BatchID != "b1" || got.SizeBytes != 123 {
		t.Errorf("unexpected entry: %+v", got)
	}

	// 读取返回副本，修改不影响存储
	got.BatchID = "mutated"
	again, _ := r.Get(ctx, "faq.csv")
	if again.BatchID != "b1" {
		t.Error("Get must return a copy")
	}

	// 覆盖更新
	entry.BatchID = "b2"
	if err := r.Upsert(ctx, entry); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	updated, _ := r.Get(ctx, "faq.csv")
	if updated.BatchID != "b2" {
		t.Errorf("expected batch b2, got %s", updated.BatchID)
	}

	total, _ := r.TotalFiles(ctx)
	if total != 1 {
		t.Errorf("expected 1 file, got %d", total)
	}

	if err := r.Remove(ctx, "faq.csv"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := r.Remove(ctx, "faq.csv"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestMemoryRegistryListOrder(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	base := time.Now()
	for i, name := range []string{"old.csv", "mid.csv", "new.csv"} {
		if err := r.Upsert(ctx, &model.KnowledgeBaseFile{
			Filename:   name,
			BatchID:    "b",
			ModifiedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	files, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
	if files[0].Filename != "new.csv" || files[2].Filename != "old.csv" {
		t.Errorf("expected newest-first order, got %s..%s", files[0].Filename, files[2].Filename)
	}
}
