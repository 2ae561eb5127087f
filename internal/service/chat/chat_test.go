package chat

import (
	"context"
	"testing"
	"time"

	"github.com/askbase/askbase/internal/model"
	"github.com/askbase/askbase/internal/service/embedding"
	"github.com/askbase/askbase/internal/service/index"
	"github.com/askbase/askbase/internal/service/registry"
	"github.com/askbase/askbase/internal/service/retrieve"
	"github.com/askbase/askbase/internal/service/session"
	"github.com/askbase/askbase/internal/service/types"
)

const testDim = 32

func newChatFixture(t *testing.T) (*Service, index.Store, *embedding.Adapter, registry.Registry) {
	t.Helper()
	adapter := embedding.New(embedding.NewMockEmbedder(testDim), testDim, 1, time.Millisecond)
	store := index.NewMemoryStore(testDim, "test")
	composer := retrieve.NewComposer(adapter, store, nil, &retrieve.Config{TopK: 5, MinScore: 0.70})
	reg := registry.NewMemoryRegistry()
	svc := NewService(composer, session.NewManager(nil), nil, reg)
	return svc, store, adapter, reg
}

func seed(t *testing.T, store index.Store, adapter *embedding.Adapter, question, answer string) {
	t.Helper()
	vec, err := adapter.Embed(context.Background(), question)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	err = store.Upsert(context.Background(), []types.QARecord{{
		ID: "r-" + question, Question: question, Answer: answer,
		AnswerPosition: 1, TotalAnswers: 1, BatchID: "b1", Embedding: vec,
	}})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
}

func TestAskMintsConversationID(t *testing.T) {
	svc, store, adapter, _ := newChatFixture(t)
	seed(t, store, adapter, "年假有多少天？", "10 天")

	resp, err := svc.Ask(context.Background(), &Request{Message: "年假有多少天？"})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if resp.ConversationID == "" {
		t.Error("expected a minted conversation id")
	}
	if resp.Response != "10 天" {
		t.Errorf("unexpected answer: %q", resp.Response)
	}
}

func TestAskKeepsConversationID(t *testing.T) {
	svc, store, adapter, _ := newChatFixture(t)
	seed(t, store, adapter, "年假有多少天？", "10 天")

	resp, err := svc.Ask(context.Background(), &Request{
		Message:        "年假有多少天？",
		ConversationID: "conv-42",
	})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if resp.ConversationID != "conv-42" {
		t.Errorf("conversation id must be preserved, got %q", resp.ConversationID)
	}
}

func TestAskRecordsHistory(t *testing.T) {
	adapter := embedding.New(embedding.NewMockEmbedder(testDim), testDim, 1, time.Millisecond)
	store := index.NewMemoryStore(testDim, "test")
	composer := retrieve.NewComposer(adapter, store, nil, nil)
	sessions := session.NewManager(nil)
	svc := NewService(composer, sessions, nil, registry.NewMemoryRegistry())

	seed(t, store, adapter, "年假有多少天？", "10 天")

	resp, err := svc.Ask(context.Background(), &Request{Message: "年假有多少天？"})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	history, err := sessions.GetHistory(context.Background(), resp.ConversationID)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected user+assistant turns recorded, got %d", len(history))
	}
	if history[1].Content != resp.Response {
		t.Errorf("assistant turn mismatch: %q vs %q", history[1].Content, resp.Response)
	}
}

func TestAskEmptyMessage(t *testing.T) {
	svc, _, _, _ := newChatFixture(t)
	if _, err := svc.Ask(context.Background(), &Request{Message: "  "}); err == nil {
		t.Fatal("expected error for empty message")
	}
}

func TestExamplesFallback(t *testing.T) {
	svc, _, _, _ := newChatFixture(t)

	examples := svc.Examples(context.Background())
	if len(examples) == 0 {
		t.Fatal("expected fallback examples when registry is empty")
	}
}

func TestExamplesFromRegistry(t *testing.T) {
	svc, _, _, reg := newChatFixture(t)

	entry := &model.KnowledgeBaseFile{Filename: "faq.csv", BatchID: "b1", ModifiedAt: time.Now()}
	entry.SetSamples([]string{"年假有多少天？", "如何报销？"})
	if err := reg.Upsert(context.Background(), entry); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	examples := svc.Examples(context.Background())
	if len(examples) != 2 || examples[0] != "年假有多少天？" {
		t.Errorf("expected samples from the freshest file, got %v", examples)
	}
}
