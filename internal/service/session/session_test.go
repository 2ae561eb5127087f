package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestManagerMemoryMode(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)

	sess, err := m.Get(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sess.ID != "conv-1" || len(sess.Messages) != 0 {
		t.Errorf("unexpected new session: %+v", sess)
	}

	if err := m.Append(ctx, "conv-1", &schema.Message{Role: schema.User, Content: "你好"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := m.Append(ctx, "conv-1", &schema.Message{Role: schema.Assistant, Content: "您好，请问有什么可以帮您？"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	history, err := m.GetHistory(ctx, "conv-1")
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Role != schema.User || history[1].Role != schema.Assistant {
		t.Errorf("unexpected roles: %s, %s", history[0].Role, history[1].Role)
	}

	// 不同会话互不可见
	other, _ := m.GetHistory(ctx, "conv-2")
	if len(other) != 0 {
		t.Errorf("expected empty history for a fresh conversation, got %d", len(other))
	}
}

func TestManagerClear(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)

	_ = m.Append(ctx, "conv-1", &schema.Message{Role: schema.User, Content: "消息"})
	if err := m.Clear(ctx, "conv-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	history, _ := m.GetHistory(ctx, "conv-1")
	if len(history) != 0 {
		t.Errorf("expected empty history after clear, got %d", len(history))
	}
}

func TestManagerHistoryTrimmed(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)

	for i := 0; i < maxHistoryMessages+10; i++ {
		_ = m.Append(ctx, "conv-1", &schema.Message{
			Role:    schema.User,
			Content: fmt.Sprintf("消息 %d", i),
		})
	}

	history, _ := m.GetHistory(ctx, "conv-1")
	if len(history) != maxHistoryMessages {
		t.Fatalf("expected history capped at %d, got %d", maxHistoryMessages, len(history))
	}
	// 保留的是最新的消息
	if history[len(history)-1].Content != fmt.Sprintf("消息 %d", maxHistoryMessages+9) {
		t.Errorf("unexpected newest message: %q", history[len(history)-1].Content)
	}
}

func TestRoleToSchema(t *testing.T) {
	tests := []struct {
		role string
		want schema.RoleType
	}{
		{"system", schema.System},
		{"assistant", schema.Assistant},
		{"user", schema.User},
		{"unknown", schema.User},
	}
	for _, tt := range tests {
		if got := roleToSchema(tt.role); got != tt.want {
			t.Errorf("roleToSchema(%q) = %s, want %s", tt.role, got, tt.want)
		}
	}
}
