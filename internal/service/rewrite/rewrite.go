// Package rewrite 将多轮对话中的追问改写为独立问题
package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	systemPrompt = `你是一个查询改写助手。用户在多轮对话中的追问常常依赖上文（代词、省略的主语等），
请把用户的最新问题改写成一个不依赖上文也能理解的独立问题。

规则：
1. 如果最新问题本身已经完整清晰，原样返回。
2. 改写时只补全必要的上下文，保持问题简洁。
3. 只返回改写后的问题，不要任何解释。`

	userPromptTemplate = `对话历史：
%s

最新问题：%s

改写后的问题：`

	// 改写时最多带入的历史轮数
	maxHistoryTurns = 6
)

// Rewriter 查询改写器
// chatModel 为 nil 或调用失败时原样返回，改写永远不会让问答失败
type Rewriter struct {
	chatModel model.ChatModel
}

// NewRewriter 创建查询改写器
func NewRewriter(chatModel model.ChatModel) *Rewriter {
	return &Rewriter{chatModel: chatModel}
}

// Rewrite 基于对话历史改写查询
func (r *Rewriter) Rewrite(ctx context.Context, query string, history []*schema.Message) string {
	if r.chatModel == nil || len(history) < 2 {
		return query
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: fmt.Sprintf(userPromptTemplate, historyText(history), query)},
	}

	resp, err := r.chatModel.Generate(ctx, messages)
	if err != nil {
		return query
	}

	rewritten := strings.TrimSpace(resp.Content)
	if rewritten == "" {
		return query
	}
	return rewritten
}

// historyText 将最近的历史消息拼成文本
func historyText(history []*schema.Message) string {
	start := 0
	if len(history) > maxHistoryTurns {
		start = len(history) - maxHistoryTurns
	}

	var sb strings.Builder
	for _, msg := range history[start:] {
		role := "用户"
		if msg.Role == schema.Assistant {
			role = "助手"
		}
		fmt.Fprintf(&sb, "%s：%s\n", role, msg.Content)
	}
	return sb.String()
}
