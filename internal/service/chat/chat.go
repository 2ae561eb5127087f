// Package chat 提供面向最终用户的问答服务
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/askbase/askbase/internal/service/registry"
	"github.com/askbase/askbase/internal/service/retrieve"
	"github.com/askbase/askbase/internal/service/rewrite"
	"github.com/askbase/askbase/internal/service/session"
	"github.com/askbase/askbase/internal/service/types"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// 注册表为空时的引导问题
var fallbackExamples = []string{
	"公司的年假政策是怎样的？",
	"如何申请报销差旅费用？",
	"试用期的考核标准是什么？",
	"员工福利都包含哪些内容？",
}

// Service 问答服务
// 追问先经 rewriter 改写为独立问题再检索；改写与历史记录都是尽力而为
type Service struct {
	composer *retrieve.Composer
	sessions *session.Manager
	rewriter *rewrite.Rewriter
	registry registry.Registry
}

// NewService 创建问答服务
func NewService(composer *retrieve.Composer, sessions *session.Manager, rewriter *rewrite.Rewriter, reg registry.Registry) *Service {
	return &Service{
		composer: composer,
		sessions: sessions,
		rewriter: rewriter,
		registry: reg,
	}
}

// Request 问答请求
type Request struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id"`
	TopK           int    `json:"top_k"`
}

// Response 问答响应
type Response struct {
	Response       string                  `json:"response"`
	Sources        []types.RetrievedSource `json:"sources"`
	ConversationID string                  `json:"conversation_id"`
}

// Ask 处理一轮问答
// conversation_id 为空时新建会话并在响应中返回
func (s *Service) Ask(ctx context.Context, req *Request) (*Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("message must not be empty")
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	query := message
	if s.rewriter != nil && s.sessions != nil && req.ConversationID != "" {
		if history, err := s.sessions.GetHistory(ctx, conversationID); err == nil {
			query = s.rewriter.Rewrite(ctx, message, history)
		}
	}

	answer, err := s.composer.Ask(ctx, query, req.TopK)
	if err != nil {
		return nil, err
	}

	// 历史记录是尽力而为，失败不影响本轮回答
	if s.sessions != nil {
		if err := s.sessions.Append(ctx, conversationID, &schema.Message{
			Role:    schema.User,
			Content: message,
		}); err == nil {
			_ = s.sessions.Append(ctx, conversationID, &schema.Message{
				Role:    schema.Assistant,
				Content: answer.Text,
			})
		}
	}

	return &Response{
		Response:       answer.Text,
		Sources:        answer.Sources,
		ConversationID: conversationID,
	}, nil
}

// Examples 返回示例问题（供前端引导提问）
// 优先取最近上传文件里的真实问题，知识库为空时退化为固定示例
func (s *Service) Examples(ctx context.Context) []string {
	if s.registry != nil {
		if files, err := s.registry.List(ctx); err == nil {
			for _, f := range files {
				if samples := f.Samples(); len(samples) > 0 {
					return samples
				}
			}
		}
	}
	return fallbackExamples
}
