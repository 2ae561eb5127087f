// Package retrieve 实现语义检索与答案组织
package retrieve

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/askbase/askbase/internal/service/embedding"
	"github.com/askbase/askbase/internal/service/index"
	"github.com/askbase/askbase/internal/service/types"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	defaultTopK     = 5
	defaultMinScore = 0.70

	// NoMatchAnswer 低于阈值时的固定回答
	NoMatchAnswer = "抱歉，知识库中没有找到与您的问题相关的信息。请尝试换一种方式提问，或联系管理员补充相关内容。"

	systemPrompt = `你是一个企业知识库问答助手。请仅根据提供的参考资料回答用户问题。

规则：
1. 只使用参考资料中的信息，不要编造内容。
2. 如果同一个问题有多个答案片段，把它们组织成连贯完整的回答。
3. 回答简洁直接，使用与用户问题相同的语言。`

	userPromptTemplate = `参考资料：
%s

用户问题：%s

回答：`
)

// Answer 一次问答的结果
type Answer struct {
	Text    string                  `json:"text"`
	Sources []types.RetrievedSource `json:"sources"`
}

// Config 检索配置
type Config struct {
	TopK     int
	MinScore float64
}

// Composer 检索与答案组织器
// chatModel 可为 nil；为 nil 或生成失败时直接以最佳命中原文作答（检索成功即不报错）
type Composer struct {
	embedder  *embedding.Adapter
	store     index.Store
	chatModel model.ChatModel
	topK      int
	minScore  float64
}

// NewComposer 创建答案组织器
func NewComposer(embedder *embedding.Adapter, store index.Store, chatModel model.ChatModel, cfg *Config) *Composer {
	topK := defaultTopK
	minScore := defaultMinScore
	if cfg != nil {
		if cfg.TopK > 0 {
			topK = cfg.TopK
		}
		if cfg.MinScore > 0 {
			minScore = cfg.MinScore
		}
	}
	return &Composer{
		embedder:  embedder,
		store:     store,
		chatModel: chatModel,
		topK:      topK,
		minScore:  minScore,
	}
}

// Ask 对查询执行检索并组织回答
// topK <= 0 时使用配置值。检索失败（向量化或索引错误）返回错误；
// 没有达到阈值的命中时返回固定回答与空来源
func (c *Composer) Ask(ctx context.Context, query string, topK int) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if topK <= 0 {
		topK = c.topK
	}

	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := c.store.Search(ctx, vector, topK, nil)
	if err != nil {
		return nil, err
	}

	relevant := make([]types.SearchHit, 0, len(hits))
	for _, hit := range hits {
		if hit.Score >= c.minScore {
			relevant = append(relevant, hit)
		}
	}

	if len(relevant) == 0 {
		return &Answer{
			Text:    NoMatchAnswer,
			Sources: []types.RetrievedSource{},
		}, nil
	}

	sources := buildSources(relevant)
	text := c.compose(ctx, query, relevant)

	return &Answer{Text: text, Sources: sources}, nil
}

// compose 组织最终回答文本
// 生成式组织是尽力而为：模型缺失或调用失败时退化为直接呈现命中内容
func (c *Composer) compose(ctx context.Context, query string, hits []types.SearchHit) string {
	direct := directAnswer(hits)

	if c.chatModel == nil {
		return direct
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: fmt.Sprintf(userPromptTemplate, referenceText(hits), query)},
	}

	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		log.Printf("Warning: answer composition failed, falling back to direct answer: %v", err)
		return direct
	}

	composed := strings.TrimSpace(resp.Content)
	if composed == "" {
		return direct
	}
	return composed
}

// directAnswer 不经模型的直接回答：最佳命中问题的全部答案片段按列序拼接
func directAnswer(hits []types.SearchHit) string {
	best := hits[0]

	// 同一问题可能拆成多条记录（多答案列），收集同问题同来源的全部片段
	parts := make([]types.SearchHit, 0, best.Record.TotalAnswers)
	for _, hit := range hits {
		if hit.Record.Question == best.Record.Question && hit.Record.SourceFile == best.Record.SourceFile {
			parts = append(parts, hit)
		}
	}
	sort.SliceStable(parts, func(i, j int) bool {
		return parts[i].Record.AnswerPosition < parts[j].Record.AnswerPosition
	})

	texts := make([]string, 0, len(parts))
	for _, part := range parts {
		texts = append(texts, part.Record.Answer)
	}
	return strings.Join(texts, "\n\n")
}

// referenceText 构建提示词中的参考资料片段
func referenceText(hits []types.SearchHit) string {
	var sb strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&sb, "[%d] 问题：%s\n", i+1, hit.Record.Question)
		if hit.Record.TotalAnswers > 1 {
			fmt.Fprintf(&sb, "    答案（第 %d/%d 部分）：%s\n", hit.Record.AnswerPosition, hit.Record.TotalAnswers, hit.Record.Answer)
		} else {
			fmt.Fprintf(&sb, "    答案：%s\n", hit.Record.Answer)
		}
	}
	return sb.String()
}

// buildSources 将命中转换为对外的来源列表（保持分数降序）
func buildSources(hits []types.SearchHit) []types.RetrievedSource {
	sources := make([]types.RetrievedSource, 0, len(hits))
	for _, hit := range hits {
		sources = append(sources, types.RetrievedSource{
			Question:       hit.Record.Question,
			Answer:         hit.Record.Answer,
			RelevanceScore: hit.Score,
			AnswerPosition: hit.Record.AnswerPosition,
			TotalAnswers:   hit.Record.TotalAnswers,
		})
	}
	return sources
}
