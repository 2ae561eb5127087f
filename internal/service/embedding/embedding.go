// Package embedding 提供固定维度的文本向量化适配器
// 对 eino Embedder 做维度校验、NaN 校验与有界退避重试
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/askbase/askbase/internal/config"
	"github.com/askbase/askbase/internal/service/types"
	"github.com/avast/retry-go/v4"
	dashscopeEmbed "github.com/cloudwego/eino-ext/components/embedding/dashscope"
	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
)

const (
	defaultAttempts = 3
	defaultDelay    = 100 * time.Millisecond
	maxDelay        = 2 * time.Second
)

// Adapter 向量化适配器
// 所有向量保证维度一致且不含 NaN；批量调用保持与输入 1:1 的顺序对应
type Adapter struct {
	embedder embedding.Embedder
	dim      int
	attempts uint
	delay    time.Duration
}

// New 创建向量化适配器
func New(embedder embedding.Embedder, dim int, attempts int, delay time.Duration) *Adapter {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if delay <= 0 {
		delay = defaultDelay
	}
	return &Adapter{
		embedder: embedder,
		dim:      dim,
		attempts: uint(attempts),
		delay:    delay,
	}
}

// NewFromConfig 根据配置创建向量化适配器
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Adapter, error) {
	embCfg := cfg.AI.Embedding
	provider := strings.ToLower(strings.TrimSpace(embCfg.Provider))
	dim := embCfg.Dimensions

	attempts := cfg.Ingest.RetryAttempts
	delay := time.Duration(cfg.Ingest.RetryDelayMs) * time.Millisecond

	switch provider {
	case "", "mock":
		return New(NewMockEmbedder(dim), dim, attempts, delay), nil
	case "openai":
		if embCfg.APIKey == "" {
			return nil, fmt.Errorf("embedding api_key is required for provider openai")
		}
		localDim := dim
		em, err := openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
			APIKey:     embCfg.APIKey,
			Model:      embCfg.Model,
			BaseURL:    embCfg.BaseURL,
			Timeout:    time.Duration(embCfg.Timeout) * time.Second,
			Dimensions: &localDim,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai embedder: %w", err)
		}
		return New(em, dim, attempts, delay), nil
	case "alibaba", "qwen", "dashscope":
		if embCfg.APIKey == "" {
			return nil, fmt.Errorf("embedding api_key is required for provider dashscope")
		}
		model := embCfg.Model
		if model == "" {
			model = "text-embedding-v3"
		}
		localDim := dim
		em, err := dashscopeEmbed.NewEmbedder(ctx, &dashscopeEmbed.EmbeddingConfig{
			APIKey:     embCfg.APIKey,
			Model:      model,
			Dimensions: &localDim,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create dashscope embedder: %w", err)
		}
		return New(em, dim, attempts, delay), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}

// Dimension 返回配置的向量维度
func (a *Adapter) Dimension() int {
	return a.dim
}

// Embed 向量化单条文本
func (a *Adapter) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 批量向量化，输出与输入顺序一一对应
// 提供方失败按有界指数退避重试，重试耗尽后返回 ErrEmbedding
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	var vectors [][]float64
	err := retry.Do(
		func() error {
			result, err := a.embedder.EmbedStrings(ctx, texts)
			if err != nil {
				return fmt.Errorf("embed strings failed: %w", err)
			}
			if err := a.validate(texts, result); err != nil {
				return err
			}
			vectors = result
			return nil
		},
		retry.Attempts(a.attempts),
		retry.Delay(a.delay),
		retry.MaxDelay(maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbedding, err)
	}

	return vectors, nil
}

// validate 校验提供方输出的向量形状
func (a *Adapter) validate(texts []string, vectors [][]float64) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("vector count mismatch: expected %d, got %d", len(texts), len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != a.dim {
			return fmt.Errorf("vector %d dimension mismatch: expected %d, got %d", i, a.dim, len(vec))
		}
		for _, v := range vec {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("vector %d contains non-finite value", i)
			}
		}
	}
	return nil
}
