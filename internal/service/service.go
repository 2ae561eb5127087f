package service

import (
	"context"
	"fmt"
	"log"

	"github.com/askbase/askbase/internal/config"
	"github.com/askbase/askbase/internal/repository"
	"github.com/askbase/askbase/internal/service/auth"
	"github.com/askbase/askbase/internal/service/chat"
	"github.com/askbase/askbase/internal/service/embedding"
	"github.com/askbase/askbase/internal/service/index"
	"github.com/askbase/askbase/internal/service/ingest"
	"github.com/askbase/askbase/internal/service/registry"
	"github.com/askbase/askbase/internal/service/retrieve"
	"github.com/askbase/askbase/internal/service/rewrite"
	"github.com/askbase/askbase/internal/service/session"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/redis/go-redis/v9"
)

// Services 服务集合
type Services struct {
	// 业务服务
	Chat    *chat.Service
	Ingest  *ingest.Pipeline
	Auth    *auth.Service
	Compose *retrieve.Composer

	// 基础组件
	Config     *config.Config
	SessionMgr *session.Manager
	Embedder   *embedding.Adapter
	Store      index.Store
	Registry   registry.Registry
}

// NewServices 创建所有服务
// repo 与 redisClient 可为 nil（开发/测试模式退化为内存实现）
func NewServices(ctx context.Context, cfg *config.Config, repo *repository.Repositories, redisClient *redis.Client) (*Services, error) {
	// 向量化适配器
	embedder, err := embedding.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	// 向量索引：配置了 ES 地址用 ES8，否则用内存索引
	var store index.Store
	if cfg.Elastic.Host != "" {
		es8, err := index.NewES8Store(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create ES8 store: %w", err)
		}
		if err := es8.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure index: %w", err)
		}
		store = es8
	} else {
		log.Printf("Elasticsearch not configured, using in-memory vector index")
		store = index.NewMemoryStore(cfg.AI.Embedding.Dimensions, cfg.Elastic.IndexName)
	}

	// 注册表与批次记录：有数据库用数据库，否则用内存实现
	var reg registry.Registry
	var batches ingest.BatchRecorder
	if repo != nil {
		reg = registry.NewDBRegistry(repo)
		batches = repo.Batch
	} else {
		log.Printf("Database not configured, using in-memory registry")
		reg = registry.NewMemoryRegistry()
		batches = ingest.NewMemoryBatchRecorder()
	}

	// ChatModel 是可选的：创建失败只影响生成式回答，不影响检索
	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		log.Printf("Warning: failed to create chat model, answers will be served verbatim: %v", err)
		chatModel = nil
	}

	sessionMgr := session.NewManager(redisClient)

	composer := retrieve.NewComposer(embedder, store, chatModel, &retrieve.Config{
		TopK:     cfg.Retrieval.TopK,
		MinScore: cfg.Retrieval.MinScore,
	})

	pipeline := ingest.NewPipeline(embedder, store, reg, batches,
		cfg.Ingest.UploadDir, cfg.Ingest.EmbedBatchSize)

	authService, err := auth.NewService(&cfg.Admin)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	return &Services{
		Chat:    chat.NewService(composer, sessionMgr, rewrite.NewRewriter(chatModel), reg),
		Ingest:  pipeline,
		Auth:    authService,
		Compose: composer,

		Config:     cfg,
		SessionMgr: sessionMgr,
		Embedder:   embedder,
		Store:      store,
		Registry:   reg,
	}, nil
}

// newChatModel 创建生成式回答所用的 ChatModel
func newChatModel(ctx context.Context, cfg *config.Config) (model.ChatModel, error) {
	aiCfg := cfg.AI.OpenAI

	if aiCfg.APIKey == "" {
		return nil, fmt.Errorf("ai.openai.apiKey is not configured")
	}

	modelName := aiCfg.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  aiCfg.APIKey,
		BaseURL: aiCfg.BaseURL,
		Model:   modelName,
	})
}
