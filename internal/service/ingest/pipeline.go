package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/askbase/askbase/internal/model"
	"github.com/askbase/askbase/internal/service/embedding"
	"github.com/askbase/askbase/internal/service/index"
	"github.com/askbase/askbase/internal/service/registry"
	"github.com/askbase/askbase/internal/service/types"
	"github.com/google/uuid"
)

const maxEmbedBatchSize = 100

// BatchRecorder 摄取批次状态的记录器
type BatchRecorder interface {
	Create(batch *model.IngestionBatch) error
	Update(batch *model.IngestionBatch) error
}

// Result 摄取结果
type Result struct {
	EntriesProcessed int    `json:"entries_processed"`
	QuestionsCount   int    `json:"questions_count"`
	BatchID          string `json:"batch_id"`
	BackupFilename   string `json:"backup_filename,omitempty"`
}

// Pipeline 摄取管线
// 向量索引与注册表之间没有共享事务，一致性靠固定的步骤顺序加补偿回滚保证；
// 管线是两份资源的唯一写入方
type Pipeline struct {
	embedder  *embedding.Adapter
	store     index.Store
	registry  registry.Registry
	batches   BatchRecorder
	uploadDir string
	batchSize int

	locks sync.Map // filename -> *sync.Mutex
}

// NewPipeline 创建摄取管线
func NewPipeline(embedder *embedding.Adapter, store index.Store, reg registry.Registry, batches BatchRecorder, uploadDir string, batchSize int) *Pipeline {
	if batchSize <= 0 || batchSize > maxEmbedBatchSize {
		batchSize = maxEmbedBatchSize
	}
	return &Pipeline{
		embedder:  embedder,
		store:     store,
		registry:  reg,
		batches:   batches,
		uploadDir: uploadDir,
		batchSize: batchSize,
	}
}

// Ingest 摄取一个表格文件
// 同名文件串行执行；不同文件可并行。失败时回滚本批全部向量，知识库保持不变
func (p *Pipeline) Ingest(ctx context.Context, filename string, data []byte) (*Result, error) {
	// 解析无副作用，格式错误立即返回
	parsed, err := Parse(filename, data)
	if err != nil {
		return nil, err
	}
	if parsed.RecordCount() == 0 {
		return nil, fmt.Errorf("%w: file has no usable question/answer rows", types.ErrMalformedFile)
	}

	mu := p.lockFilename(filename)
	mu.Lock()
	defer mu.Unlock()

	batchID := uuid.New().String()
	batch := &model.IngestionBatch{
		BatchID:    batchID,
		SourceFile: filename,
		Status:     model.BatchStatusInProgress,
	}
	if err := p.batches.Create(batch); err != nil {
		return nil, fmt.Errorf("failed to create ingestion batch: %w", err)
	}

	records := buildRecords(parsed, filename, batchID)

	// 向量化没有副作用，放在删除旧批次之前，尽量缩短旧数据不可用的窗口
	if err := p.embedRecords(ctx, records); err != nil {
		p.markFailed(batch, err)
		return nil, err
	}

	// 同名文件的旧批次先删除（替换语义），避免新旧向量共存
	oldEntry, getErr := p.registry.Get(ctx, filename)
	replaced := false
	if getErr == nil && oldEntry.BatchID != "" {
		if err := p.store.DeleteByBatch(ctx, oldEntry.BatchID); err != nil {
			p.markFailed(batch, err)
			return nil, fmt.Errorf("failed to delete previous batch: %w", err)
		}
		replaced = true
	}

	if err := p.store.Upsert(ctx, records); err != nil {
		p.rollback(ctx, batch, replaced, filename)
		return nil, fmt.Errorf("failed to index records: %w", err)
	}

	now := time.Now()
	entry := &model.KnowledgeBaseFile{
		Filename:   filename,
		SizeBytes:  int64(len(data)),
		BatchID:    batchID,
		ModifiedAt: now,
	}
	entry.SetSamples(sampleQuestions(parsed, 4))
	if getErr == nil {
		entry.CreatedAt = oldEntry.CreatedAt
	} else {
		entry.CreatedAt = now
	}
	if err := p.registry.Upsert(ctx, entry); err != nil {
		p.rollback(ctx, batch, replaced, filename)
		return nil, fmt.Errorf("failed to register file: %w", err)
	}

	batch.RecordCount = len(records)
	batch.Status = model.BatchStatusCommitted
	if err := p.batches.Update(batch); err != nil {
		log.Printf("Warning: failed to mark batch %s committed: %v", batchID, err)
	}

	backup := p.saveUpload(filename, data)

	return &Result{
		EntriesProcessed: len(records),
		QuestionsCount:   parsed.QuestionCount(),
		BatchID:          batchID,
		BackupFilename:   backup,
	}, nil
}

// DeleteFile 删除文件及其批次的全部向量
// 先删向量再删注册表条目，保证注册表不会指向已消失的批次之外的状态
func (p *Pipeline) DeleteFile(ctx context.Context, filename string) (string, error) {
	mu := p.lockFilename(filename)
	mu.Lock()
	defer mu.Unlock()

	entry, err := p.registry.Get(ctx, filename)
	if err != nil {
		return "", err
	}

	if err := p.store.DeleteByBatch(ctx, entry.BatchID); err != nil {
		return "", fmt.Errorf("failed to delete batch vectors: %w", err)
	}

	if err := p.registry.Remove(ctx, filename); err != nil {
		return "", err
	}

	if p.uploadDir != "" {
		if err := os.Remove(filepath.Join(p.uploadDir, filename)); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to remove upload %s: %v", filename, err)
		}
	}

	return entry.BatchID, nil
}

// embedRecords 分批向量化，填充记录的 Embedding 字段
func (p *Pipeline) embedRecords(ctx context.Context, records []types.QARecord) error {
	for start := 0; start < len(records); start += p.batchSize {
		end := start + p.batchSize
		if end > len(records) {
			end = len(records)
		}

		texts := make([]string, end-start)
		for i := start; i < end; i++ {
			texts[i-start] = records[i].Question
		}

		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		for i := start; i < end; i++ {
			records[i].Embedding = vectors[i-start]
		}
	}
	return nil
}

// rollback 删除本批已写入的向量并标记批次失败
// 在脱离调用方取消的 context 上执行，取消的上传也必须完成清理
func (p *Pipeline) rollback(ctx context.Context, batch *model.IngestionBatch, replaced bool, filename string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := p.store.DeleteByBatch(cleanupCtx, batch.BatchID); err != nil {
		log.Printf("Warning: rollback of batch %s failed: %v", batch.BatchID, err)
	}

	// 旧批次已被替换删除时，注册表条目已无可指向的向量，一并移除
	if replaced {
		if err := p.registry.Remove(cleanupCtx, filename); err != nil {
			log.Printf("Warning: failed to drop stale registry entry %s: %v", filename, err)
		}
	}

	p.markFailed(batch, fmt.Errorf("batch rolled back"))
}

// markFailed 标记批次失败
func (p *Pipeline) markFailed(batch *model.IngestionBatch, cause error) {
	batch.Status = model.BatchStatusFailed
	batch.Error = cause.Error()
	if err := p.batches.Update(batch); err != nil {
		log.Printf("Warning: failed to mark batch %s failed: %v", batch.BatchID, err)
	}
}

// saveUpload 保存原始上传文件，同名旧文件改名备份
func (p *Pipeline) saveUpload(filename string, data []byte) string {
	if p.uploadDir == "" {
		return ""
	}
	if err := os.MkdirAll(p.uploadDir, 0o755); err != nil {
		log.Printf("Warning: failed to create upload dir: %v", err)
		return ""
	}

	target := filepath.Join(p.uploadDir, filename)
	backup := ""
	if _, err := os.Stat(target); err == nil {
		backup = fmt.Sprintf("%s.%s.bak", filename, time.Now().Format("20060102-150405"))
		if err := os.Rename(target, filepath.Join(p.uploadDir, backup)); err != nil {
			log.Printf("Warning: failed to back up %s: %v", filename, err)
			backup = ""
		}
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		log.Printf("Warning: failed to save upload %s: %v", filename, err)
	}
	return backup
}

// lockFilename 同名文件的互斥锁（不同文件互不阻塞）
func (p *Pipeline) lockFilename(filename string) *sync.Mutex {
	v, _ := p.locks.LoadOrStore(filename, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// buildRecords 由解析结果构建问答记录
// ID 由 文件名|行号|答案列号 哈希而来，重复摄取产出相同 ID
func buildRecords(parsed *ParsedFile, filename, batchID string) []types.QARecord {
	records := make([]types.QARecord, 0, parsed.RecordCount())
	for _, row := range parsed.Rows {
		total := len(row.Answers)
		for pos, ans := range row.Answers {
			records = append(records, types.QARecord{
				ID:             recordID(filename, row.Index, ans.ColumnIndex),
				Question:       row.Question,
				Answer:         ans.Text,
				AnswerPosition: pos + 1,
				TotalAnswers:   total,
				SourceFile:     filename,
				BatchID:        batchID,
			})
		}
	}
	return records
}

// sampleQuestions 取前 limit 个有答案的问题作为示例
func sampleQuestions(parsed *ParsedFile, limit int) []string {
	samples := make([]string, 0, limit)
	for _, row := range parsed.Rows {
		if len(row.Answers) == 0 {
			continue
		}
		samples = append(samples, row.Question)
		if len(samples) >= limit {
			break
		}
	}
	return samples
}

// recordID 确定性记录 ID
func recordID(sourceFile string, rowIndex, answerCol int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%d", sourceFile, rowIndex, answerCol))
	return hex.EncodeToString(sum[:])
}

// ========== 批次记录器实现 ==========

// MemoryBatchRecorder 进程内批次记录器（测试与无数据库模式）
type MemoryBatchRecorder struct {
	mu      sync.Mutex
	Batches map[string]*model.IngestionBatch
}

// NewMemoryBatchRecorder 创建进程内批次记录器
func NewMemoryBatchRecorder() *MemoryBatchRecorder {
	return &MemoryBatchRecorder{Batches: make(map[string]*model.IngestionBatch)}
}

// Create 记录新批次
func (r *MemoryBatchRecorder) Create(batch *model.IngestionBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *batch
	r.Batches[batch.BatchID] = &clone
	return nil
}

// Update 更新批次状态
func (r *MemoryBatchRecorder) Update(batch *model.IngestionBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *batch
	r.Batches[batch.BatchID] = &clone
	return nil
}

// Get 获取批次（测试断言用）
func (r *MemoryBatchRecorder) Get(batchID string) *model.IngestionBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Batches[batchID]
}
