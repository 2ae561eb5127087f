package model

import "time"

// 批次状态常量
const (
	BatchStatusInProgress = "in_progress"
	BatchStatusCommitted  = "committed"
	BatchStatusFailed     = "failed"
)

// IngestionBatch 一次上传事件对应的摄取批次
// 只有所有记录都写入向量索引后才会转为 committed；
// 任何部分失败都会回滚该批次的全部向量并转为 failed
type IngestionBatch struct {
	BatchID     string    `json:"batch_id" gorm:"primaryKey;size:36"`
	SourceFile  string    `json:"source_file" gorm:"size:255;index"`
	RecordCount int       `json:"record_count" gorm:"default:0"`
	Status      string    `json:"status" gorm:"size:20;index"`
	Error       string    `json:"error,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (IngestionBatch) TableName() string {
	return "ingestion_batches"
}
