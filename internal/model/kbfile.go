package model

import (
	"encoding/json"
	"time"
)

// KnowledgeBaseFile 知识库文件注册表条目（镜像一个已提交批次）
// BatchID 必须指向索引中实际存在的向量集合（删除后为空集）
type KnowledgeBaseFile struct {
	Filename   string    `json:"filename" gorm:"primaryKey;size:255"`
	SizeBytes  int64     `json:"size_bytes"`
	BatchID    string    `json:"batch_id" gorm:"size:36;index"`
	// SampleQuestions 该文件的示例问题（JSON 数组，供前端引导提问）
	SampleQuestions string    `json:"-" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	ModifiedAt      time.Time `json:"modified_at" gorm:"autoUpdateTime"`
}

// SetSamples 序列化示例问题
func (f *KnowledgeBaseFile) SetSamples(questions []string) {
	data, err := json.Marshal(questions)
	if err != nil {
		return
	}
	f.SampleQuestions = string(data)
}

// Samples 反序列化示例问题
func (f *KnowledgeBaseFile) Samples() []string {
	if f.SampleQuestions == "" {
		return nil
	}
	var questions []string
	if err := json.Unmarshal([]byte(f.SampleQuestions), &questions); err != nil {
		return nil
	}
	return questions
}

// TableName 指定表名
func (KnowledgeBaseFile) TableName() string {
	return "knowledge_base_files"
}

// SizeMB 文件大小（MB，保留两位有效精度由展示层处理）
func (f *KnowledgeBaseFile) SizeMB() float64 {
	return float64(f.SizeBytes) / (1024 * 1024)
}
