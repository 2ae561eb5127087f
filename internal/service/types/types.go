// Package types 提供跨服务共享的核心类型，避免循环导入
package types

// QARecord 一条已摄取的问答记录（向量索引中的最小单元）
type QARecord struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	AnswerPosition int       `json:"answer_position"` // 该答案在同一行答案中的序号（从 1 开始）
	TotalAnswers   int       `json:"total_answers"`   // 同一行非空答案总数
	SourceFile     string    `json:"source_file"`
	BatchID        string    `json:"batch_id"`
	Embedding      []float64 `json:"embedding,omitempty"`
}

// RetrievedSource 检索命中的来源（仅查询期间存在，不落库）
type RetrievedSource struct {
	Question       string  `json:"question"`
	Answer         string  `json:"answer"`
	RelevanceScore float64 `json:"relevance_score"`
	AnswerPosition int     `json:"answer_position,omitempty"`
	TotalAnswers   int     `json:"total_answers,omitempty"`
}

// SearchHit 向量索引的单条检索结果
type SearchHit struct {
	Record QARecord `json:"record"`
	Score  float64  `json:"score"`
}

// SearchFilter 检索过滤条件（按来源标签过滤）
type SearchFilter struct {
	BatchID    string
	SourceFile string
}

// IndexStats 向量索引统计信息
type IndexStats struct {
	VectorCount int64  `json:"vector_count"`
	Dimension   int    `json:"dimension"`
	IndexName   string `json:"index_name"`
}
