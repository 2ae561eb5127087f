package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/cloudwego/eino/components/embedding"
)

// MockEmbedder 确定性的本地向量化器
// 相同文本总是产出相同的单位向量，用于测试与无外部提供方的开发模式
type MockEmbedder struct {
	Dim int
}

// NewMockEmbedder 创建确定性向量化器
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{Dim: dim}
}

// EmbedStrings 实现 eino embedding.Embedder
func (m *MockEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	result := make([][]float64, len(texts))
	for i, text := range texts {
		result[i] = m.embedOne(text)
	}
	return result, nil
}

// embedOne 由文本哈希展开为单位向量
func (m *MockEmbedder) embedOne(text string) []float64 {
	vec := make([]float64, m.Dim)
	seed := sha256.Sum256([]byte(text))

	var norm float64
	for j := 0; j < m.Dim; j++ {
		// 每 4 个分量消耗一轮哈希，保证任意维度都可展开
		if j%4 == 0 && j > 0 {
			seed = sha256.Sum256(seed[:])
		}
		bits := binary.BigEndian.Uint64(seed[(j%4)*8 : (j%4)*8+8])
		v := float64(int64(bits%2000)-1000) / 1000.0
		vec[j] = v
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for j := range vec {
		vec[j] /= norm
	}
	return vec
}

var _ embedding.Embedder = (*MockEmbedder)(nil)
