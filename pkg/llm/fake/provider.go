// Package fake 提供确定性的本地嵌入 Provider，用于测试与离线开发。
package fake

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"

	"github.com/kart-io/knowledge-x/pkg/llm"
)

const (
	// ProviderName Provider 注册名。
	ProviderName = "fake"

	defaultDimension = 64
)

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, NewFromConfig)
}

// Provider 基于文本哈希生成确定性向量。
// 相同文本得到相同向量，不同文本的向量近似正交，足以驱动检索路径的测试。
type Provider struct {
	dimension int
	failOn    map[string]struct{}
}

// NewFromConfig 从通用配置映射创建 Provider。
func NewFromConfig(config map[string]interface{}) (llm.EmbeddingProvider, error) {
	dim := defaultDimension
	if v, ok := config["dimension"].(int); ok && v > 0 {
		dim = v
	}
	return New(dim), nil
}

// New 创建指定维度的 fake Provider。
func New(dimension int) *Provider {
	return &Provider{
		dimension: dimension,
		failOn:    make(map[string]struct{}),
	}
}

// FailOn 使包含指定子串的文本嵌入失败，用于测试部分失败路径。
func (p *Provider) FailOn(substr string) {
	p.failOn[substr] = struct{}{}
}

// Name 实现 llm.EmbeddingProvider。
func (p *Provider) Name() string { return ProviderName }

// Dimension 实现 llm.EmbeddingProvider。
func (p *Provider) Dimension() int { return p.dimension }

func (p *Provider) shouldFail(text string) bool {
	for substr := range p.failOn {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func (p *Provider) vectorFor(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, p.dimension)

	var norm float64
	for i := 0; i < p.dimension; i++ {
		// 循环取哈希字节生成伪随机分量
		chunk := sum[(i*4)%28 : (i*4)%28+4]
		bits := binary.BigEndian.Uint32(chunk) + uint32(i)
		val := float32(bits%2000)/1000.0 - 1.0
		vec[i] = val
		norm += float64(val) * float64(val)
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

// EmbedDocument 实现 llm.EmbeddingProvider。
func (p *Provider) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	if p.shouldFail(text) {
		return nil, errEmbedFailed
	}
	return p.vectorFor(text), nil
}

// EmbedQuery 实现 llm.EmbeddingProvider。
func (p *Provider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if p.shouldFail(text) {
		return nil, errEmbedFailed
	}
	return p.vectorFor(text), nil
}

// EmbedDocumentBatch 实现 llm.EmbeddingProvider。
func (p *Provider) EmbedDocumentBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.EmbedDocument(ctx, text)
		if err != nil {
			continue
		}
		result[i] = vec
	}
	return result, nil
}
