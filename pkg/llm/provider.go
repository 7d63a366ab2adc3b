// Package llm 提供向量嵌入服务的抽象与 Provider 注册机制。
package llm

import (
	"context"
	"fmt"
	"sync"
)

// EmbeddingProvider 定义嵌入服务的统一接口。
// 文档与查询使用不对称嵌入：文档按存储语义嵌入，查询按检索语义嵌入。
type EmbeddingProvider interface {
	// Name 返回 Provider 名称。
	Name() string

	// Dimension 返回嵌入向量维度。
	Dimension() int

	// EmbedDocument 为单个文档文本生成嵌入向量。
	EmbedDocument(ctx context.Context, text string) ([]float32, error)

	// EmbedDocumentBatch 为一批文档文本生成嵌入向量。
	// 返回切片与输入等长且顺序一致；单条失败时对应位置为 nil，不中断整批。
	EmbedDocumentBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery 为查询文本生成嵌入向量。
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingFactory 根据配置创建 EmbeddingProvider。
type EmbeddingFactory func(config map[string]interface{}) (EmbeddingProvider, error)

var (
	factoryMu sync.RWMutex
	factories = make(map[string]EmbeddingFactory)
)

// RegisterEmbeddingProvider 注册 Provider 工厂，通常在 Provider 包的 init() 中调用。
func RegisterEmbeddingProvider(name string, factory EmbeddingFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("llm: embedding provider %q registered twice", name))
	}
	factories[name] = factory
}

// NewEmbeddingProvider 按名称创建 Provider。
func NewEmbeddingProvider(name string, config map[string]interface{}) (EmbeddingProvider, error) {
	factoryMu.RLock()
	factory, ok := factories[name]
	factoryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("llm: unknown embedding provider %q", name)
	}
	return factory(config)
}

// ListEmbeddingProviders 返回已注册的 Provider 名称。
func ListEmbeddingProviders() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
