// Package openai 提供兼容 OpenAI Embeddings API 的嵌入 Provider。
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/knowledge-x/pkg/llm"
	"github.com/kart-io/knowledge-x/pkg/utils/httpclient"
)

const (
	// ProviderName Provider 注册名。
	ProviderName = "openai"

	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "text-embedding-3-small"
	defaultDimension = 1536
)

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, NewFromConfig)
}

// Config OpenAI Provider 配置。
type Config struct {
	BaseURL    string
	APIKey     string
	EmbedModel string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

// Provider 实现 llm.EmbeddingProvider。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewFromConfig 从通用配置映射创建 Provider。
func NewFromConfig(config map[string]interface{}) (llm.EmbeddingProvider, error) {
	cfg := &Config{
		BaseURL:    defaultBaseURL,
		EmbedModel: defaultModel,
		Dimension:  defaultDimension,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}

	if v, ok := config["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := config["api_key"].(string); ok {
		cfg.APIKey = v
	}
	if v, ok := config["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := config["dimension"].(int); ok && v > 0 {
		cfg.Dimension = v
	}
	if v, ok := config["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := config["max_retries"].(int); ok && v >= 0 {
		cfg.MaxRetries = v
	}

	return New(cfg)
}

// New 创建 OpenAI Provider。
func New(cfg *Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	return &Provider{
		config: cfg,
		client: httpclient.New(cfg.Timeout, cfg.MaxRetries),
	}, nil
}

// Name 实现 llm.EmbeddingProvider。
func (p *Provider) Name() string { return ProviderName }

// Dimension 实现 llm.EmbeddingProvider。
func (p *Provider) Dimension() int { return p.config.Dimension }

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + p.config.APIKey,
	}
}

func (p *Provider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	url := p.config.BaseURL + "/embeddings"
	req := embeddingsRequest{Model: p.config.EmbedModel, Input: texts}

	var resp embeddingsResponse
	if err := p.client.DoJSON(ctx, http.MethodPost, url, req, &resp, p.headers()); err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	result := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(result) {
			result[d.Index] = d.Embedding
		}
	}
	return result, nil
}

// EmbedDocument 实现 llm.EmbeddingProvider。
func (p *Provider) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || vecs[0] == nil {
		return nil, fmt.Errorf("openai embed: empty embedding returned")
	}
	return vecs[0], nil
}

// EmbedQuery 实现 llm.EmbeddingProvider。
// OpenAI 嵌入为对称模型，查询与文档使用同一端点。
func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return p.EmbedDocument(ctx, text)
}

// EmbedDocumentBatch 实现 llm.EmbeddingProvider。
// 整批失败时退化为逐条嵌入，单条失败置 nil。
func (p *Provider) EmbedDocumentBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs, err := p.embedBatch(ctx, texts)
	if err == nil {
		return vecs, nil
	}

	logger.Warnw("OpenAI 批量嵌入失败，退化为逐条嵌入", "count", len(texts), "error", err)

	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, embedErr := p.EmbedDocument(ctx, text)
		if embedErr != nil {
			logger.Errorw("OpenAI 单条嵌入失败", "index", i, "error", embedErr)
			continue
		}
		result[i] = vec
	}
	return result, nil
}
