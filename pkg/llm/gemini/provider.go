// Package gemini 提供基于 Google Gemini API 的嵌入 Provider。
package gemini

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
	ProviderName = "gemini"

	defaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel     = "embedding-001"
	defaultDimension = 768

	// 嵌入任务类型：文档与查询使用不同的任务类型以获得不对称嵌入。
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, NewFromConfig)
}

// Config Gemini Provider 配置。
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

// New 创建 Gemini Provider。
func New(cfg *Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
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

type embedContentPart struct {
	Text string `json:"text"`
}

type embedContent struct {
	Parts []embedContentPart `json:"parts"`
}

type embedContentRequest struct {
	Model    string       `json:"model"`
	Content  embedContent `json:"content"`
	TaskType string       `json:"taskType,omitempty"`
}

type embedContentResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

type batchEmbedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

func (p *Provider) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s",
		p.config.BaseURL, p.config.EmbedModel, p.config.APIKey)

	req := embedContentRequest{
		Model:    fmt.Sprintf("models/%s", p.config.EmbedModel),
		Content:  embedContent{Parts: []embedContentPart{{Text: text}}},
		TaskType: taskType,
	}

	var resp embedContentResponse
	if err := p.client.DoJSON(ctx, http.MethodPost, url, req, &resp, nil); err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed: empty embedding returned")
	}
	return resp.Embedding.Values, nil
}

// EmbedDocument 实现 llm.EmbeddingProvider。
func (p *Provider) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return p.embed(ctx, text, taskTypeDocument)
}

// EmbedQuery 实现 llm.EmbeddingProvider。
func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return p.embed(ctx, text, taskTypeQuery)
}

// EmbedDocumentBatch 实现 llm.EmbeddingProvider。
// 优先调用 batchEmbedContents；整批失败时退化为逐条嵌入，单条失败置 nil。
func (p *Provider) EmbedDocumentBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	url := fmt.Sprintf("%s/models/%s:batchEmbedContents?key=%s",
		p.config.BaseURL, p.config.EmbedModel, p.config.APIKey)

	req := batchEmbedRequest{Requests: make([]embedContentRequest, 0, len(texts))}
	for _, text := range texts {
		req.Requests = append(req.Requests, embedContentRequest{
			Model:    fmt.Sprintf("models/%s", p.config.EmbedModel),
			Content:  embedContent{Parts: []embedContentPart{{Text: text}}},
			TaskType: taskTypeDocument,
		})
	}

	var resp batchEmbedResponse
	if err := p.client.DoJSON(ctx, http.MethodPost, url, req, &resp, nil); err == nil &&
		len(resp.Embeddings) == len(texts) {
		result := make([][]float32, len(texts))
		for i, e := range resp.Embeddings {
			if len(e.Values) > 0 {
				result[i] = e.Values
			}
		}
		return result, nil
	}

	logger.Warnw("Gemini 批量嵌入失败，退化为逐条嵌入", "count", len(texts))

	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.embed(ctx, text, taskTypeDocument)
		if err != nil {
			logger.Errorw("Gemini 单条嵌入失败", "index", i, "error", err)
			continue
		}
		result[i] = vec
	}
	return result, nil
}
