// Package llm provides embedding provider configuration options.
package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/knowledge-x/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义 Embedding 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（gemini, openai, fake）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的 Embedding 模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Dimension 向量维度，须与模型输出一致。
	Dimension int `json:"dimension" mapstructure:"dimension"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewProviderOptions 创建默认 Embedding 供应商配置。
func NewProviderOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "gemini",
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
		Model:      "embedding-001",
		Dimension:  768,
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":    o.BaseURL,
		"api_key":     o.APIKey,
		"embed_model": o.Model,
		"dimension":   o.Dimension,
		"timeout":     o.Timeout,
		"max_retries": o.MaxRetries,
	}
}

// AddFlags adds flags for embedding provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Provider, options.Join(prefixes...)+"embedding.provider", o.Provider, "Embedding provider (gemini, openai, fake).")
	fs.StringVar(&o.BaseURL, options.Join(prefixes...)+"embedding.base-url", o.BaseURL, "Embedding API base URL.")
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"embedding.api-key", o.APIKey, "Embedding API key (DEPRECATED: use EMBEDDING_API_KEY env var instead).")
	fs.StringVar(&o.Model, options.Join(prefixes...)+"embedding.model", o.Model, "Embedding model name.")
	fs.IntVar(&o.Dimension, options.Join(prefixes...)+"embedding.dimension", o.Dimension, "Embedding vector dimension.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"embedding.timeout", o.Timeout, "Embedding request timeout.")
	fs.IntVar(&o.MaxRetries, options.Join(prefixes...)+"embedding.max-retries", o.MaxRetries, "Embedding maximum number of retries.")
}

// Validate validates the embedding provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	if o.APIKey == "" {
		o.APIKey = os.Getenv("EMBEDDING_API_KEY")
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("embedding provider is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("embedding model is required"))
	}
	if o.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding dimension must be positive"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("embedding timeout must be positive"))
	}
	return errs
}

// Complete completes the embedding provider options with defaults.
func (o *ProviderOptions) Complete() error {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	return nil
}
