// Package kbopts provides knowledge-base pipeline configuration options.
package kbopts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/knowledge-x/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options 定义知识库管线配置。
type Options struct {
	// Collection 向量集合名称。
	Collection string `json:"collection" mapstructure:"collection"`

	// ChunkSize 单个文档块的最大 token 数。
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap 相邻文档块之间的重叠 token 预算。
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK 检索默认返回的结果数。
	TopK int `json:"top-k" mapstructure:"top-k"`

	// SnippetMaxLen 摘要片段最大字符数。
	SnippetMaxLen int `json:"snippet-max-len" mapstructure:"snippet-max-len"`

	// StoragePath 上传文件的本地存储根目录。
	StoragePath string `json:"storage-path" mapstructure:"storage-path"`

	// RateLimit 检索与处理接口的限流（每窗口请求数）。
	RateLimit int `json:"rate-limit" mapstructure:"rate-limit"`

	// RateLimitWindow 限流时间窗口。
	RateLimitWindow time.Duration `json:"rate-limit-window" mapstructure:"rate-limit-window"`
}

// NewOptions 创建默认配置。
func NewOptions() *Options {
	return &Options{
		Collection:      "kb_documents",
		ChunkSize:       800,
		ChunkOverlap:    100,
		TopK:            5,
		SnippetMaxLen:   200,
		StoragePath:     "data/storage",
		RateLimit:       30,
		RateLimitWindow: time.Minute,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"kb.collection", o.Collection, "Vector collection name.")
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"kb.chunk-size", o.ChunkSize, "Maximum tokens per chunk.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"kb.chunk-overlap", o.ChunkOverlap, "Token overlap between adjacent chunks.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"kb.top-k", o.TopK, "Default number of search results.")
	fs.IntVar(&o.SnippetMaxLen, options.Join(prefixes...)+"kb.snippet-max-len", o.SnippetMaxLen, "Maximum snippet length in characters.")
	fs.StringVar(&o.StoragePath, options.Join(prefixes...)+"kb.storage-path", o.StoragePath, "Local storage root for uploaded files.")
	fs.IntVar(&o.RateLimit, options.Join(prefixes...)+"kb.rate-limit", o.RateLimit, "Requests allowed per rate-limit window.")
	fs.DurationVar(&o.RateLimitWindow, options.Join(prefixes...)+"kb.rate-limit-window", o.RateLimitWindow, "Rate-limit window duration.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("kb collection is required"))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("kb chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("kb chunk-overlap must be in [0, chunk-size)"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("kb top-k must be positive"))
	}
	if o.StoragePath == "" {
		errs = append(errs, fmt.Errorf("kb storage-path is required"))
	}
	return errs
}
