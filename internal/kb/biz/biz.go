// Package biz 实现知识库服务的业务逻辑层：文档管理、摄取管线与语义检索。
package biz

import (
	"github.com/kart-io/knowledge-x/internal/kb/store"
	"github.com/kart-io/knowledge-x/internal/kb/vstore"
	"github.com/kart-io/knowledge-x/internal/pkg/kb/chunker"
	"github.com/kart-io/knowledge-x/internal/pkg/kb/parser"
	"github.com/kart-io/knowledge-x/pkg/component/storage"
	"github.com/kart-io/knowledge-x/pkg/llm"
	kbopts "github.com/kart-io/knowledge-x/pkg/options/kb"
)

// IBiz 业务逻辑层入口。
type IBiz interface {
	Documents() DocumentBiz
	Processor() ProcessorBiz
	Search() SearchBiz
}

type biz struct {
	documents DocumentBiz
	processor ProcessorBiz
	search    SearchBiz
}

// NewBiz 装配业务逻辑层。
func NewBiz(
	ds store.Factory,
	vs vstore.VectorStore,
	provider llm.EmbeddingProvider,
	parsers *parser.Registry,
	chk *chunker.Chunker,
	files *storage.FileStorage,
	opts *kbopts.Options,
) IBiz {
	return &biz{
		documents: newDocumentBiz(ds, vs, files),
		processor: newProcessorBiz(ds, vs, provider, parsers, chk, files),
		search:    newSearchBiz(ds, vs, provider, opts),
	}
}

func (b *biz) Documents() DocumentBiz  { return b.documents }
func (b *biz) Processor() ProcessorBiz { return b.processor }
func (b *biz) Search() SearchBiz       { return b.search }
