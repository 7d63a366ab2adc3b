package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"
	"gorm.io/gorm"

	"github.com/kart-io/knowledge-x/internal/kb/store"
	"github.com/kart-io/knowledge-x/internal/kb/vstore"
	"github.com/kart-io/knowledge-x/internal/model"
	"github.com/kart-io/knowledge-x/internal/pkg/kb/chunker"
	"github.com/kart-io/knowledge-x/internal/pkg/kb/parser"
	"github.com/kart-io/knowledge-x/internal/pkg/kb/textutil"
	"github.com/kart-io/knowledge-x/pkg/component/storage"
	"github.com/kart-io/knowledge-x/pkg/infra/pool"
	"github.com/kart-io/knowledge-x/pkg/llm"
	"github.com/kart-io/knowledge-x/pkg/utils/errors"
)

// 摘要最大字符数，超出部分截断。
const summaryMaxLen = 500

// 后台处理任务的超时时间。
const processTaskTimeout = 10 * time.Minute

// ProcessResult 单个文档的处理结果。
type ProcessResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	ChunksCreated int    `json:"chunks_created"`
	TotalTokens   int    `json:"total_tokens"`
}

// EnqueueResult 异步处理请求的受理结果。
type EnqueueResult struct {
	DocumentID int64  `json:"document_id"`
	Queued     bool   `json:"queued"`
	Message    string `json:"message,omitempty"`
}

// EnqueueAllResult 批量处理请求的受理结果。
type EnqueueAllResult struct {
	Queued      int     `json:"queued"`
	DocumentIDs []int64 `json:"document_ids"`
}

// StatusResult 文档处理状态。
type StatusResult struct {
	DocumentID   int64                `json:"document_id"`
	Status       model.DocumentStatus `json:"status"`
	ChunkCount   int64                `json:"chunk_count"`
	Summary      string               `json:"summary,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	ProcessedAt  *time.Time           `json:"processed_at,omitempty"`
}

// ProcessorBiz 文档摄取管线。
type ProcessorBiz interface {
	// Process 同步执行完整摄取管线。
	Process(ctx context.Context, companyID, documentID int64) (*ProcessResult, error)
	// Enqueue 受理异步处理请求并提交后台任务。
	Enqueue(ctx context.Context, companyID, documentID int64) (*EnqueueResult, error)
	// EnqueueAll 批量受理租户所有待处理文档。
	EnqueueAll(ctx context.Context, companyID int64) (*EnqueueAllResult, error)
	// Status 查询文档处理状态。
	Status(ctx context.Context, companyID, documentID int64) (*StatusResult, error)
}

type processorBiz struct {
	ds       store.Factory
	vs       vstore.VectorStore
	provider llm.EmbeddingProvider
	parsers  *parser.Registry
	chunker  *chunker.Chunker
	files    *storage.FileStorage
}

func newProcessorBiz(
	ds store.Factory,
	vs vstore.VectorStore,
	provider llm.EmbeddingProvider,
	parsers *parser.Registry,
	chk *chunker.Chunker,
	files *storage.FileStorage,
) ProcessorBiz {
	return &processorBiz{
		ds:       ds,
		vs:       vs,
		provider: provider,
		parsers:  parsers,
		chunker:  chk,
		files:    files,
	}
}

// Process 执行摄取管线：解析、切块、嵌入、建索引、更新状态。
func (p *processorBiz) Process(ctx context.Context, companyID, documentID int64) (*ProcessResult, error) {
	doc, err := p.ds.Documents().Get(ctx, companyID, documentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrKBDocumentNotFound
		}
		return nil, errors.ErrDatabase.WithCause(err)
	}

	if doc.Status == model.DocumentStatusProcessed {
		return &ProcessResult{Success: true, Message: "already processed"}, nil
	}

	// 条件更新抢占处理权，并发请求只有一个能成功
	claimed, err := p.ds.Documents().ClaimForProcessing(ctx, doc.ID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if !claimed {
		return nil, errors.ErrKBAlreadyProcessing
	}

	result, err := p.run(ctx, doc)
	if err != nil {
		if setErr := p.ds.Documents().SetError(ctx, doc.ID, err.Error()); setErr != nil {
			logger.Errorw("更新文档错误状态失败", "document_id", doc.ID, "error", setErr)
		}
		return nil, err
	}
	return result, nil
}

func (p *processorBiz) run(ctx context.Context, doc *model.Document) (*ProcessResult, error) {
	path, err := p.files.Resolve(doc.StoragePath)
	if err != nil {
		return nil, errors.ErrKBFileNotFound.WithCause(err)
	}

	text, err := p.parsers.Parse(path, doc.MimeType)
	if err != nil {
		return nil, err
	}

	chunks := p.chunker.Split(text, doc.ID)
	if len(chunks) == 0 {
		return nil, errors.ErrKBEmptyContent
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := p.provider.EmbedDocumentBatch(ctx, texts)
	if err != nil {
		return nil, errors.ErrKBEmbeddingFailed.WithCause(err)
	}

	// 剔除嵌入失败的块并重新连续编号
	var validChunks []chunker.Chunk
	var validVectors [][]float32
	for i, vec := range vectors {
		if vec == nil {
			logger.Warnw("块嵌入失败，已跳过", "document_id", doc.ID, "chunk_index", chunks[i].Index)
			continue
		}
		c := chunks[i]
		c.Index = len(validChunks)
		validChunks = append(validChunks, c)
		validVectors = append(validVectors, vec)
	}
	if len(validChunks) == 0 {
		return nil, errors.ErrKBEmbeddingFailed.WithMessage("no chunk could be embedded")
	}

	// 重试场景下清理上一轮残留
	if err := p.ds.Chunks().DeleteByDocument(ctx, doc.ID); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if err := p.vs.DeleteByDocument(ctx, doc.ID); err != nil {
		logger.Warnw("清理历史向量失败", "document_id", doc.ID, "error", err)
	}

	totalTokens := 0
	rows := make([]*model.Chunk, 0, len(validChunks))
	entries := make([]vstore.Entry, 0, len(validChunks))
	for i, c := range validChunks {
		totalTokens += c.TokenCount
		rows = append(rows, &model.Chunk{
			DocumentID: doc.ID,
			CompanyID:  doc.CompanyID,
			ChunkIndex: c.Index,
			VectorKey:  c.Key,
			ChunkText:  c.Content,
			TokenCount: c.TokenCount,
		})
		entries = append(entries, vstore.Entry{
			Key:        c.Key,
			Vector:     validVectors[i],
			DocumentID: doc.ID,
			CompanyID:  doc.CompanyID,
			ChunkIndex: int64(c.Index),
			Filename:   doc.Filename,
			ChunkText:  c.Content,
		})
	}

	if err := p.ds.Chunks().CreateBatch(ctx, rows); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	if err := p.vs.Upsert(ctx, entries); err != nil {
		return nil, errors.ErrKBIndexFailed.WithCause(err)
	}

	now := time.Now()
	doc.Status = model.DocumentStatusProcessed
	doc.Summary = textutil.Truncate(text, summaryMaxLen)
	doc.ErrorMessage = ""
	doc.ProcessedAt = &now
	if err := p.ds.Documents().Update(ctx, doc); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	logger.Infow("文档处理完成",
		"document_id", doc.ID,
		"company_id", doc.CompanyID,
		"chunks", len(validChunks),
		"total_tokens", totalTokens,
	)

	return &ProcessResult{
		Success:       true,
		ChunksCreated: len(validChunks),
		TotalTokens:   totalTokens,
	}, nil
}

// Enqueue 受理单个文档的后台处理。
func (p *processorBiz) Enqueue(ctx context.Context, companyID, documentID int64) (*EnqueueResult, error) {
	doc, err := p.ds.Documents().Get(ctx, companyID, documentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrKBDocumentNotFound
		}
		return nil, errors.ErrDatabase.WithCause(err)
	}

	if doc.Status == model.DocumentStatusProcessed {
		return &EnqueueResult{DocumentID: doc.ID, Queued: false, Message: "already processed"}, nil
	}

	p.submit(companyID, documentID)
	return &EnqueueResult{DocumentID: doc.ID, Queued: true}, nil
}

// EnqueueAll 受理租户全部待处理文档。
func (p *processorBiz) EnqueueAll(ctx context.Context, companyID int64) (*EnqueueAllResult, error) {
	docs, err := p.ds.Documents().ListByStatus(ctx, companyID, model.DocumentStatusUploaded)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	result := &EnqueueAllResult{DocumentIDs: make([]int64, 0, len(docs))}
	for _, doc := range docs {
		p.submit(companyID, doc.ID)
		result.DocumentIDs = append(result.DocumentIDs, doc.ID)
		result.Queued++
	}
	return result, nil
}

// submit 将处理任务提交到摄取协程池，池不可用时降级为裸 goroutine。
func (p *processorBiz) submit(companyID, documentID int64) {
	task := func() {
		taskCtx, cancel := context.WithTimeout(context.Background(), processTaskTimeout)
		defer cancel()

		if _, err := p.Process(taskCtx, companyID, documentID); err != nil {
			logger.Errorw("后台文档处理失败", "document_id", documentID, "error", err)
		}
	}

	if err := pool.SubmitTo(pool.IngestPool, task); err != nil {
		logger.Warnw("协程池提交失败，降级为独立 goroutine", "document_id", documentID, "error", err)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorw("后台处理任务 panic", "document_id", documentID, "panic", r)
				}
			}()
			task()
		}()
	}
}

// Status 查询文档处理状态。
func (p *processorBiz) Status(ctx context.Context, companyID, documentID int64) (*StatusResult, error) {
	doc, err := p.ds.Documents().Get(ctx, companyID, documentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrKBDocumentNotFound
		}
		return nil, errors.ErrDatabase.WithCause(err)
	}

	chunkCount, err := p.ds.Chunks().CountByDocument(ctx, doc.ID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	return &StatusResult{
		DocumentID:   doc.ID,
		Status:       doc.Status,
		ChunkCount:   chunkCount,
		Summary:      doc.Summary,
		ErrorMessage: doc.ErrorMessage,
		ProcessedAt:  doc.ProcessedAt,
	}, nil
}
