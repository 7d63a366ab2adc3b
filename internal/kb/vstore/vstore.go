// Package vstore 定义向量索引抽象，屏蔽 Milvus 与内存实现的差异。
package vstore

import "context"

// Entry 一条待写入向量索引的块记录。
type Entry struct {
	// Key 块的全局唯一标识，作为向量主键。
	Key string
	// Vector 嵌入向量。
	Vector []float32
	// DocumentID 所属文档。
	DocumentID int64
	// CompanyID 所属租户，检索时的硬过滤条件。
	CompanyID int64
	// ChunkIndex 块在文档内的序号。
	ChunkIndex int64
	// Filename 原始文件名，文档记录缺失时的回退展示信息。
	Filename string
	// ChunkText 块文本，用于生成检索摘要。
	ChunkText string
}

// Candidate 一条检索候选结果。
type Candidate struct {
	Key        string
	Score      float32
	DocumentID int64
	CompanyID  int64
	ChunkIndex int64
	Filename   string
	ChunkText  string
}

// VectorStore 向量索引接口。
type VectorStore interface {
	// EnsureCollection 初始化底层集合或索引结构。
	EnsureCollection(ctx context.Context) error

	// Upsert 批量写入向量记录。
	Upsert(ctx context.Context, entries []Entry) error

	// Search 按向量检索指定租户的 topK 候选，按相似度降序返回。
	Search(ctx context.Context, vector []float32, topK int, companyID int64) ([]Candidate, error)

	// DeleteByDocument 删除指定文档的全部向量记录。
	DeleteByDocument(ctx context.Context, documentID int64) error

	// Stats 返回索引中的记录总数。
	Stats(ctx context.Context) (int64, error)

	// Close 释放底层资源。
	Close(ctx context.Context) error
}
