package vstore

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/knowledge-x/pkg/component/milvus"
)

// Milvus 基于 Milvus 集合的向量索引实现。
type Milvus struct {
	client     *milvus.Client
	collection string
	dimension  int
}

// NewMilvus 创建 Milvus 向量索引。
func NewMilvus(client *milvus.Client, collection string, dimension int) *Milvus {
	return &Milvus{
		client:     client,
		collection: collection,
		dimension:  dimension,
	}
}

// EnsureCollection 实现 VectorStore，确保集合存在并已加载。
func (m *Milvus) EnsureCollection(ctx context.Context) error {
	return m.client.CreateCollection(ctx, &milvus.CollectionSchema{
		Name:        m.collection,
		Description: "knowledge base document chunks",
		Dimension:   m.dimension,
		MetaFields: []milvus.MetaField{
			{Name: "document_id", DataType: entity.FieldTypeInt64},
			{Name: "company_id", DataType: entity.FieldTypeInt64},
			{Name: "chunk_index", DataType: entity.FieldTypeInt64},
			{Name: "filename", DataType: entity.FieldTypeVarChar, MaxLen: 255},
			{Name: "chunk_text", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
		},
	})
}

// Upsert 实现 VectorStore。
func (m *Milvus) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, 0, len(entries))
	vectors := make([][]float32, 0, len(entries))
	documentIDs := make([]int64, 0, len(entries))
	companyIDs := make([]int64, 0, len(entries))
	chunkIndexes := make([]int64, 0, len(entries))
	filenames := make([]string, 0, len(entries))
	chunkTexts := make([]string, 0, len(entries))

	for _, entry := range entries {
		ids = append(ids, entry.Key)
		vectors = append(vectors, entry.Vector)
		documentIDs = append(documentIDs, entry.DocumentID)
		companyIDs = append(companyIDs, entry.CompanyID)
		chunkIndexes = append(chunkIndexes, entry.ChunkIndex)
		filenames = append(filenames, entry.Filename)
		chunkTexts = append(chunkTexts, entry.ChunkText)
	}

	return m.client.Insert(ctx, m.collection, ids, vectors, []column.Column{
		column.NewColumnInt64("document_id", documentIDs),
		column.NewColumnInt64("company_id", companyIDs),
		column.NewColumnInt64("chunk_index", chunkIndexes),
		column.NewColumnVarChar("filename", filenames),
		column.NewColumnVarChar("chunk_text", chunkTexts),
	})
}

// Search 实现 VectorStore，按租户过滤后检索。
func (m *Milvus) Search(ctx context.Context, vector []float32, topK int, companyID int64) ([]Candidate, error) {
	expr := fmt.Sprintf("company_id == %d", companyID)
	outputFields := []string{"document_id", "company_id", "chunk_index", "filename", "chunk_text"}

	results, err := m.client.Search(ctx, m.collection, vector, topK, expr, outputFields)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(results))
	for _, res := range results {
		candidates = append(candidates, Candidate{
			Key:        res.ID,
			Score:      res.Score,
			DocumentID: fieldInt64(res.Fields, "document_id"),
			CompanyID:  fieldInt64(res.Fields, "company_id"),
			ChunkIndex: fieldInt64(res.Fields, "chunk_index"),
			Filename:   fieldString(res.Fields, "filename"),
			ChunkText:  fieldString(res.Fields, "chunk_text"),
		})
	}
	return candidates, nil
}

// DeleteByDocument 实现 VectorStore。
func (m *Milvus) DeleteByDocument(ctx context.Context, documentID int64) error {
	return m.client.DeleteByExpr(ctx, m.collection, fmt.Sprintf("document_id == %d", documentID))
}

// Stats 实现 VectorStore。
func (m *Milvus) Stats(ctx context.Context) (int64, error) {
	return m.client.GetRowCount(ctx, m.collection)
}

// Close 实现 VectorStore。
func (m *Milvus) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}

func fieldInt64(fields map[string]interface{}, name string) int64 {
	switch v := fields[name].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}

func fieldString(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
