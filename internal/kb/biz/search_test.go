package biz

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/knowledge-x/internal/kb/vstore"
	"github.com/kart-io/knowledge-x/internal/model"
	"github.com/kart-io/knowledge-x/pkg/utils/errors"
)

// seedChunk 直接向存储与向量索引写入一条已处理的块记录。
func (e *testEnv) seedChunk(t *testing.T, companyID int64, filename, chunkText string, chunkIndex int64) *model.Document {
	t.Helper()
	ctx := context.Background()

	doc := &model.Document{
		CompanyID:   companyID,
		UploadedBy:  7,
		Filename:    filename,
		MimeType:    "text/plain",
		StoragePath: "company_x/seed.txt",
		Status:      model.DocumentStatusProcessed,
	}
	require.NoError(t, e.ds.Documents().Create(ctx, doc))

	e.seedVector(t, doc.ID, companyID, filename, chunkText, chunkIndex)
	return doc
}

func (e *testEnv) seedVector(t *testing.T, docID, companyID int64, filename, chunkText string, chunkIndex int64) {
	t.Helper()
	ctx := context.Background()

	vec, err := e.provider.EmbedDocument(ctx, chunkText)
	require.NoError(t, err)

	require.NoError(t, e.vs.Upsert(ctx, []vstore.Entry{{
		Key:        uniqueKey(docID, chunkIndex),
		Vector:     vec,
		DocumentID: docID,
		CompanyID:  companyID,
		ChunkIndex: chunkIndex,
		Filename:   filename,
		ChunkText:  chunkText,
	}}))
}

var keyCounter atomic.Int64

func uniqueKey(docID, chunkIndex int64) string {
	return fmt.Sprintf("doc_%d_chunk_%d_seed%04d", docID, chunkIndex, keyCounter.Add(1))
}

func TestSearch_基本检索(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	target := "kubernetes deployment rollout strategies"
	env.seedChunk(t, 1, "ops.txt", target, 0)
	env.seedChunk(t, 1, "misc.txt", "cooking recipes for pasta dishes", 0)

	resp, err := env.biz.Search().Search(ctx, 1, 7, &SearchRequest{Query: target})
	require.NoError(t, err)

	require.NotEmpty(t, resp.Results)
	assert.Equal(t, target, resp.Query)
	assert.Equal(t, len(resp.Results), resp.TotalResults)
	assert.Equal(t, "ops.txt", resp.Results[0].Filename)
	assert.Equal(t, "txt", resp.Results[0].FileType)
	assert.Equal(t, target, resp.Results[0].ChunkText)
	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-3)
	assert.GreaterOrEqual(t, resp.SearchTimeMs, int64(0))

	// 分数降序
	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
	}
}

func TestSearch_空查询(t *testing.T) {
	env := newTestEnv(t, 800, 100)

	_, err := env.biz.Search().Search(context.Background(), 1, 7, &SearchRequest{Query: "   "})
	assert.ErrorIs(t, err, errors.ErrKBInvalidRequest)
}

func TestSearch_租户隔离(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	text := "tenant one confidential notes"
	env.seedChunk(t, 1, "secret.txt", text, 0)

	resp, err := env.biz.Search().Search(ctx, 2, 7, &SearchRequest{Query: text})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearch_文件类型过滤(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	text := "quarterly financial report summary"
	env.seedChunk(t, 1, "report.txt", text, 0)

	resp, err := env.biz.Search().Search(ctx, 1, 7, &SearchRequest{Query: text, FileType: "txt"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)
	assert.Equal(t, "txt", resp.FiltersApplied["file_type"])

	// 扩展名不区分大小写且允许带点
	resp, err = env.biz.Search().Search(ctx, 1, 7, &SearchRequest{Query: text, FileType: ".TXT"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)

	resp, err = env.biz.Search().Search(ctx, 1, 7, &SearchRequest{Query: text, FileType: "pdf"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearch_日期过滤(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	text := "dated document body"
	env.seedChunk(t, 1, "dated.txt", text, 0)

	tomorrow := time.Now().Add(24 * time.Hour).Format("2006-01-02")
	resp, err := env.biz.Search().Search(ctx, 1, 7, &SearchRequest{Query: text, DateFrom: tomorrow})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	yesterday := time.Now().Add(-24 * time.Hour).Format("2006-01-02")
	resp, err = env.biz.Search().Search(ctx, 1, 7, &SearchRequest{Query: text, DateFrom: yesterday})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)

	_, err = env.biz.Search().Search(ctx, 1, 7, &SearchRequest{Query: text, DateFrom: "not-a-date"})
	assert.ErrorIs(t, err, errors.ErrKBInvalidFilter)
}

func TestSearch_去重(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	text := "duplicate chunk entry"
	doc := env.seedChunk(t, 1, "dup.txt", text, 0)
	// 同一 (document, chunk_index) 的第二条向量记录
	env.seedVector(t, doc.ID, 1, "dup.txt", text, 0)

	resp, err := env.biz.Search().Search(ctx, 1, 7, &SearchRequest{Query: text})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
}

func TestSearch_文档缺失回退(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	text := "orphan vector entry text"
	env.seedVector(t, 999, 1, "orphan.txt", text, 0)

	resp, err := env.biz.Search().Search(ctx, 1, 7, &SearchRequest{Query: text})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	// 文档记录缺失时使用向量元数据中的文件名
	assert.Equal(t, "orphan.txt", resp.Results[0].Filename)
	assert.Nil(t, resp.Results[0].CreatedAt)

	// 日期过滤对缺失文档不生效，候选保留
	tomorrow := time.Now().Add(24 * time.Hour).Format("2006-01-02")
	resp, err = env.biz.Search().Search(ctx, 1, 7, &SearchRequest{Query: text, DateFrom: tomorrow})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)
}

func TestSearch_嵌入失败不写历史(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	env.provider.FailOn("zzfail")

	_, err := env.biz.Search().Search(ctx, 1, 7, &SearchRequest{Query: "zzfail query"})
	assert.ErrorIs(t, err, errors.ErrKBEmbeddingFailed)

	time.Sleep(200 * time.Millisecond)
	records, err := env.ds.SearchRecords().ListByUser(ctx, 1, 7, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSearch_历史写入(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	text := "history backed query"
	env.seedChunk(t, 1, "h.txt", text, 0)

	_, err := env.biz.Search().Search(ctx, 1, 7, &SearchRequest{Query: text, FileType: "txt"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		records, err := env.ds.SearchRecords().ListByUser(ctx, 1, 7, 10)
		return err == nil && len(records) == 1
	}, 3*time.Second, 50*time.Millisecond)

	records, err := env.ds.SearchRecords().ListByUser(ctx, 1, 7, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, text, records[0].QueryText)
	assert.Equal(t, 1, records[0].ResultsCount)
	assert.Greater(t, records[0].TopScore, 0.9)
	assert.Contains(t, records[0].FiltersJSON, "file_type")
}

func TestHistory_条数限制(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, env.ds.SearchRecords().Create(ctx, &model.SearchRecord{
			CompanyID: 1, UserID: 7, QueryText: "q",
		}))
	}

	items, err := env.biz.Search().History(ctx, 1, 7, 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	// limit 非法时使用默认值
	items, err = env.biz.Search().History(ctx, 1, 7, 0)
	require.NoError(t, err)
	assert.Len(t, items, 5)
}

func TestFilters(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	env.seedChunk(t, 1, "a.txt", "alpha text", 0)
	env.seedChunk(t, 1, "b.pdf", "beta text", 0)
	env.seedChunk(t, 2, "c.docx", "other tenant", 0)

	resp, err := env.biz.Search().Filters(ctx, 1)
	require.NoError(t, err)

	assert.EqualValues(t, 2, resp.DocumentCount)
	assert.ElementsMatch(t, []string{"txt", "pdf"}, resp.FileTypes)
}
