package biz

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/knowledge-x/internal/kb/store"
	"github.com/kart-io/knowledge-x/internal/kb/vstore"
	"github.com/kart-io/knowledge-x/internal/model"
	"github.com/kart-io/knowledge-x/internal/pkg/kb/chunker"
	"github.com/kart-io/knowledge-x/internal/pkg/kb/parser"
	"github.com/kart-io/knowledge-x/pkg/component/storage"
	"github.com/kart-io/knowledge-x/pkg/infra/pool"
	"github.com/kart-io/knowledge-x/pkg/llm/fake"
	kbopts "github.com/kart-io/knowledge-x/pkg/options/kb"
	"github.com/kart-io/knowledge-x/pkg/utils/errors"
)

type testEnv struct {
	ds       store.Factory
	vs       *vstore.Memory
	provider *fake.Provider
	biz      IBiz
}

func newTestEnv(t *testing.T, chunkSize, overlap int) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))

	ds := store.NewStore(db)
	vs := vstore.NewMemory()
	provider := fake.New(32)

	chk, err := chunker.New(chunkSize, overlap)
	require.NoError(t, err)

	files, err := storage.New(t.TempDir())
	require.NoError(t, err)

	opts := &kbopts.Options{
		Collection:    "kb_test",
		ChunkSize:     chunkSize,
		ChunkOverlap:  overlap,
		TopK:          5,
		SnippetMaxLen: 200,
	}

	return &testEnv{
		ds:       ds,
		vs:       vs,
		provider: provider,
		biz:      NewBiz(ds, vs, provider, parser.NewRegistry(), chk, files, opts),
	}
}

func (e *testEnv) upload(t *testing.T, companyID int64, filename, content string) *model.Document {
	t.Helper()
	doc, err := e.biz.Documents().Upload(context.Background(), companyID, 7, filename, "text/plain", []byte(content))
	require.NoError(t, err)
	return doc
}

func TestProcess_完整管线(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	content := "The ingestion pipeline parses documents.\n\nThen it splits the text into chunks.\n\nFinally embeddings are indexed."
	doc := env.upload(t, 1, "guide.txt", content)

	result, err := env.biz.Processor().Process(ctx, 1, doc.ID)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Greater(t, result.ChunksCreated, 0)
	assert.Greater(t, result.TotalTokens, 0)

	got, err := env.ds.Documents().Get(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusProcessed, got.Status)
	assert.NotNil(t, got.ProcessedAt)
	assert.Contains(t, got.Summary, "The ingestion pipeline")

	count, err := env.ds.Chunks().CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, result.ChunksCreated, count)

	indexed, err := env.vs.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, result.ChunksCreated, indexed)
}

func TestProcess_重复处理短路(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	doc := env.upload(t, 1, "note.txt", "some meaningful body text")

	_, err := env.biz.Processor().Process(ctx, 1, doc.ID)
	require.NoError(t, err)

	result, err := env.biz.Processor().Process(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "already processed", result.Message)
	assert.Zero(t, result.ChunksCreated)
}

func TestProcess_文档不存在(t *testing.T) {
	env := newTestEnv(t, 800, 100)

	_, err := env.biz.Processor().Process(context.Background(), 1, 12345)
	assert.ErrorIs(t, err, errors.ErrKBDocumentNotFound)
}

func TestProcess_并发抢占(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	doc := env.upload(t, 1, "busy.txt", "body text")

	// 模拟另一请求已抢占处理权
	claimed, err := env.ds.Documents().ClaimForProcessing(ctx, doc.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = env.biz.Processor().Process(ctx, 1, doc.ID)
	assert.ErrorIs(t, err, errors.ErrKBAlreadyProcessing)
}

func TestProcess_空白内容置错误状态(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	doc := env.upload(t, 1, "blank.txt", "   \n\n \t  ")

	_, err := env.biz.Processor().Process(ctx, 1, doc.ID)
	assert.ErrorIs(t, err, errors.ErrKBEmptyContent)

	got, err := env.ds.Documents().Get(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusError, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)
}

func TestProcess_部分嵌入失败(t *testing.T) {
	env := newTestEnv(t, 20, 0)
	ctx := context.Background()

	env.provider.FailOn("zzfail")

	good := "this paragraph embeds without any problem at all here"
	bad := "this zzfail paragraph cannot be embedded by the provider"
	doc := env.upload(t, 1, "partial.txt", good+"\n\n"+bad)

	result, err := env.biz.Processor().Process(ctx, 1, doc.ID)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ChunksCreated)

	chunks, err := env.ds.Chunks().ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	// 有效块重新连续编号
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.NotContains(t, chunks[0].ChunkText, "zzfail")
}

func TestProcess_全部嵌入失败(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	env.provider.FailOn("zzfail")
	doc := env.upload(t, 1, "broken.txt", "zzfail everywhere in this text")

	_, err := env.biz.Processor().Process(ctx, 1, doc.ID)
	assert.ErrorIs(t, err, errors.ErrKBEmbeddingFailed)

	got, err := env.ds.Documents().Get(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusError, got.Status)
}

func TestProcess_错误状态可重试(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	doc := env.upload(t, 1, "retry.txt", "recoverable body text")
	require.NoError(t, env.ds.Documents().SetError(ctx, doc.ID, "previous failure"))

	result, err := env.biz.Processor().Process(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)

	got, err := env.ds.Documents().Get(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusProcessed, got.Status)
	assert.Empty(t, got.ErrorMessage)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	doc := env.upload(t, 1, "status.txt", "text for the status endpoint")
	_, err := env.biz.Processor().Process(ctx, 1, doc.ID)
	require.NoError(t, err)

	status, err := env.biz.Processor().Status(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusProcessed, status.Status)
	assert.Greater(t, status.ChunkCount, int64(0))
	assert.NotNil(t, status.ProcessedAt)
}

func TestDelete_级联删除(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	doc := env.upload(t, 1, "gone.txt", "text that will be deleted")
	_, err := env.biz.Processor().Process(ctx, 1, doc.ID)
	require.NoError(t, err)

	require.NoError(t, env.biz.Documents().Delete(ctx, 1, doc.ID))

	_, err = env.biz.Documents().Get(ctx, 1, doc.ID)
	assert.ErrorIs(t, err, errors.ErrKBDocumentNotFound)

	count, err := env.ds.Chunks().CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	indexed, err := env.vs.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, indexed)
}

func TestUpload_校验(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	_, err := env.biz.Documents().Upload(ctx, 1, 7, "", "text/plain", []byte("x"))
	assert.ErrorIs(t, err, errors.ErrKBInvalidRequest)

	_, err = env.biz.Documents().Upload(ctx, 1, 7, "a.txt", "text/plain", nil)
	assert.ErrorIs(t, err, errors.ErrKBInvalidRequest)

	_, err = env.biz.Documents().Upload(ctx, 1, 7, "a.exe", "application/octet-stream", []byte("x"))
	assert.ErrorIs(t, err, errors.ErrKBUnsupportedFormat)
}

func TestEnqueueAll(t *testing.T) {
	env := newTestEnv(t, 800, 100)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		doc := env.upload(t, 1, fmt.Sprintf("doc%d.txt", i), strings.Repeat("text ", 5))
		ids = append(ids, doc.ID)
	}

	ingest, err := pool.GetGlobal().GetByType(pool.IngestPool)
	require.NoError(t, err)
	submittedBefore := ingest.Stats().Submitted

	result, err := env.biz.Processor().EnqueueAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Queued)
	assert.ElementsMatch(t, ids, result.DocumentIDs)

	// 处理任务走摄取池
	assert.GreaterOrEqual(t, ingest.Stats().Submitted, submittedBefore+3)

	// 后台任务最终将文档置为 processed 或 error
	assert.Eventually(t, func() bool {
		for _, id := range ids {
			doc, err := env.ds.Documents().Get(ctx, 1, id)
			if err != nil || doc.Status == model.DocumentStatusUploaded ||
				doc.Status == model.DocumentStatusProcessing {
				return false
			}
		}
		return true
	}, 5*time.Second, 50*time.Millisecond)
}
