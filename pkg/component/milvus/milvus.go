// Package milvus 封装 Milvus v2 客户端，提供向量集合的创建、写入与检索能力。
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kart-io/logger"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	milvusclient "github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/knowledge-x/pkg/options/milvus"
)

// MetaField 描述集合中的标量元数据字段。
type MetaField struct {
	Name     string
	DataType entity.FieldType
	MaxLen   int
}

// CollectionSchema 描述一个向量集合。
// 主键为 varchar，向量字段名固定为 embedding。
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	MetaFields  []MetaField
}

// SearchResult 单条检索结果。
type SearchResult struct {
	ID     string
	Score  float32
	Fields map[string]interface{}
}

// Client Milvus 客户端封装。
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New 创建并连接 Milvus 客户端。
func New(ctx context.Context, opts *milvusopts.Options) (*Client, error) {
	connCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	cli, err := milvusclient.New(connCtx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus %s: %w", opts.Address, err)
	}

	logger.Infow("Milvus 连接成功", "address", opts.Address, "database", opts.Database)
	return &Client{client: cli, opts: opts}, nil
}

// Close 关闭连接。
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// CreateCollection 创建集合（已存在则跳过），并建立 HNSW 余弦索引后加载。
func (c *Client) CreateCollection(ctx context.Context, schema *CollectionSchema) error {
	has, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("check collection %s: %w", schema.Name, err)
	}
	if has {
		return c.loadCollection(ctx, schema.Name)
	}

	entitySchema := entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description)

	entitySchema.WithField(entity.NewField().
		WithName("id").
		WithDataType(entity.FieldTypeVarChar).
		WithMaxLength(128).
		WithIsPrimaryKey(true))
	entitySchema.WithField(entity.NewField().
		WithName("embedding").
		WithDataType(entity.FieldTypeFloatVector).
		WithDim(int64(schema.Dimension)))

	for _, mf := range schema.MetaFields {
		f := entity.NewField().WithName(mf.Name).WithDataType(mf.DataType)
		if mf.DataType == entity.FieldTypeVarChar {
			maxLen := mf.MaxLen
			if maxLen <= 0 {
				maxLen = 512
			}
			f = f.WithMaxLength(int64(maxLen))
		}
		entitySchema.WithField(f)
	}

	err = c.client.CreateCollection(ctx,
		milvusclient.NewCreateCollectionOption(schema.Name, entitySchema))
	if err != nil {
		return fmt.Errorf("create collection %s: %w", schema.Name, err)
	}

	// 余弦相似度 HNSW 索引
	idx := index.NewHNSWIndex(entity.COSINE, 16, 200)
	indexTask, err := c.client.CreateIndex(ctx,
		milvusclient.NewCreateIndexOption(schema.Name, "embedding", idx))
	if err != nil {
		return fmt.Errorf("create index on %s: %w", schema.Name, err)
	}
	if err := indexTask.Await(ctx); err != nil {
		return fmt.Errorf("await index on %s: %w", schema.Name, err)
	}

	if err := c.loadCollection(ctx, schema.Name); err != nil {
		return err
	}

	logger.Infow("Milvus 集合创建完成", "collection", schema.Name, "dimension", schema.Dimension)
	return nil
}

func (c *Client) loadCollection(ctx context.Context, name string) error {
	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("load collection %s: %w", name, err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("await load %s: %w", name, err)
	}
	return nil
}

// Insert 插入向量数据。columns 为标量元数据列，与 ids/vectors 等长。
func (c *Client) Insert(ctx context.Context, collection string, ids []string, vectors [][]float32, columns []column.Column) error {
	if len(ids) == 0 {
		return nil
	}

	if len(vectors) == 0 || len(vectors) != len(ids) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	dim := len(vectors[0])

	cols := []column.Column{
		column.NewColumnVarChar("id", ids),
		column.NewColumnFloatVector("embedding", dim, vectors),
	}
	cols = append(cols, columns...)

	_, err := c.client.Insert(ctx,
		milvusclient.NewColumnBasedInsertOption(collection, cols...))
	if err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}

	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collection))
	if err != nil {
		return fmt.Errorf("flush %s: %w", collection, err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("await flush %s: %w", collection, err)
	}
	return nil
}

// Search 按向量检索，expr 为可选的标量过滤表达式。
func (c *Client) Search(ctx context.Context, collection string, vector []float32, topK int, expr string, outputFields []string) ([]SearchResult, error) {
	searchOpt := milvusclient.NewSearchOption(collection, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField("embedding").
		WithSearchParam("ef", "64").
		WithOutputFields(outputFields...)
	if expr != "" {
		searchOpt = searchOpt.WithFilter(expr)
	}

	resultSets, err := c.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	if len(resultSets) == 0 {
		return nil, nil
	}

	rs := resultSets[0]
	results := make([]SearchResult, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		id, err := rs.IDs.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("read result id: %w", err)
		}

		fields := make(map[string]interface{}, len(rs.Fields))
		for _, col := range rs.Fields {
			val, err := col.Get(i)
			if err != nil {
				continue
			}
			fields[col.Name()] = val
		}

		results = append(results, SearchResult{
			ID:     id,
			Score:  rs.Scores[i],
			Fields: fields,
		})
	}
	return results, nil
}

// DeleteByExpr 按表达式删除数据。
func (c *Client) DeleteByExpr(ctx context.Context, collection, expr string) error {
	_, err := c.client.Delete(ctx,
		milvusclient.NewDeleteOption(collection).WithExpr(expr))
	if err != nil {
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	return nil
}

// DropCollection 删除集合。
func (c *Client) DropCollection(ctx context.Context, name string) error {
	return c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(name))
}

// GetRowCount 返回集合当前行数。
func (c *Client) GetRowCount(ctx context.Context, collection string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collection))
	if err != nil {
		return 0, fmt.Errorf("get stats of %s: %w", collection, err)
	}
	rowCount, ok := stats["row_count"]
	if !ok {
		return 0, nil
	}
	count, err := strconv.ParseInt(rowCount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse row_count %q: %w", rowCount, err)
	}
	return count, nil
}

// HealthCheck 检查与 Milvus 的连通性。
func (c *Client) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.ListCollections(checkCtx, milvusclient.NewListCollectionOption())
	return err
}
