package biz

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/logger"
	"gorm.io/gorm"

	"github.com/kart-io/knowledge-x/internal/kb/store"
	"github.com/kart-io/knowledge-x/internal/kb/vstore"
	"github.com/kart-io/knowledge-x/internal/model"
	"github.com/kart-io/knowledge-x/pkg/infra/pool"
	"github.com/kart-io/knowledge-x/pkg/llm"
	kbopts "github.com/kart-io/knowledge-x/pkg/options/kb"
	"github.com/kart-io/knowledge-x/pkg/utils/errors"
)

// 过采样倍数：先取 k*3 个候选，经过滤与去重后再截断到 k。
const overFetchFactor = 3

// 单次检索允许的最大返回数。
const maxTopK = 50

// SearchRequest 检索请求。
type SearchRequest struct {
	Query    string `json:"query"`
	TopK     int    `json:"top_k"`
	FileType string `json:"file_type"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

// SearchResultItem 单条检索结果。
type SearchResultItem struct {
	DocumentID int64      `json:"document_id"`
	Filename   string     `json:"filename"`
	FileType   string     `json:"file_type"`
	ChunkIndex int64      `json:"chunk_index"`
	ChunkText  string     `json:"chunk_text"`
	Snippet    string     `json:"snippet"`
	Score      float64    `json:"score"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// SearchResponse 检索响应。
type SearchResponse struct {
	Query          string             `json:"query"`
	Results        []SearchResultItem `json:"results"`
	TotalResults   int                `json:"total_results"`
	SearchTimeMs   int64              `json:"search_time_ms"`
	FiltersApplied map[string]string  `json:"filters_applied"`
}

// HistoryItem 检索历史条目。
type HistoryItem struct {
	Query        string    `json:"query"`
	ResultsCount int       `json:"results_count"`
	TopScore     float64   `json:"top_score"`
	SearchTimeMs int64     `json:"search_time_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// FiltersResponse 可用过滤条件。
type FiltersResponse struct {
	FileTypes     []string `json:"file_types"`
	DocumentCount int64    `json:"document_count"`
}

// SearchBiz 语义检索服务。
type SearchBiz interface {
	Search(ctx context.Context, companyID, userID int64, req *SearchRequest) (*SearchResponse, error)
	History(ctx context.Context, companyID, userID int64, limit int) ([]HistoryItem, error)
	Filters(ctx context.Context, companyID int64) (*FiltersResponse, error)
}

type searchBiz struct {
	ds       store.Factory
	vs       vstore.VectorStore
	provider llm.EmbeddingProvider
	opts     *kbopts.Options
}

func newSearchBiz(ds store.Factory, vs vstore.VectorStore, provider llm.EmbeddingProvider, opts *kbopts.Options) SearchBiz {
	return &searchBiz{ds: ds, vs: vs, provider: provider, opts: opts}
}

// Search 执行语义检索。
func (s *searchBiz) Search(ctx context.Context, companyID, userID int64, req *SearchRequest) (*SearchResponse, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errors.ErrKBInvalidRequest.WithMessage("query must not be empty")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.opts.TopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	dateFrom, dateTo, err := parseDateRange(req.DateFrom, req.DateTo)
	if err != nil {
		return nil, errors.ErrKBInvalidFilter.WithCause(err)
	}

	// 查询嵌入失败直接返回结构化错误，不写历史
	vector, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, errors.ErrKBEmbeddingFailed.WithCause(err)
	}

	candidates, err := s.vs.Search(ctx, vector, topK*overFetchFactor, companyID)
	if err != nil {
		return nil, errors.ErrKBSearchFailed.WithCause(err)
	}

	fileType := normalizeExtension(req.FileType)

	type dedupKey struct {
		documentID int64
		chunkIndex int64
	}
	seen := make(map[dedupKey]struct{})

	results := make([]SearchResultItem, 0, len(candidates))
	for _, cand := range candidates {
		key := dedupKey{cand.DocumentID, cand.ChunkIndex}
		if _, dup := seen[key]; dup {
			continue
		}

		filename := cand.Filename
		var createdAt *time.Time

		doc, err := s.ds.Documents().Get(ctx, companyID, cand.DocumentID)
		switch {
		case err == nil:
			filename = doc.Filename
			t := doc.CreatedAt
			createdAt = &t
		case err == gorm.ErrRecordNotFound:
			// 文档记录缺失时回退到向量元数据，日期过滤对其不生效
		default:
			return nil, errors.ErrDatabase.WithCause(err)
		}

		if fileType != "" && normalizeExtension(filepath.Ext(filename)) != fileType {
			continue
		}
		if createdAt != nil {
			if dateFrom != nil && createdAt.Before(*dateFrom) {
				continue
			}
			if dateTo != nil && createdAt.After(*dateTo) {
				continue
			}
		}

		score := float64(cand.Score)
		if score < 0 {
			score = 0
		}

		seen[key] = struct{}{}
		results = append(results, SearchResultItem{
			DocumentID: cand.DocumentID,
			Filename:   filename,
			FileType:   normalizeExtension(filepath.Ext(filename)),
			ChunkIndex: cand.ChunkIndex,
			ChunkText:  cand.ChunkText,
			Snippet:    makeSnippet(cand.ChunkText, query, s.opts.SnippetMaxLen),
			Score:      score,
			CreatedAt:  createdAt,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	elapsed := time.Since(start).Milliseconds()
	filtersApplied := appliedFilters(fileType, req.DateFrom, req.DateTo)

	s.recordHistory(companyID, userID, query, results, elapsed, filtersApplied)

	return &SearchResponse{
		Query:          query,
		Results:        results,
		TotalResults:   len(results),
		SearchTimeMs:   elapsed,
		FiltersApplied: filtersApplied,
	}, nil
}

// recordHistory 以尽力而为的方式写入检索历史，失败仅记录日志。
func (s *searchBiz) recordHistory(companyID, userID int64, query string, results []SearchResultItem, elapsedMs int64, filters map[string]string) {
	topScore := 0.0
	if len(results) > 0 {
		topScore = results[0].Score
	}

	filtersJSON := ""
	if len(filters) > 0 {
		if data, err := json.Marshal(filters); err == nil {
			filtersJSON = string(data)
		}
	}

	record := &model.SearchRecord{
		CompanyID:    companyID,
		UserID:       userID,
		QueryText:    query,
		ResultsCount: len(results),
		TopScore:     topScore,
		SearchTimeMs: elapsedMs,
		FiltersJSON:  filtersJSON,
	}

	task := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.ds.SearchRecords().Create(ctx, record); err != nil {
			logger.Warnw("检索历史写入失败", "company_id", companyID, "user_id", userID, "error", err)
		}
	}

	if err := pool.SubmitTo(pool.BackgroundPool, task); err != nil {
		task()
	}
}

// History 返回用户最近的检索记录。
func (s *searchBiz) History(ctx context.Context, companyID, userID int64, limit int) ([]HistoryItem, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	records, err := s.ds.SearchRecords().ListByUser(ctx, companyID, userID, limit)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	items := make([]HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, HistoryItem{
			Query:        r.QueryText,
			ResultsCount: r.ResultsCount,
			TopScore:     r.TopScore,
			SearchTimeMs: r.SearchTimeMs,
			CreatedAt:    r.CreatedAt,
		})
	}
	return items, nil
}

// Filters 返回租户可用的文件类型过滤项与文档总数。
func (s *searchBiz) Filters(ctx context.Context, companyID int64) (*FiltersResponse, error) {
	docs, total, err := s.ds.Documents().List(ctx, companyID, 0, -1)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	extSet := make(map[string]struct{})
	for _, doc := range docs {
		if ext := normalizeExtension(filepath.Ext(doc.Filename)); ext != "" {
			extSet[ext] = struct{}{}
		}
	}

	fileTypes := make([]string, 0, len(extSet))
	for ext := range extSet {
		fileTypes = append(fileTypes, ext)
	}

	return &FiltersResponse{
		FileTypes:     fileTypes,
		DocumentCount: total,
	}, nil
}

// normalizeExtension 去掉前导点并转小写。
func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func parseDateRange(from, to string) (*time.Time, *time.Time, error) {
	var dateFrom, dateTo *time.Time

	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, nil, err
		}
		dateFrom = &t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, nil, err
		}
		// 含当日的闭区间
		end := t.Add(24*time.Hour - time.Nanosecond)
		dateTo = &end
	}
	return dateFrom, dateTo, nil
}

func appliedFilters(fileType, dateFrom, dateTo string) map[string]string {
	filters := make(map[string]string)
	if fileType != "" {
		filters["file_type"] = fileType
	}
	if dateFrom != "" {
		filters["date_from"] = dateFrom
	}
	if dateTo != "" {
		filters["date_to"] = dateTo
	}
	return filters
}
