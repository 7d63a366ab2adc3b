package biz

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kart-io/logger"
	"gorm.io/gorm"

	"github.com/kart-io/knowledge-x/internal/kb/store"
	"github.com/kart-io/knowledge-x/internal/kb/vstore"
	"github.com/kart-io/knowledge-x/internal/model"
	"github.com/kart-io/knowledge-x/internal/pkg/kb/parser"
	"github.com/kart-io/knowledge-x/pkg/component/storage"
	"github.com/kart-io/knowledge-x/pkg/utils/errors"
)

// DocumentListResult 文档列表结果。
type DocumentListResult struct {
	Documents []*model.Document `json:"documents"`
	Total     int64             `json:"total"`
}

// DocumentBiz 文档管理。
type DocumentBiz interface {
	// Upload 保存上传文件并创建文档记录。
	Upload(ctx context.Context, companyID, userID int64, filename, mimeType string, content []byte) (*model.Document, error)
	// Get 返回租户内的单个文档。
	Get(ctx context.Context, companyID, id int64) (*model.Document, error)
	// List 分页返回租户文档。
	List(ctx context.Context, companyID int64, offset, limit int) (*DocumentListResult, error)
	// Delete 级联删除文档：向量、块、存储文件、文档记录。
	Delete(ctx context.Context, companyID, id int64) error
}

type documentBiz struct {
	ds    store.Factory
	vs    vstore.VectorStore
	files *storage.FileStorage
}

func newDocumentBiz(ds store.Factory, vs vstore.VectorStore, files *storage.FileStorage) DocumentBiz {
	return &documentBiz{ds: ds, vs: vs, files: files}
}

// Upload 保存文件到租户目录并创建 uploaded 状态的文档记录。
func (d *documentBiz) Upload(ctx context.Context, companyID, userID int64, filename, mimeType string, content []byte) (*model.Document, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, errors.ErrKBInvalidRequest.WithMessage("filename must not be empty")
	}
	if len(content) == 0 {
		return nil, errors.ErrKBInvalidRequest.WithMessage("file content must not be empty")
	}
	if !supportedExtension(filename) {
		return nil, errors.ErrKBUnsupportedFormat.WithMessagef(
			"unsupported format: %s", filepath.Ext(filename))
	}

	relPath, err := d.files.Save(content, filename, companyID)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	doc := &model.Document{
		CompanyID:   companyID,
		UploadedBy:  userID,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: relPath,
		FileSize:    int64(len(content)),
		Status:      model.DocumentStatusUploaded,
	}
	if err := d.ds.Documents().Create(ctx, doc); err != nil {
		// 回滚已写入的文件
		if delErr := d.files.Delete(relPath); delErr != nil {
			logger.Warnw("回滚存储文件失败", "path", relPath, "error", delErr)
		}
		return nil, errors.ErrDatabase.WithCause(err)
	}

	logger.Infow("文档上传完成", "document_id", doc.ID, "company_id", companyID, "filename", filename)
	return doc, nil
}

// Get 返回租户内的单个文档。
func (d *documentBiz) Get(ctx context.Context, companyID, id int64) (*model.Document, error) {
	doc, err := d.ds.Documents().Get(ctx, companyID, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrKBDocumentNotFound
		}
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return doc, nil
}

// List 分页返回租户文档。
func (d *documentBiz) List(ctx context.Context, companyID int64, offset, limit int) (*DocumentListResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	docs, total, err := d.ds.Documents().List(ctx, companyID, offset, limit)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return &DocumentListResult{Documents: docs, Total: total}, nil
}

// Delete 级联删除。向量与文件清理失败不阻断记录删除，仅记录日志。
func (d *documentBiz) Delete(ctx context.Context, companyID, id int64) error {
	doc, err := d.ds.Documents().Get(ctx, companyID, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrKBDocumentNotFound
		}
		return errors.ErrDatabase.WithCause(err)
	}

	if err := d.vs.DeleteByDocument(ctx, doc.ID); err != nil {
		logger.Warnw("删除文档向量失败", "document_id", doc.ID, "error", err)
	}

	if err := d.ds.Chunks().DeleteByDocument(ctx, doc.ID); err != nil {
		return errors.ErrDatabase.WithCause(err)
	}

	if err := d.files.Delete(doc.StoragePath); err != nil {
		logger.Warnw("删除存储文件失败", "path", doc.StoragePath, "error", err)
	}

	if err := d.ds.Documents().Delete(ctx, companyID, doc.ID); err != nil {
		return errors.ErrDatabase.WithCause(err)
	}

	logger.Infow("文档删除完成", "document_id", doc.ID, "company_id", companyID)
	return nil
}

func supportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range parser.SupportedExtensions() {
		if ext == supported {
			return true
		}
	}
	return false
}
