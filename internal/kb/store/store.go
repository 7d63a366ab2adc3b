// Package store implements the data access layer for the knowledge base
// service on top of GORM.
package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/knowledge-x/internal/model"
)

// DocumentStore defines document persistence operations.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, companyID, id int64) (*model.Document, error)
	GetByID(ctx context.Context, id int64) (*model.Document, error)
	List(ctx context.Context, companyID int64, offset, limit int) ([]*model.Document, int64, error)
	ListByStatus(ctx context.Context, companyID int64, status model.DocumentStatus) ([]*model.Document, error)
	Update(ctx context.Context, doc *model.Document) error
	// ClaimForProcessing transitions a document from uploaded (or error,
	// for retries) to processing. Returns false when the document was not
	// in a claimable state, which closes the race between concurrent
	// processing requests.
	ClaimForProcessing(ctx context.Context, id int64) (bool, error)
	SetError(ctx context.Context, id int64, message string) error
	Delete(ctx context.Context, companyID, id int64) error
}

// ChunkStore defines chunk persistence operations.
type ChunkStore interface {
	CreateBatch(ctx context.Context, chunks []*model.Chunk) error
	ListByDocument(ctx context.Context, documentID int64) ([]*model.Chunk, error)
	CountByDocument(ctx context.Context, documentID int64) (int64, error)
	DeleteByDocument(ctx context.Context, documentID int64) error
}

// SearchRecordStore defines search history persistence operations.
type SearchRecordStore interface {
	Create(ctx context.Context, record *model.SearchRecord) error
	ListByUser(ctx context.Context, companyID, userID int64, limit int) ([]*model.SearchRecord, error)
}

// Factory is the data access entry point.
type Factory interface {
	Documents() DocumentStore
	Chunks() ChunkStore
	SearchRecords() SearchRecordStore
	DB() *gorm.DB
	Close() error
}

type datastore struct {
	db *gorm.DB
}

// NewStore creates a Factory backed by the given gorm.DB.
func NewStore(db *gorm.DB) Factory {
	return &datastore{db: db}
}

func (ds *datastore) Documents() DocumentStore {
	return newDocuments(ds.db)
}

func (ds *datastore) Chunks() ChunkStore {
	return newChunks(ds.db)
}

func (ds *datastore) SearchRecords() SearchRecordStore {
	return newSearchRecords(ds.db)
}

func (ds *datastore) DB() *gorm.DB {
	return ds.db
}

func (ds *datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates or updates the knowledge base tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Document{},
		&model.Chunk{},
		&model.SearchRecord{},
	)
}
