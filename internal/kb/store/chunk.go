package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/knowledge-x/internal/model"
)

type chunks struct {
	db *gorm.DB
}

func newChunks(db *gorm.DB) *chunks {
	return &chunks{db: db}
}

func (c *chunks) CreateBatch(ctx context.Context, items []*model.Chunk) error {
	if len(items) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).CreateInBatches(items, 100).Error
}

func (c *chunks) ListByDocument(ctx context.Context, documentID int64) ([]*model.Chunk, error) {
	var items []*model.Chunk
	err := c.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (c *chunks) CountByDocument(ctx context.Context, documentID int64) (int64, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&model.Chunk{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	return count, err
}

func (c *chunks) DeleteByDocument(ctx context.Context, documentID int64) error {
	return c.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&model.Chunk{}).Error
}
