package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/knowledge-x/internal/model"
)

type documents struct {
	db *gorm.DB
}

func newDocuments(db *gorm.DB) *documents {
	return &documents{db: db}
}

func (d *documents) Create(ctx context.Context, doc *model.Document) error {
	return d.db.WithContext(ctx).Create(doc).Error
}

func (d *documents) Get(ctx context.Context, companyID, id int64) (*model.Document, error) {
	var doc model.Document
	err := d.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *documents) GetByID(ctx context.Context, id int64) (*model.Document, error) {
	var doc model.Document
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *documents) List(ctx context.Context, companyID int64, offset, limit int) ([]*model.Document, int64, error) {
	var docs []*model.Document
	var total int64

	query := d.db.WithContext(ctx).Model(&model.Document{}).Where("company_id = ?", companyID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (d *documents) ListByStatus(ctx context.Context, companyID int64, status model.DocumentStatus) ([]*model.Document, error) {
	var docs []*model.Document
	err := d.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, status).
		Order("created_at ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (d *documents) Update(ctx context.Context, doc *model.Document) error {
	return d.db.WithContext(ctx).Save(doc).Error
}

func (d *documents) ClaimForProcessing(ctx context.Context, id int64) (bool, error) {
	result := d.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("id = ? AND status IN ?", id,
			[]model.DocumentStatus{model.DocumentStatusUploaded, model.DocumentStatusError}).
		Update("status", model.DocumentStatusProcessing)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (d *documents) SetError(ctx context.Context, id int64, message string) error {
	return d.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.DocumentStatusError,
			"error_message": message,
			"updated_at":    time.Now(),
		}).Error
}

func (d *documents) Delete(ctx context.Context, companyID, id int64) error {
	return d.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Delete(&model.Document{}).Error
}
