package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/knowledge-x/internal/model"
)

type searchRecords struct {
	db *gorm.DB
}

func newSearchRecords(db *gorm.DB) *searchRecords {
	return &searchRecords{db: db}
}

func (s *searchRecords) Create(ctx context.Context, record *model.SearchRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *searchRecords) ListByUser(ctx context.Context, companyID, userID int64, limit int) ([]*model.SearchRecord, error) {
	var records []*model.SearchRecord
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
