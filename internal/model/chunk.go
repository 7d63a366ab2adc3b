package model

import "time"

// Chunk is a token-bounded slice of a processed document.
type Chunk struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID int64     `gorm:"index;not null" json:"document_id"`
	CompanyID  int64     `gorm:"index;not null" json:"company_id"`
	ChunkIndex int       `gorm:"not null" json:"chunk_index"`
	VectorKey  string    `gorm:"size:128;uniqueIndex;not null" json:"vector_key"`
	ChunkText  string    `gorm:"type:text;not null" json:"chunk_text"`
	TokenCount int       `json:"token_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName maps the model to its table.
func (Chunk) TableName() string {
	return "kb_chunks"
}
