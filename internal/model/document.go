// Package model defines the database models for the knowledge base service.
package model

import "time"

// DocumentStatus is the processing lifecycle state of a document.
type DocumentStatus string

const (
	// DocumentStatusUploaded means the file is stored but not yet processed.
	DocumentStatusUploaded DocumentStatus = "uploaded"
	// DocumentStatusProcessing means the ingestion pipeline is running.
	DocumentStatusProcessing DocumentStatus = "processing"
	// DocumentStatusProcessed means chunks and embeddings are indexed.
	DocumentStatusProcessed DocumentStatus = "processed"
	// DocumentStatusError means processing failed; ErrorMessage has details.
	DocumentStatusError DocumentStatus = "error"
)

// Document is an uploaded file owned by a company.
type Document struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID    int64          `gorm:"index;not null" json:"company_id"`
	UploadedBy   int64          `gorm:"index" json:"uploaded_by"`
	Filename     string         `gorm:"size:255;not null" json:"filename"`
	MimeType     string         `gorm:"size:128" json:"mime_type"`
	StoragePath  string         `gorm:"size:512;not null" json:"storage_path"`
	FileSize     int64          `json:"file_size"`
	Status       DocumentStatus `gorm:"size:16;index;default:uploaded" json:"status"`
	ErrorMessage string         `gorm:"type:text" json:"error_message,omitempty"`
	Summary      string         `gorm:"type:text" json:"summary,omitempty"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TableName maps the model to its table.
func (Document) TableName() string {
	return "kb_documents"
}
