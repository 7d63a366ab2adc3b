package model

import "time"

// SearchRecord is one entry of a user's search history.
type SearchRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID    int64     `gorm:"index;not null" json:"company_id"`
	UserID       int64     `gorm:"index;not null" json:"user_id"`
	QueryText    string    `gorm:"size:512;not null" json:"query_text"`
	ResultsCount int       `json:"results_count"`
	TopScore     float64   `json:"top_score"`
	SearchTimeMs int64     `json:"search_time_ms"`
	FiltersJSON  string    `gorm:"type:text" json:"filters_json,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName maps the model to its table.
func (SearchRecord) TableName() string {
	return "kb_search_history"
}
