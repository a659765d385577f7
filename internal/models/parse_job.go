package models

import (
	"time"

	"github.com/google/uuid"
)

type ParseStatus string

const (
	StatusQueued     ParseStatus = "queued"
	StatusProcessing ParseStatus = "processing"
	StatusCompleted  ParseStatus = "completed"
	StatusFailed     ParseStatus = "failed"
)

// ParseJob tracks one run of the parsing pipeline over an uploaded document.
// Record and Validation hold the JSON encoded Resume and ValidationReport.
type ParseJob struct {
	ID           uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	DocumentID   uuid.UUID   `gorm:"type:uuid;not null" json:"document_id"`
	Status       ParseStatus `gorm:"not null;default:'queued'" json:"status"`
	Backend      *string     `gorm:"type:text" json:"backend,omitempty"`
	Confidence   *float64    `gorm:"type:decimal(3,2)" json:"confidence,omitempty"`
	Enriched     bool        `gorm:"not null;default:false" json:"enriched"`
	Record       *string     `gorm:"type:text" json:"record,omitempty"`
	Validation   *string     `gorm:"type:text" json:"validation,omitempty"`
	ErrorMessage *string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Document Document `gorm:"foreignKey:DocumentID" json:"-"`
}

func (ParseJob) TableName() string {
	return "parse_jobs"
}
