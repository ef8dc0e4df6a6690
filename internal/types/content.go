package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentFile is one uploaded deck file in a week. Index is the upload
// order within the week and drives the gating sequence. Rows are immutable
// once created except for deletion.
type ContentFile struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WeekID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"week_id"`
	Week         *TrainingWeek  `gorm:"constraint:OnDelete:CASCADE;foreignKey:WeekID;references:ID" json:"week,omitempty"`
	Index        int            `gorm:"column:index;not null" json:"index"`
	OriginalName string         `gorm:"column:original_name;not null" json:"original_name"`
	MimeType     string         `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes    int64          `gorm:"column:size_bytes" json:"size_bytes"`
	StorageKey   string         `gorm:"column:storage_key;not null" json:"storage_key"`
	FileURL      string         `gorm:"column:file_url" json:"file_url"`
	// ExtractedText is captured once at upload so quiz generation never
	// re-downloads or re-parses the deck.
	ExtractedText string `gorm:"column:extracted_text;type:text" json:"-"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentFile) TableName() string { return "content_file" }
