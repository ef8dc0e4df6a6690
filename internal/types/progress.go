package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProgressLocked    = "locked"
	ProgressAvailable = "available"
	ProgressViewed    = "viewed"
	ProgressCompleted = "completed"
)

// ContentProgress is one row per (teacher, content file). Status moves
// locked -> available -> viewed -> completed; completed is terminal and is
// only ever set after a passing quiz attempt on the file.
type ContentProgress struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_file,unique" json:"user_id"`
	User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	FileID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_file,unique" json:"file_id"`
	File        *ContentFile   `gorm:"constraint:OnDelete:CASCADE;foreignKey:FileID;references:ID" json:"file,omitempty"`
	Status      string         `gorm:"column:status;not null;default:'locked'" json:"status"`
	ViewedAt    *time.Time     `gorm:"column:viewed_at" json:"viewed_at,omitempty"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentProgress) TableName() string { return "content_progress" }
