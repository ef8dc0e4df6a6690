package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Batch struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Description string         `gorm:"column:description" json:"description"`
	CreatedBy   uuid.UUID      `gorm:"type:uuid;not null;index" json:"created_by"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Batch) TableName() string { return "batch" }

type BatchMember struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_batch_user,unique" json:"batch_id"`
	Batch     *Batch         `gorm:"constraint:OnDelete:CASCADE;foreignKey:BatchID;references:ID" json:"batch,omitempty"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_batch_user,unique" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (BatchMember) TableName() string { return "batch_member" }
