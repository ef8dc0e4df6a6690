package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxQuizAttempts is the per-generation attempt budget. Once exhausted
// without a pass, the teacher must regenerate for fresh questions.
const MaxQuizAttempts = 3

// PassPercentage is the minimum score percentage counted as a pass.
const PassPercentage = 70

// QuizGeneration is one generated question set for a (teacher, file) pair.
// At most one generation per pair is active; superseded generations are
// deactivated, never deleted, so attempt history survives regeneration.
type QuizGeneration struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_file_gen" json:"user_id"`
	User         *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	FileID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_file_gen" json:"file_id"`
	File         *ContentFile   `gorm:"constraint:OnDelete:CASCADE;foreignKey:FileID;references:ID" json:"file,omitempty"`
	Active       bool           `gorm:"column:active;not null;default:true;index" json:"active"`
	AttemptsUsed int            `gorm:"column:attempts_used;not null;default:0" json:"attempts_used"`
	HasPassed    bool           `gorm:"column:has_passed;not null;default:false" json:"has_passed"`
	Questions    []QuizQuestion `gorm:"foreignKey:GenerationID;references:ID" json:"questions,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (QuizGeneration) TableName() string { return "quiz_generation" }

// RemainingAttempts never reports below zero.
func (g *QuizGeneration) RemainingAttempts() int {
	remaining := MaxQuizAttempts - g.AttemptsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Exhausted reports whether the generation can no longer be scored and
// must be superseded via regeneration.
func (g *QuizGeneration) Exhausted() bool {
	return g.AttemptsUsed >= MaxQuizAttempts && !g.HasPassed
}

type QuizQuestion struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	GenerationID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"generation_id"`
	Generation    *QuizGeneration `gorm:"constraint:OnDelete:CASCADE;foreignKey:GenerationID;references:ID" json:"generation,omitempty"`
	Index         int             `gorm:"column:index;not null" json:"index"`
	PromptMD      string          `gorm:"column:prompt_md;not null" json:"prompt_md"`
	Options       datatypes.JSON  `gorm:"column:options;type:jsonb" json:"options"`
	CorrectIndex  int             `gorm:"column:correct_index;not null" json:"-"`
	ExplanationMD string          `gorm:"column:explanation_md" json:"-"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (QuizQuestion) TableName() string { return "quiz_question" }

type QuizAttempt struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	GenerationID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"generation_id"`
	Generation     *QuizGeneration `gorm:"constraint:OnDelete:CASCADE;foreignKey:GenerationID;references:ID" json:"generation,omitempty"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User           *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	FileID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"file_id"`
	Answers        datatypes.JSON  `gorm:"column:answers;type:jsonb" json:"answers"`
	Score          int             `gorm:"column:score;not null" json:"score"`
	TotalQuestions int             `gorm:"column:total_questions;not null" json:"total_questions"`
	Percentage     int             `gorm:"column:percentage;not null" json:"percentage"`
	Passed         bool            `gorm:"column:passed;not null" json:"passed"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (QuizAttempt) TableName() string { return "quiz_attempt" }
