package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/types"
)

type QuizAttemptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, attempts []*types.QuizAttempt) ([]*types.QuizAttempt, error)
	GetByGenerationIDs(ctx context.Context, tx *gorm.DB, generationIDs []uuid.UUID) ([]*types.QuizAttempt, error)
	GetLatestPassedByGeneration(ctx context.Context, tx *gorm.DB, generationID uuid.UUID) (*types.QuizAttempt, error)
	FullDeleteByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID) error
}

type quizAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	repoLog := baseLog.With("repo", "QuizAttemptRepo")
	return &quizAttemptRepo{db: db, log: repoLog}
}

func (r *quizAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempts []*types.QuizAttempt) ([]*types.QuizAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(attempts) == 0 {
		return []*types.QuizAttempt{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *quizAttemptRepo) GetByGenerationIDs(ctx context.Context, tx *gorm.DB, generationIDs []uuid.UUID) ([]*types.QuizAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.QuizAttempt
	if len(generationIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("generation_id IN ?", generationIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *quizAttemptRepo) GetLatestPassedByGeneration(ctx context.Context, tx *gorm.DB, generationID uuid.UUID) (*types.QuizAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if generationID == uuid.Nil {
		return nil, nil
	}

	var results []*types.QuizAttempt
	if err := transaction.WithContext(ctx).
		Where("generation_id = ? AND passed = ?", generationID, true).
		Order("created_at DESC").
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *quizAttemptRepo) FullDeleteByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fileIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Unscoped().
		Where("file_id IN ?", fileIDs).
		Delete(&types.QuizAttempt{}).Error; err != nil {
		return err
	}
	return nil
}
