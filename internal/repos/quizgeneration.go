package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/types"
)

type QuizGenerationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, gens []*types.QuizGeneration) ([]*types.QuizGeneration, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.QuizGeneration, error)
	GetActiveByUserAndFile(ctx context.Context, tx *gorm.DB, userID, fileID uuid.UUID) (*types.QuizGeneration, error)
	GetByUserAndFile(ctx context.Context, tx *gorm.DB, userID, fileID uuid.UUID) ([]*types.QuizGeneration, error)
	GetByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID) ([]*types.QuizGeneration, error)
	IncrementAttempt(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	MarkPassed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	Deactivate(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	FullDeleteByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID) error
}

type quizGenerationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizGenerationRepo(db *gorm.DB, baseLog *logger.Logger) QuizGenerationRepo {
	repoLog := baseLog.With("repo", "QuizGenerationRepo")
	return &quizGenerationRepo{db: db, log: repoLog}
}

func (r *quizGenerationRepo) Create(ctx context.Context, tx *gorm.DB, gens []*types.QuizGeneration) ([]*types.QuizGeneration, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(gens) == 0 {
		return []*types.QuizGeneration{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&gens).Error; err != nil {
		return nil, err
	}
	return gens, nil
}

func (r *quizGenerationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.QuizGeneration, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.QuizGeneration
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"index" ASC`)
		}).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *quizGenerationRepo) GetActiveByUserAndFile(ctx context.Context, tx *gorm.DB, userID, fileID uuid.UUID) (*types.QuizGeneration, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || fileID == uuid.Nil {
		return nil, nil
	}

	var results []*types.QuizGeneration
	if err := transaction.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"index" ASC`)
		}).
		Where("user_id = ? AND file_id = ? AND active = ?", userID, fileID, true).
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

func (r *quizGenerationRepo) GetByUserAndFile(ctx context.Context, tx *gorm.DB, userID, fileID uuid.UUID) ([]*types.QuizGeneration, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.QuizGeneration
	if userID == uuid.Nil || fileID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND file_id = ?", userID, fileID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *quizGenerationRepo) GetByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID) ([]*types.QuizGeneration, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.QuizGeneration
	if len(fileIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("file_id IN ?", fileIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// IncrementAttempt bumps attempts_used by one, but only while the
// generation is still scorable. The conditional UPDATE is what keeps two
// racing submissions from recording a fourth attempt: the loser matches
// zero rows and reports false.
func (r *quizGenerationRepo) IncrementAttempt(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.QuizGeneration{}).
		Where("id = ? AND attempts_used < ? AND has_passed = ?", id, types.MaxQuizAttempts, false).
		Updates(map[string]interface{}{
			"attempts_used": gorm.Expr("attempts_used + 1"),
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *quizGenerationRepo) MarkPassed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.QuizGeneration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"has_passed": true,
			"updated_at": time.Now(),
		}).Error; err != nil {
		return err
	}
	return nil
}

func (r *quizGenerationRepo) Deactivate(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.QuizGeneration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":     false,
			"updated_at": time.Now(),
		}).Error; err != nil {
		return err
	}
	return nil
}

func (r *quizGenerationRepo) FullDeleteByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID) error {
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
		Delete(&types.QuizGeneration{}).Error; err != nil {
		return err
	}
	return nil
}
