package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/types"
)

type TrainingWeekRepo interface {
	Create(ctx context.Context, tx *gorm.DB, weeks []*types.TrainingWeek) ([]*types.TrainingWeek, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.TrainingWeek, error)
	GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.TrainingWeek, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type trainingWeekRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrainingWeekRepo(db *gorm.DB, baseLog *logger.Logger) TrainingWeekRepo {
	repoLog := baseLog.With("repo", "TrainingWeekRepo")
	return &trainingWeekRepo{db: db, log: repoLog}
}

func (r *trainingWeekRepo) Create(ctx context.Context, tx *gorm.DB, weeks []*types.TrainingWeek) ([]*types.TrainingWeek, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(weeks) == 0 {
		return []*types.TrainingWeek{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&weeks).Error; err != nil {
		return nil, err
	}
	return weeks, nil
}

func (r *trainingWeekRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.TrainingWeek, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TrainingWeek
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *trainingWeekRepo) GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.TrainingWeek, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TrainingWeek
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Order(`course_id, "index" ASC`).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *trainingWeekRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.TrainingWeek{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

func (r *trainingWeekRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.TrainingWeek{}).Error; err != nil {
		return err
	}
	return nil
}
