package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/types"
)

type ContentFileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, files []*types.ContentFile) ([]*types.ContentFile, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ContentFile, error)
	GetByWeekIDs(ctx context.Context, tx *gorm.DB, weekIDs []uuid.UUID) ([]*types.ContentFile, error)
	NextIndexForWeek(ctx context.Context, tx *gorm.DB, weekID uuid.UUID) (int, error)
	SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type contentFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentFileRepo(db *gorm.DB, baseLog *logger.Logger) ContentFileRepo {
	repoLog := baseLog.With("repo", "ContentFileRepo")
	return &contentFileRepo{db: db, log: repoLog}
}

func (r *contentFileRepo) Create(ctx context.Context, tx *gorm.DB, files []*types.ContentFile) ([]*types.ContentFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(files) == 0 {
		return []*types.ContentFile{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *contentFileRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ContentFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentFile
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

func (r *contentFileRepo) GetByWeekIDs(ctx context.Context, tx *gorm.DB, weekIDs []uuid.UUID) ([]*types.ContentFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentFile
	if len(weekIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("week_id IN ?", weekIDs).
		Order(`week_id, "index" ASC`).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentFileRepo) NextIndexForWeek(ctx context.Context, tx *gorm.DB, weekID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var maxIndex *int
	if err := transaction.WithContext(ctx).
		Model(&types.ContentFile{}).
		Where("week_id = ?", weekID).
		Select(`MAX("index")`).
		Scan(&maxIndex).Error; err != nil {
		return 0, err
	}
	if maxIndex == nil {
		return 0, nil
	}
	return *maxIndex + 1, nil
}

func (r *contentFileRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.ContentFile{}).Error; err != nil {
		return err
	}
	return nil
}
