package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/types"
)

type ContentProgressRepo interface {
	GetByUserAndFileIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fileIDs []uuid.UUID) ([]*types.ContentProgress, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.ContentProgress) error
	// PromoteToAvailable unlocks the (user, file) pair: a missing row is
	// created as available, a locked row is updated, and any further
	// progressed row (viewed, completed) is left untouched.
	PromoteToAvailable(ctx context.Context, tx *gorm.DB, userID, fileID uuid.UUID) error
	FullDeleteByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID) error
}

type contentProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentProgressRepo(db *gorm.DB, baseLog *logger.Logger) ContentProgressRepo {
	repoLog := baseLog.With("repo", "ContentProgressRepo")
	return &contentProgressRepo{db: db, log: repoLog}
}

func (r *contentProgressRepo) GetByUserAndFileIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fileIDs []uuid.UUID) ([]*types.ContentProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentProgress
	if userID == uuid.Nil || len(fileIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND file_id IN ?", userID, fileIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Upsert writes by the unique (user_id, file_id) pair, so concurrent
// writers for the same file settle on a single row. The lookup runs
// against a zero-ID dest; a primary key on the incoming row would
// otherwise leak into the match conditions and miss the existing row.
func (r *contentProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.ContentProgress) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	var existing types.ContentProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND file_id = ?", row.UserID, row.FileID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		return transaction.WithContext(ctx).Create(row).Error
	}
	if err != nil {
		return err
	}

	row.ID = existing.ID
	row.CreatedAt = existing.CreatedAt
	return transaction.WithContext(ctx).
		Model(&types.ContentProgress{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"status":       row.Status,
			"viewed_at":    row.ViewedAt,
			"completed_at": row.CompletedAt,
		}).Error
}

// PromoteToAvailable is a conditional unlock: the UPDATE only matches a
// locked row, so a concurrent transition to viewed or completed can
// never be rolled back by a reader holding a stale snapshot.
func (r *contentProgressRepo) PromoteToAvailable(ctx context.Context, tx *gorm.DB, userID, fileID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.ContentProgress{}).
		Where("user_id = ? AND file_id = ? AND status = ?", userID, fileID, types.ProgressLocked).
		Update("status", types.ProgressAvailable)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// No locked row. Create the pair as available if it does not exist;
	// map conditions carry into the insert, and Attrs only applies on the
	// create branch, so a row that progressed past available in the
	// meantime is left as is.
	row := &types.ContentProgress{}
	return transaction.WithContext(ctx).
		Where(map[string]interface{}{"user_id": userID, "file_id": fileID}).
		Attrs(map[string]interface{}{
			"id":     uuid.New(),
			"status": types.ProgressAvailable,
		}).
		FirstOrCreate(row).Error
}

func (r *contentProgressRepo) FullDeleteByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID) error {
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
		Delete(&types.ContentProgress{}).Error; err != nil {
		return err
	}
	return nil
}
