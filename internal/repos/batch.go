package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/types"
)

type BatchRepo interface {
	Create(ctx context.Context, tx *gorm.DB, batches []*types.Batch) ([]*types.Batch, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Batch, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Batch, error)
	AddMember(ctx context.Context, tx *gorm.DB, member *types.BatchMember) error
	GetMembersByBatchIDs(ctx context.Context, tx *gorm.DB, batchIDs []uuid.UUID) ([]*types.BatchMember, error)
	SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type batchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBatchRepo(db *gorm.DB, baseLog *logger.Logger) BatchRepo {
	repoLog := baseLog.With("repo", "BatchRepo")
	return &batchRepo{db: db, log: repoLog}
}

func (r *batchRepo) Create(ctx context.Context, tx *gorm.DB, batches []*types.Batch) ([]*types.Batch, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(batches) == 0 {
		return []*types.Batch{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *batchRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Batch, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Batch
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

func (r *batchRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Batch, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Batch
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// AddMember upserts on the unique (batch_id, user_id) pair so re-assigning
// a teacher to a batch is a no-op rather than an error.
func (r *batchRepo) AddMember(ctx context.Context, tx *gorm.DB, member *types.BatchMember) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if member == nil {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("batch_id = ? AND user_id = ?", member.BatchID, member.UserID).
		FirstOrCreate(member).Error; err != nil {
		return err
	}
	return nil
}

func (r *batchRepo) GetMembersByBatchIDs(ctx context.Context, tx *gorm.DB, batchIDs []uuid.UUID) ([]*types.BatchMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BatchMember
	if len(batchIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("batch_id IN ?", batchIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *batchRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.Batch{}).Error; err != nil {
		return err
	}
	return nil
}
