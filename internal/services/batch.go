package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teachbridge/backend/internal/apperr"
	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/repos"
	"github.com/teachbridge/backend/internal/types"
)

type BatchWithMembers struct {
	Batch   *types.Batch  `json:"batch"`
	Members []*types.User `json:"members"`
}

// BatchService groups teachers into cohorts that courses are assigned to.
type BatchService interface {
	CreateBatch(ctx context.Context, createdBy uuid.UUID, name, description string) (*types.Batch, error)
	GetBatch(ctx context.Context, batchID uuid.UUID) (*BatchWithMembers, error)
	ListBatches(ctx context.Context) ([]*types.Batch, error)
	AddMember(ctx context.Context, batchID, userID uuid.UUID) error
	DeleteBatch(ctx context.Context, batchID uuid.UUID) error
}

type batchService struct {
	db        *gorm.DB
	log       *logger.Logger
	batchRepo repos.BatchRepo
	userRepo  repos.UserRepo
}

func NewBatchService(db *gorm.DB, log *logger.Logger, batchRepo repos.BatchRepo, userRepo repos.UserRepo) BatchService {
	return &batchService{
		db:        db,
		log:       log.With("service", "BatchService"),
		batchRepo: batchRepo,
		userRepo:  userRepo,
	}
}

func (s *batchService) CreateBatch(ctx context.Context, createdBy uuid.UUID, name, description string) (*types.Batch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "batch name is required")
	}
	batch := &types.Batch{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedBy:   createdBy,
	}
	if _, err := s.batchRepo.Create(ctx, nil, []*types.Batch{batch}); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to create batch")
	}
	s.log.Info("batch created", "batch_id", batch.ID.String())
	return batch, nil
}

func (s *batchService) GetBatch(ctx context.Context, batchID uuid.UUID) (*BatchWithMembers, error) {
	batches, err := s.batchRepo.GetByIDs(ctx, nil, []uuid.UUID{batchID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load batch")
	}
	if len(batches) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "batch %s not found", batchID)
	}
	members, err := s.batchRepo.GetMembersByBatchIDs(ctx, nil, []uuid.UUID{batchID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load batch members")
	}
	userIDs := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	users, err := s.userRepo.GetByIDs(ctx, nil, userIDs)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load member users")
	}
	return &BatchWithMembers{Batch: batches[0], Members: users}, nil
}

func (s *batchService) ListBatches(ctx context.Context) ([]*types.Batch, error) {
	batches, err := s.batchRepo.List(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to list batches")
	}
	return batches, nil
}

func (s *batchService) AddMember(ctx context.Context, batchID, userID uuid.UUID) error {
	batches, err := s.batchRepo.GetByIDs(ctx, nil, []uuid.UUID{batchID})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to load batch")
	}
	if len(batches) == 0 {
		return apperr.New(apperr.KindNotFound, "batch %s not found", batchID)
	}
	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to load user")
	}
	if len(users) == 0 {
		return apperr.New(apperr.KindNotFound, "user %s not found", userID)
	}
	member := &types.BatchMember{
		ID:      uuid.New(),
		BatchID: batchID,
		UserID:  userID,
	}
	if err := s.batchRepo.AddMember(ctx, nil, member); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to add batch member")
	}
	s.log.Info("batch member added", "batch_id", batchID.String(), "user_id", userID.String())
	return nil
}

func (s *batchService) DeleteBatch(ctx context.Context, batchID uuid.UUID) error {
	if err := s.batchRepo.SoftDeleteByIDs(ctx, nil, []uuid.UUID{batchID}); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to delete batch")
	}
	s.log.Info("batch deleted", "batch_id", batchID.String())
	return nil
}
