package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teachbridge/backend/internal/apperr"
	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/repos"
	"github.com/teachbridge/backend/internal/types"
)

// FileStatus is one week file together with its effective status for a
// teacher.
type FileStatus struct {
	File        *types.ContentFile `json:"file"`
	Status      string             `json:"status"`
	ViewedAt    *time.Time         `json:"viewed_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

// ProgressService owns the per-teacher, per-file gating state machine.
// Files unlock in week order: the first file is always reachable, every
// later file stays locked until its predecessor is completed via a
// passing quiz. Unlocks happen on two paths: eagerly when MarkCompleted
// fires, and lazily at read time as a fallback for rows written before
// the eager path ran.
type ProgressService interface {
	GetWeekContentStatus(ctx context.Context, userID, weekID uuid.UUID) ([]*FileStatus, error)
	// FileStatusFor computes the effective status of one file, applying
	// the same lazy promotion as a week read.
	FileStatusFor(ctx context.Context, userID, fileID uuid.UUID) (string, error)
	MarkViewed(ctx context.Context, userID, fileID uuid.UUID) error
	// MarkCompleted records a passing quiz result and eagerly unlocks the
	// next file in the week. Runs inside the caller's transaction when tx
	// is non-nil.
	MarkCompleted(ctx context.Context, tx *gorm.DB, userID, fileID uuid.UUID) error
}

type progressService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	weekRepo     repos.TrainingWeekRepo
	fileRepo     repos.ContentFileRepo
	progressRepo repos.ContentProgressRepo
}

func NewProgressService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	weekRepo repos.TrainingWeekRepo,
	fileRepo repos.ContentFileRepo,
	progressRepo repos.ContentProgressRepo,
) ProgressService {
	return &progressService{
		db:           db,
		log:          log.With("service", "ProgressService"),
		userRepo:     userRepo,
		weekRepo:     weekRepo,
		fileRepo:     fileRepo,
		progressRepo: progressRepo,
	}
}

func (s *progressService) GetWeekContentStatus(ctx context.Context, userID, weekID uuid.UUID) ([]*FileStatus, error) {
	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load teacher")
	}
	if len(users) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "teacher %s not found", userID)
	}
	weeks, err := s.weekRepo.GetByIDs(ctx, nil, []uuid.UUID{weekID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load week")
	}
	if len(weeks) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "week %s not found", weekID)
	}

	files, err := s.fileRepo.GetByWeekIDs(ctx, nil, []uuid.UUID{weekID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load week files")
	}
	return s.statusesForFiles(ctx, nil, userID, files)
}

func (s *progressService) FileStatusFor(ctx context.Context, userID, fileID uuid.UUID) (string, error) {
	_, entry, err := s.weekStatusesAround(ctx, nil, userID, fileID)
	if err != nil {
		return "", err
	}
	return entry.Status, nil
}

func (s *progressService) MarkViewed(ctx context.Context, userID, fileID uuid.UUID) error {
	_, entry, err := s.weekStatusesAround(ctx, nil, userID, fileID)
	if err != nil {
		return err
	}
	switch entry.Status {
	case types.ProgressLocked:
		return apperr.New(apperr.KindInvalidState, "file %s is locked", fileID)
	case types.ProgressCompleted:
		// Viewing after completion never demotes the terminal status.
		return nil
	case types.ProgressViewed:
		return nil
	}

	now := time.Now()
	row := &types.ContentProgress{
		ID:       uuid.New(),
		UserID:   userID,
		FileID:   fileID,
		Status:   types.ProgressViewed,
		ViewedAt: &now,
	}
	if err := s.progressRepo.Upsert(ctx, nil, row); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to mark file viewed")
	}
	s.log.Info("file viewed", "user_id", userID.String(), "file_id", fileID.String())
	return nil
}

func (s *progressService) MarkCompleted(ctx context.Context, tx *gorm.DB, userID, fileID uuid.UUID) error {
	files, idx, err := s.weekFilesAround(ctx, tx, fileID)
	if err != nil {
		return err
	}

	fileIDs := []uuid.UUID{fileID}
	if idx+1 < len(files) {
		fileIDs = append(fileIDs, files[idx+1].ID)
	}
	rows, err := s.progressRepo.GetByUserAndFileIDs(ctx, tx, userID, fileIDs)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to load progress rows")
	}
	byFile := make(map[uuid.UUID]*types.ContentProgress, len(rows))
	for _, r := range rows {
		byFile[r.FileID] = r
	}

	now := time.Now()
	completed := &types.ContentProgress{
		ID:          uuid.New(),
		UserID:      userID,
		FileID:      fileID,
		Status:      types.ProgressCompleted,
		CompletedAt: &now,
	}
	if existing := byFile[fileID]; existing != nil {
		completed.ViewedAt = existing.ViewedAt
		if existing.CompletedAt != nil {
			completed.CompletedAt = existing.CompletedAt
		}
	}
	if err := s.progressRepo.Upsert(ctx, tx, completed); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to mark file completed")
	}

	// Eager unlock of the successor; the read path re-derives this anyway,
	// so a crash between the two writes self-heals on the next week read.
	if idx+1 < len(files) {
		next := files[idx+1]
		existing := byFile[next.ID]
		if existing == nil || existing.Status == types.ProgressLocked {
			if err := s.progressRepo.PromoteToAvailable(ctx, tx, userID, next.ID); err != nil {
				return apperr.Wrap(apperr.KindInternal, err, "failed to unlock next file")
			}
		}
	}

	s.log.Info("file completed", "user_id", userID.String(), "file_id", fileID.String())
	return nil
}

// weekStatusesAround resolves the file, computes statuses for its whole
// week, and returns the entry belonging to the file.
func (s *progressService) weekStatusesAround(ctx context.Context, tx *gorm.DB, userID, fileID uuid.UUID) ([]*FileStatus, *FileStatus, error) {
	files, idx, err := s.weekFilesAround(ctx, tx, fileID)
	if err != nil {
		return nil, nil, err
	}
	statuses, err := s.statusesForFiles(ctx, tx, userID, files)
	if err != nil {
		return nil, nil, err
	}
	return statuses, statuses[idx], nil
}

// weekFilesAround loads the ordered file list of the week containing
// fileID and the file's position in it.
func (s *progressService) weekFilesAround(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) ([]*types.ContentFile, int, error) {
	found, err := s.fileRepo.GetByIDs(ctx, tx, []uuid.UUID{fileID})
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, err, "failed to load file")
	}
	if len(found) == 0 {
		return nil, 0, apperr.New(apperr.KindNotFound, "file %s not found", fileID)
	}
	files, err := s.fileRepo.GetByWeekIDs(ctx, tx, []uuid.UUID{found[0].WeekID})
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, err, "failed to load week files")
	}
	for i, f := range files {
		if f.ID == fileID {
			return files, i, nil
		}
	}
	return nil, 0, apperr.New(apperr.KindNotFound, "file %s not found in its week", fileID)
}

// statusesForFiles is the single place gating is decided. Files arrive in
// week order; a locked entry whose predecessor is completed is promoted
// to available and the promotion is persisted, so repeated reads and
// concurrent reads settle on the same row.
func (s *progressService) statusesForFiles(ctx context.Context, tx *gorm.DB, userID uuid.UUID, files []*types.ContentFile) ([]*FileStatus, error) {
	fileIDs := make([]uuid.UUID, 0, len(files))
	for _, f := range files {
		fileIDs = append(fileIDs, f.ID)
	}
	rows, err := s.progressRepo.GetByUserAndFileIDs(ctx, tx, userID, fileIDs)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load progress rows")
	}
	byFile := make(map[uuid.UUID]*types.ContentProgress, len(rows))
	for _, r := range rows {
		byFile[r.FileID] = r
	}

	out := make([]*FileStatus, 0, len(files))
	prevCompleted := true // the first file in a week is never locked
	for _, f := range files {
		entry := &FileStatus{File: f, Status: types.ProgressLocked}
		if row := byFile[f.ID]; row != nil {
			entry.Status = row.Status
			entry.ViewedAt = row.ViewedAt
			entry.CompletedAt = row.CompletedAt
		}
		if entry.Status == types.ProgressLocked && prevCompleted {
			entry.Status = types.ProgressAvailable
			// Conditional write: a row another request already moved past
			// locked must never be pulled back down by a stale reader.
			if err := s.progressRepo.PromoteToAvailable(ctx, tx, userID, f.ID); err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, err, "failed to unlock file")
			}
		}
		prevCompleted = entry.Status == types.ProgressCompleted
		out = append(out, entry)
	}
	return out, nil
}
