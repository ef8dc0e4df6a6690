package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teachbridge/backend/internal/apperr"
	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/repos"
	"github.com/teachbridge/backend/internal/types"
)

// MaxDeckSizeBytes bounds a single deck upload.
const MaxDeckSizeBytes = 50 << 20

// FileService owns deck file uploads and removal. Upload order fixes the
// gating sequence: each new file lands at the end of its week.
type FileService interface {
	UploadDeck(ctx context.Context, weekID uuid.UUID, originalName, mimeType string, data []byte) (*types.ContentFile, error)
	GetFile(ctx context.Context, fileID uuid.UUID) (*types.ContentFile, error)
	ListWeekFiles(ctx context.Context, weekID uuid.UUID) ([]*types.ContentFile, error)
	// DeleteFile removes the row, its progress and quiz records, the
	// stored object, and any warmed quiz cache entry.
	DeleteFile(ctx context.Context, fileID uuid.UUID) error
}

type fileService struct {
	db           *gorm.DB
	log          *logger.Logger
	weekRepo     repos.TrainingWeekRepo
	fileRepo     repos.ContentFileRepo
	progressRepo repos.ContentProgressRepo
	genRepo      repos.QuizGenerationRepo
	questionRepo repos.QuizQuestionRepo
	attemptRepo  repos.QuizAttemptRepo
	bucket       BucketService
	extract      TextExtractor
	quiz         QuizService
	cache        QuizCacheService
}

func NewFileService(
	db *gorm.DB,
	log *logger.Logger,
	weekRepo repos.TrainingWeekRepo,
	fileRepo repos.ContentFileRepo,
	progressRepo repos.ContentProgressRepo,
	genRepo repos.QuizGenerationRepo,
	questionRepo repos.QuizQuestionRepo,
	attemptRepo repos.QuizAttemptRepo,
	bucket BucketService,
	extract TextExtractor,
	quiz QuizService,
	cache QuizCacheService,
) FileService {
	return &fileService{
		db:           db,
		log:          log.With("service", "FileService"),
		weekRepo:     weekRepo,
		fileRepo:     fileRepo,
		progressRepo: progressRepo,
		genRepo:      genRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		bucket:       bucket,
		extract:      extract,
		quiz:         quiz,
		cache:        cache,
	}
}

func (s *fileService) UploadDeck(ctx context.Context, weekID uuid.UUID, originalName, mimeType string, data []byte) (*types.ContentFile, error) {
	if len(data) == 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "uploaded file is empty")
	}
	if len(data) > MaxDeckSizeBytes {
		return nil, apperr.New(apperr.KindInvalidArgument, "uploaded file exceeds %d bytes", MaxDeckSizeBytes)
	}
	weeks, err := s.weekRepo.GetByIDs(ctx, nil, []uuid.UUID{weekID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load week")
	}
	if len(weeks) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "week %s not found", weekID)
	}

	// Reject anything the quiz generator will not be able to read.
	text, err := s.extract(originalName, mimeType, data)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidArgument, err, "unsupported or unreadable deck file")
	}

	fileID := uuid.New()
	key := deckStorageKey(weekID, fileID, originalName)
	if err := s.bucket.UploadFile(ctx, key, bytes.NewReader(data)); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to store deck file")
	}

	var file *types.ContentFile
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		index, err := s.fileRepo.NextIndexForWeek(ctx, tx, weekID)
		if err != nil {
			return err
		}
		file = &types.ContentFile{
			ID:            fileID,
			WeekID:        weekID,
			Index:         index,
			OriginalName:  originalName,
			MimeType:      mimeType,
			SizeBytes:     int64(len(data)),
			StorageKey:    key,
			FileURL:       s.bucket.GetPublicURL(key),
			ExtractedText: text,
		}
		_, err = s.fileRepo.Create(ctx, tx, []*types.ContentFile{file})
		return err
	})
	if txErr != nil {
		// Best effort: do not leave an orphaned object behind.
		if delErr := s.bucket.DeleteFile(ctx, key); delErr != nil {
			s.log.Warn("failed to remove orphaned deck object", "key", key, "error", delErr.Error())
		}
		return nil, apperr.Wrap(apperr.KindInternal, txErr, "failed to create file record")
	}

	if s.quiz != nil {
		go func(id uuid.UUID) {
			warmCtx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
			defer cancel()
			if err := s.quiz.WarmFile(warmCtx, id); err != nil {
				s.log.Warn("quiz cache warm failed", "file_id", id.String(), "error", err.Error())
			}
		}(fileID)
	}

	s.log.Info("deck uploaded",
		"week_id", weekID.String(),
		"file_id", fileID.String(),
		"size_bytes", len(data),
	)
	return file, nil
}

func (s *fileService) GetFile(ctx context.Context, fileID uuid.UUID) (*types.ContentFile, error) {
	files, err := s.fileRepo.GetByIDs(ctx, nil, []uuid.UUID{fileID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load file")
	}
	if len(files) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "file %s not found", fileID)
	}
	return files[0], nil
}

func (s *fileService) ListWeekFiles(ctx context.Context, weekID uuid.UUID) ([]*types.ContentFile, error) {
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
	return files, nil
}

func (s *fileService) DeleteFile(ctx context.Context, fileID uuid.UUID) error {
	file, err := s.GetFile(ctx, fileID)
	if err != nil {
		return err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gens, err := s.genRepo.GetByFileIDs(ctx, tx, []uuid.UUID{fileID})
		if err != nil {
			return fmt.Errorf("failed to load generations: %w", err)
		}
		genIDs := make([]uuid.UUID, 0, len(gens))
		for _, g := range gens {
			genIDs = append(genIDs, g.ID)
		}
		if err := s.questionRepo.FullDeleteByGenerationIDs(ctx, tx, genIDs); err != nil {
			return fmt.Errorf("failed to delete questions: %w", err)
		}
		if err := s.attemptRepo.FullDeleteByFileIDs(ctx, tx, []uuid.UUID{fileID}); err != nil {
			return fmt.Errorf("failed to delete attempts: %w", err)
		}
		if err := s.genRepo.FullDeleteByFileIDs(ctx, tx, []uuid.UUID{fileID}); err != nil {
			return fmt.Errorf("failed to delete generations: %w", err)
		}
		if err := s.progressRepo.FullDeleteByFileIDs(ctx, tx, []uuid.UUID{fileID}); err != nil {
			return fmt.Errorf("failed to delete progress rows: %w", err)
		}
		if err := s.fileRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{fileID}); err != nil {
			return fmt.Errorf("failed to delete file row: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return apperr.Wrap(apperr.KindInternal, txErr, "failed to delete file")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, fileID); err != nil {
			s.log.Warn("failed to drop warmed quiz", "file_id", fileID.String(), "error", err.Error())
		}
	}
	if err := s.bucket.DeleteFile(ctx, file.StorageKey); err != nil {
		s.log.Warn("failed to delete stored deck object", "key", file.StorageKey, "error", err.Error())
	}

	s.log.Info("file deleted", "file_id", fileID.String())
	return nil
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func deckStorageKey(weekID, fileID uuid.UUID, originalName string) string {
	name := unsafeKeyChars.ReplaceAllString(filepath.Base(originalName), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "deck"
	}
	return fmt.Sprintf("decks/%s/%s/%s", weekID, fileID, name)
}
