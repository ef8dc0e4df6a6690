package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teachbridge/backend/internal/apperr"
	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/repos"
	"github.com/teachbridge/backend/internal/types"
)

type CourseCreate struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	BatchID     *uuid.UUID `json:"batch_id"`
}

type CourseUpdate struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	BatchID     *uuid.UUID `json:"batch_id"`
}

// CourseWithWeeks is a course plus its weeks in order.
type CourseWithWeeks struct {
	Course *types.Course         `json:"course"`
	Weeks  []*types.TrainingWeek `json:"weeks"`
}

// CourseService owns course and week authoring. Week indexes are 1-based
// and always sequential: add appends, reorder renumbers the whole course.
type CourseService interface {
	CreateCourse(ctx context.Context, createdBy uuid.UUID, in *CourseCreate) (*types.Course, error)
	GetCourse(ctx context.Context, courseID uuid.UUID) (*CourseWithWeeks, error)
	ListCourses(ctx context.Context) ([]*types.Course, error)
	UpdateCourse(ctx context.Context, courseID uuid.UUID, in *CourseUpdate) (*types.Course, error)
	DeleteCourse(ctx context.Context, courseID uuid.UUID) error

	AddWeek(ctx context.Context, courseID uuid.UUID, title string) (*types.TrainingWeek, error)
	RenameWeek(ctx context.Context, weekID uuid.UUID, title string) (*types.TrainingWeek, error)
	// ReorderWeeks takes the complete permutation of the course's week ids
	// and renumbers them 1..N in the given order.
	ReorderWeeks(ctx context.Context, courseID uuid.UUID, orderedWeekIDs []uuid.UUID) ([]*types.TrainingWeek, error)
	DeleteWeek(ctx context.Context, weekID uuid.UUID) error
}

type courseService struct {
	db         *gorm.DB
	log        *logger.Logger
	courseRepo repos.CourseRepo
	weekRepo   repos.TrainingWeekRepo
	fileRepo   repos.ContentFileRepo
	fileSvc    FileService
	cache      QuizCacheService
}

func NewCourseService(
	db *gorm.DB,
	log *logger.Logger,
	courseRepo repos.CourseRepo,
	weekRepo repos.TrainingWeekRepo,
	fileRepo repos.ContentFileRepo,
	fileSvc FileService,
	cache QuizCacheService,
) CourseService {
	return &courseService{
		db:         db,
		log:        log.With("service", "CourseService"),
		courseRepo: courseRepo,
		weekRepo:   weekRepo,
		fileRepo:   fileRepo,
		fileSvc:    fileSvc,
		cache:      cache,
	}
}

func (s *courseService) CreateCourse(ctx context.Context, createdBy uuid.UUID, in *CourseCreate) (*types.Course, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "course title is required")
	}
	course := &types.Course{
		ID:          uuid.New(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   createdBy,
		BatchID:     in.BatchID,
	}
	if _, err := s.courseRepo.Create(ctx, nil, []*types.Course{course}); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to create course")
	}
	s.log.Info("course created", "course_id", course.ID.String())
	return course, nil
}

func (s *courseService) GetCourse(ctx context.Context, courseID uuid.UUID) (*CourseWithWeeks, error) {
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load course")
	}
	if len(courses) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "course %s not found", courseID)
	}
	weeks, err := s.weekRepo.GetByCourseIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load weeks")
	}
	return &CourseWithWeeks{Course: courses[0], Weeks: weeks}, nil
}

func (s *courseService) ListCourses(ctx context.Context) ([]*types.Course, error) {
	courses, err := s.courseRepo.List(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to list courses")
	}
	return courses, nil
}

func (s *courseService) UpdateCourse(ctx context.Context, courseID uuid.UUID, in *CourseUpdate) (*types.Course, error) {
	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.New(apperr.KindInvalidArgument, "course title cannot be empty")
		}
		updates["title"] = title
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.BatchID != nil {
		updates["batch_id"] = *in.BatchID
	}
	if len(updates) > 0 {
		if err := s.courseRepo.UpdateFields(ctx, nil, courseID, updates); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to update course")
		}
	}
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to reload course")
	}
	if len(courses) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "course %s not found", courseID)
	}
	return courses[0], nil
}

func (s *courseService) DeleteCourse(ctx context.Context, courseID uuid.UUID) error {
	weeks, err := s.weekRepo.GetByCourseIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to load weeks")
	}
	for _, w := range weeks {
		if err := s.DeleteWeek(ctx, w.ID); err != nil {
			return err
		}
	}
	if err := s.courseRepo.SoftDeleteByIDs(ctx, nil, []uuid.UUID{courseID}); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to delete course")
	}
	s.log.Info("course deleted", "course_id", courseID.String())
	return nil
}

func (s *courseService) AddWeek(ctx context.Context, courseID uuid.UUID, title string) (*types.TrainingWeek, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "week title is required")
	}
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load course")
	}
	if len(courses) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "course %s not found", courseID)
	}

	var week *types.TrainingWeek
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		weeks, err := s.weekRepo.GetByCourseIDs(ctx, tx, []uuid.UUID{courseID})
		if err != nil {
			return err
		}
		week = &types.TrainingWeek{
			ID:       uuid.New(),
			CourseID: courseID,
			Index:    len(weeks) + 1,
			Title:    title,
		}
		_, err = s.weekRepo.Create(ctx, tx, []*types.TrainingWeek{week})
		return err
	})
	if txErr != nil {
		return nil, apperr.Wrap(apperr.KindInternal, txErr, "failed to add week")
	}
	return week, nil
}

func (s *courseService) RenameWeek(ctx context.Context, weekID uuid.UUID, title string) (*types.TrainingWeek, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "week title cannot be empty")
	}
	weeks, err := s.weekRepo.GetByIDs(ctx, nil, []uuid.UUID{weekID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load week")
	}
	if len(weeks) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "week %s not found", weekID)
	}
	if err := s.weekRepo.UpdateFields(ctx, nil, weekID, map[string]interface{}{"title": title}); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to rename week")
	}
	weeks[0].Title = title
	return weeks[0], nil
}

func (s *courseService) ReorderWeeks(ctx context.Context, courseID uuid.UUID, orderedWeekIDs []uuid.UUID) ([]*types.TrainingWeek, error) {
	weeks, err := s.weekRepo.GetByCourseIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load weeks")
	}
	if len(weeks) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "course %s has no weeks", courseID)
	}
	if len(orderedWeekIDs) != len(weeks) {
		return nil, apperr.New(apperr.KindInvalidArgument, "expected %d week ids, got %d", len(weeks), len(orderedWeekIDs))
	}
	byID := make(map[uuid.UUID]*types.TrainingWeek, len(weeks))
	for _, w := range weeks {
		byID[w.ID] = w
	}
	seen := make(map[uuid.UUID]bool, len(orderedWeekIDs))
	for _, id := range orderedWeekIDs {
		if byID[id] == nil {
			return nil, apperr.New(apperr.KindInvalidArgument, "week %s does not belong to course %s", id, courseID)
		}
		if seen[id] {
			return nil, apperr.New(apperr.KindInvalidArgument, "week %s appears twice", id)
		}
		seen[id] = true
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedWeekIDs {
			if err := s.weekRepo.UpdateFields(ctx, tx, id, map[string]interface{}{"index": i + 1}); err != nil {
				return fmt.Errorf("failed to renumber week %s: %w", id, err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, apperr.Wrap(apperr.KindInternal, txErr, "failed to reorder weeks")
	}

	out := make([]*types.TrainingWeek, 0, len(orderedWeekIDs))
	for i, id := range orderedWeekIDs {
		w := byID[id]
		w.Index = i + 1
		out = append(out, w)
	}
	s.log.Info("weeks reordered", "course_id", courseID.String(), "weeks", len(out))
	return out, nil
}

func (s *courseService) DeleteWeek(ctx context.Context, weekID uuid.UUID) error {
	weeks, err := s.weekRepo.GetByIDs(ctx, nil, []uuid.UUID{weekID})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to load week")
	}
	if len(weeks) == 0 {
		return apperr.New(apperr.KindNotFound, "week %s not found", weekID)
	}
	week := weeks[0]

	files, err := s.fileRepo.GetByWeekIDs(ctx, nil, []uuid.UUID{weekID})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to load week files")
	}
	for _, f := range files {
		if err := s.fileSvc.DeleteFile(ctx, f.ID); err != nil {
			return err
		}
	}

	// Close the gap left by the removed week.
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.weekRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{weekID}); err != nil {
			return err
		}
		remaining, err := s.weekRepo.GetByCourseIDs(ctx, tx, []uuid.UUID{week.CourseID})
		if err != nil {
			return err
		}
		for i, w := range remaining {
			if w.Index != i+1 {
				if err := s.weekRepo.UpdateFields(ctx, tx, w.ID, map[string]interface{}{"index": i + 1}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if txErr != nil {
		return apperr.Wrap(apperr.KindInternal, txErr, "failed to delete week")
	}
	if s.cache != nil {
		if err := s.cache.DropCheckpoint(ctx, weekID); err != nil {
			s.log.Warn("failed to drop checkpoint quiz", "week_id", weekID.String(), "error", err.Error())
		}
	}
	s.log.Info("week deleted", "week_id", weekID.String())
	return nil
}
