package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/teachbridge/backend/internal/apperr"
	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/repos"
	"github.com/teachbridge/backend/internal/types"
)

const (
	// MinQuizQuestions and MaxQuizQuestions bound a generation request;
	// out-of-range values are clamped, not rejected.
	MinQuizQuestions = 3
	MaxQuizQuestions = 15
	// DefaultQuizQuestions is used for cache warming at upload time.
	DefaultQuizQuestions = 5
	// CheckpointQuestionsPerDeck is each upload's contribution to its
	// week's checkpoint quiz.
	CheckpointQuestionsPerDeck = 2
)

// QuizQuestionView is a question as served to the teacher: no correct
// index, no explanation. Those are revealed per-question in the attempt
// review after a submission.
type QuizQuestionView struct {
	ID       uuid.UUID `json:"id"`
	Index    int       `json:"index"`
	PromptMD string    `json:"prompt_md"`
	Options  []string  `json:"options"`
}

type QuizView struct {
	GenerationID      uuid.UUID          `json:"generation_id"`
	FileID            uuid.UUID          `json:"file_id"`
	AttemptsUsed      int                `json:"attempts_used"`
	RemainingAttempts int                `json:"remaining_attempts"`
	HasPassed         bool               `json:"has_passed"`
	Questions         []QuizQuestionView `json:"questions"`
}

type QuizAnswerReview struct {
	QuestionID    uuid.UUID `json:"question_id"`
	Index         int       `json:"index"`
	Selected      int       `json:"selected"`
	CorrectIndex  int       `json:"correct_index"`
	Correct       bool      `json:"correct"`
	ExplanationMD string    `json:"explanation_md,omitempty"`
}

type QuizResult struct {
	GenerationID      uuid.UUID          `json:"generation_id"`
	AttemptID         uuid.UUID          `json:"attempt_id"`
	Score             int                `json:"score"`
	TotalQuestions    int                `json:"total_questions"`
	Percentage        int                `json:"percentage"`
	Passed            bool               `json:"passed"`
	AlreadyPassed     bool               `json:"already_passed,omitempty"`
	RemainingAttempts int                `json:"remaining_attempts"`
	// CanRegenerate flips true once the generation's attempt budget is
	// spent without a pass, telling the client to offer a fresh quiz.
	CanRegenerate bool `json:"can_regenerate"`
	Review            []QuizAnswerReview `json:"review,omitempty"`
}

type QuizHistoryEntry struct {
	Generation *types.QuizGeneration `json:"generation"`
	Attempts   []*types.QuizAttempt  `json:"attempts"`
}

// CheckpointQuestionView is a checkpoint quiz question for review; the
// checkpoint quiz is not scored, so answers stay hidden.
type CheckpointQuestionView struct {
	PromptMD string   `json:"prompt_md"`
	Options  []string `json:"options"`
}

// CheckpointView is the week's running checkpoint quiz. Every deck
// upload extends it, so it spans all material published for the week.
type CheckpointView struct {
	WeekID    uuid.UUID                `json:"week_id"`
	Questions []CheckpointQuestionView `json:"questions"`
}

// QuizService generates, scores, and gates quiz attempts per (teacher,
// file). Each generation carries a budget of MaxQuizAttempts scoring
// attempts; once exhausted without a pass, the teacher regenerates for a
// fresh question set, with no cap on regenerations.
type QuizService interface {
	// GenerateQuiz returns the active question set for the pair, creating
	// one when none is usable. Repeated calls against a live generation
	// return it unchanged.
	GenerateQuiz(ctx context.Context, userID, fileID uuid.UUID, numQuestions int) (*QuizView, error)
	// GetActiveQuiz returns the active generation without ever creating
	// one.
	GetActiveQuiz(ctx context.Context, userID, fileID uuid.UUID) (*QuizView, error)
	// SubmitQuiz scores answers against the generation. Answers are keyed
	// by question ID; every question must be answered.
	SubmitQuiz(ctx context.Context, userID, generationID uuid.UUID, answers map[uuid.UUID]int) (*QuizResult, error)
	// RegenerateQuiz supersedes an exhausted, unpassed generation with a
	// freshly generated question set.
	RegenerateQuiz(ctx context.Context, userID, fileID uuid.UUID, numQuestions int) (*QuizView, error)
	GetQuizHistory(ctx context.Context, userID, fileID uuid.UUID) ([]*QuizHistoryEntry, error)
	// WarmFile pre-generates a default-sized question set for the file,
	// parks it in the quiz cache, and extends the week's checkpoint
	// quiz. Failures are non-fatal to uploads.
	WarmFile(ctx context.Context, fileID uuid.UUID) error
	// WeekCheckpoint returns the week's accumulated checkpoint quiz.
	WeekCheckpoint(ctx context.Context, weekID uuid.UUID) (*CheckpointView, error)
}

type quizService struct {
	db           *gorm.DB
	log          *logger.Logger
	weekRepo     repos.TrainingWeekRepo
	fileRepo     repos.ContentFileRepo
	genRepo      repos.QuizGenerationRepo
	questionRepo repos.QuizQuestionRepo
	attemptRepo  repos.QuizAttemptRepo
	progress     ProgressService
	ai           OpenAIClient
	cache        QuizCacheService

	// genLocks serializes generation per (teacher, file) so concurrent
	// generate calls settle on one question set.
	genLocks sync.Map
}

func NewQuizService(
	db *gorm.DB,
	log *logger.Logger,
	weekRepo repos.TrainingWeekRepo,
	fileRepo repos.ContentFileRepo,
	genRepo repos.QuizGenerationRepo,
	questionRepo repos.QuizQuestionRepo,
	attemptRepo repos.QuizAttemptRepo,
	progress ProgressService,
	ai OpenAIClient,
	cache QuizCacheService,
) QuizService {
	return &quizService{
		db:           db,
		log:          log.With("service", "QuizService"),
		weekRepo:     weekRepo,
		fileRepo:     fileRepo,
		genRepo:      genRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		progress:     progress,
		ai:           ai,
		cache:        cache,
	}
}

type generatedQuestion struct {
	PromptMD      string   `json:"prompt_md"`
	Options       []string `json:"options"`
	CorrectIndex  int      `json:"correct_index"`
	ExplanationMD string   `json:"explanation_md"`
}

type generatedQuiz struct {
	Questions []generatedQuestion `json:"questions"`
}

func quizSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"prompt_md", "options", "correct_index", "explanation_md"},
					"properties": map[string]any{
						"prompt_md": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"correct_index":  map[string]any{"type": "integer"},
						"explanation_md": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

func (s *quizService) lockFor(userID, fileID uuid.UUID) *sync.Mutex {
	key := userID.String() + "|" + fileID.String()
	mu, _ := s.genLocks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *quizService) GenerateQuiz(ctx context.Context, userID, fileID uuid.UUID, numQuestions int) (*QuizView, error) {
	if numQuestions <= 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "numQuestions must be positive")
	}
	mu := s.lockFor(userID, fileID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.requireUnlocked(ctx, userID, fileID); err != nil {
		return nil, err
	}

	active, err := s.genRepo.GetActiveByUserAndFile(ctx, nil, userID, fileID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load active generation")
	}
	if active != nil && !active.Exhausted() && !active.HasPassed {
		return quizViewOf(active), nil
	}

	n := clampQuestions(numQuestions)
	gen, err := s.createGeneration(ctx, userID, fileID, n, active, true)
	if err != nil {
		return nil, err
	}
	return quizViewOf(gen), nil
}

func (s *quizService) GetActiveQuiz(ctx context.Context, userID, fileID uuid.UUID) (*QuizView, error) {
	active, err := s.genRepo.GetActiveByUserAndFile(ctx, nil, userID, fileID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load active generation")
	}
	if active == nil {
		return nil, apperr.New(apperr.KindNotFound, "no quiz generated for file %s", fileID)
	}
	return quizViewOf(active), nil
}

func (s *quizService) RegenerateQuiz(ctx context.Context, userID, fileID uuid.UUID, numQuestions int) (*QuizView, error) {
	if numQuestions <= 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "numQuestions must be positive")
	}
	mu := s.lockFor(userID, fileID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.requireUnlocked(ctx, userID, fileID); err != nil {
		return nil, err
	}

	active, err := s.genRepo.GetActiveByUserAndFile(ctx, nil, userID, fileID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load active generation")
	}
	if active == nil {
		return nil, apperr.New(apperr.KindInvalidState, "no generation to regenerate for file %s", fileID)
	}
	if active.HasPassed {
		// Post-pass retakes go through GenerateQuiz, which supersedes the
		// passed generation itself.
		return nil, apperr.New(apperr.KindInvalidState, "generation %s already passed", active.ID)
	}
	if !active.Exhausted() {
		return nil, apperr.New(apperr.KindInvalidState, "generation %s still has attempts remaining", active.ID)
	}

	n := clampQuestions(numQuestions)
	// Regeneration always hits the model: a cached set could replay the
	// questions the teacher just exhausted.
	gen, err := s.createGeneration(ctx, userID, fileID, n, active, false)
	if err != nil {
		return nil, err
	}
	return quizViewOf(gen), nil
}

func (s *quizService) SubmitQuiz(ctx context.Context, userID, generationID uuid.UUID, answers map[uuid.UUID]int) (*QuizResult, error) {
	gens, err := s.genRepo.GetByIDs(ctx, nil, []uuid.UUID{generationID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load generation")
	}
	if len(gens) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "generation %s not found", generationID)
	}
	gen := gens[0]
	if gen.UserID != userID {
		return nil, apperr.New(apperr.KindForbidden, "generation %s belongs to another teacher", generationID)
	}

	total := len(gen.Questions)
	if total == 0 {
		return nil, apperr.New(apperr.KindInternal, "generation %s has no questions", generationID)
	}
	if len(answers) != total {
		return nil, apperr.New(apperr.KindIncompleteSubmission, "expected %d answers, got %d", total, len(answers))
	}
	for i := range gen.Questions {
		q := &gen.Questions[i]
		a, ok := answers[q.ID]
		if !ok {
			return nil, apperr.New(apperr.KindIncompleteSubmission, "question %s has no answer", q.ID)
		}
		opts, err := optionsOf(q)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to decode question options")
		}
		if a < 0 || a >= len(opts) {
			return nil, apperr.New(apperr.KindIncompleteSubmission, "answer %d out of range for question %s", a, q.ID)
		}
	}

	if gen.HasPassed {
		return s.priorPassedResult(ctx, gen)
	}

	score := 0
	review := make([]QuizAnswerReview, 0, total)
	for i := range gen.Questions {
		q := &gen.Questions[i]
		correct := answers[q.ID] == q.CorrectIndex
		if correct {
			score++
		}
		review = append(review, QuizAnswerReview{
			QuestionID:    q.ID,
			Index:         q.Index,
			Selected:      answers[q.ID],
			CorrectIndex:  q.CorrectIndex,
			Correct:       correct,
			ExplanationMD: q.ExplanationMD,
		})
	}
	// Round half up so 2/3 scores 67, not 66.
	percentage := (score*100 + total/2) / total
	passed := percentage >= types.PassPercentage

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to encode answers")
	}

	var attempt *types.QuizAttempt
	var attemptsUsed int
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.genRepo.IncrementAttempt(ctx, tx, gen.ID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "failed to consume attempt")
		}
		if !ok {
			// Lost the race or already terminal; re-read to tell which.
			fresh, err := s.genRepo.GetByIDs(ctx, tx, []uuid.UUID{gen.ID})
			if err != nil || len(fresh) == 0 {
				return apperr.Wrap(apperr.KindInternal, err, "failed to re-read generation")
			}
			if fresh[0].HasPassed {
				return apperr.New(apperr.KindAlreadyPassed, "generation %s already passed", gen.ID)
			}
			return apperr.New(apperr.KindAttemptsExhausted, "generation %s has no attempts remaining", gen.ID)
		}
		attemptsUsed = gen.AttemptsUsed + 1

		attempt = &types.QuizAttempt{
			ID:             uuid.New(),
			GenerationID:   gen.ID,
			UserID:         userID,
			FileID:         gen.FileID,
			Answers:        datatypes.JSON(answersJSON),
			Score:          score,
			TotalQuestions: total,
			Percentage:     percentage,
			Passed:         passed,
		}
		if _, err := s.attemptRepo.Create(ctx, tx, []*types.QuizAttempt{attempt}); err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "failed to persist attempt")
		}

		if passed {
			if err := s.genRepo.MarkPassed(ctx, tx, gen.ID); err != nil {
				return apperr.Wrap(apperr.KindInternal, err, "failed to mark generation passed")
			}
			if err := s.progress.MarkCompleted(ctx, tx, userID, gen.FileID); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if apperr.IsKind(txErr, apperr.KindAlreadyPassed) {
			return s.priorPassedResult(ctx, gen)
		}
		return nil, txErr
	}

	remaining := types.MaxQuizAttempts - attemptsUsed
	if remaining < 0 {
		remaining = 0
	}
	s.log.Info("quiz scored",
		"user_id", userID.String(),
		"generation_id", gen.ID.String(),
		"score", score,
		"total", total,
		"passed", passed,
	)
	return &QuizResult{
		GenerationID:      gen.ID,
		AttemptID:         attempt.ID,
		Score:             score,
		TotalQuestions:    total,
		Percentage:        percentage,
		Passed:            passed,
		RemainingAttempts: remaining,
		CanRegenerate:     remaining == 0 && !passed,
		Review:            review,
	}, nil
}

func (s *quizService) GetQuizHistory(ctx context.Context, userID, fileID uuid.UUID) ([]*QuizHistoryEntry, error) {
	gens, err := s.genRepo.GetByUserAndFile(ctx, nil, userID, fileID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load generations")
	}
	genIDs := make([]uuid.UUID, 0, len(gens))
	for _, g := range gens {
		genIDs = append(genIDs, g.ID)
	}
	attempts, err := s.attemptRepo.GetByGenerationIDs(ctx, nil, genIDs)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load attempts")
	}
	byGen := make(map[uuid.UUID][]*types.QuizAttempt)
	for _, a := range attempts {
		byGen[a.GenerationID] = append(byGen[a.GenerationID], a)
	}
	out := make([]*QuizHistoryEntry, 0, len(gens))
	for _, g := range gens {
		out = append(out, &QuizHistoryEntry{Generation: g, Attempts: byGen[g.ID]})
	}
	return out, nil
}

func (s *quizService) WarmFile(ctx context.Context, fileID uuid.UUID) error {
	if s.cache == nil {
		return fmt.Errorf("quiz cache not configured")
	}
	files, err := s.fileRepo.GetByIDs(ctx, nil, []uuid.UUID{fileID})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("file %s not found", fileID)
	}
	file := files[0]
	payload, err := s.generateQuestions(ctx, file, DefaultQuizQuestions)
	if err != nil {
		return err
	}
	if err := s.cache.Warm(ctx, fileID, payload); err != nil {
		return err
	}

	// The checkpoint contribution gets its own generation pass so the
	// warmed single-use set stays unseen until a teacher takes it.
	checkpoint, err := s.generateQuestions(ctx, file, CheckpointQuestionsPerDeck)
	if err != nil {
		s.log.Warn("checkpoint generation failed", "file_id", fileID.String(), "error", err.Error())
		return nil
	}
	var parsed generatedQuiz
	if err := json.Unmarshal(checkpoint, &parsed); err != nil {
		s.log.Warn("malformed checkpoint questions", "file_id", fileID.String(), "error", err.Error())
		return nil
	}
	items := make([]json.RawMessage, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		raw, err := json.Marshal(q)
		if err != nil {
			return err
		}
		items = append(items, raw)
	}
	if err := s.cache.AppendCheckpoint(ctx, file.WeekID, items); err != nil {
		s.log.Warn("failed to extend checkpoint quiz", "week_id", file.WeekID.String(), "error", err.Error())
	}
	return nil
}

func (s *quizService) WeekCheckpoint(ctx context.Context, weekID uuid.UUID) (*CheckpointView, error) {
	if s.cache == nil {
		return nil, apperr.New(apperr.KindInternal, "quiz cache not configured")
	}
	weeks, err := s.weekRepo.GetByIDs(ctx, nil, []uuid.UUID{weekID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load week")
	}
	if len(weeks) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "week %s not found", weekID)
	}
	raws, err := s.cache.CheckpointQuestions(ctx, weekID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load checkpoint quiz")
	}
	if len(raws) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "no checkpoint quiz for week %s", weekID)
	}
	view := &CheckpointView{WeekID: weekID}
	for _, raw := range raws {
		var q generatedQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "malformed checkpoint question")
		}
		view.Questions = append(view.Questions, CheckpointQuestionView{
			PromptMD: q.PromptMD,
			Options:  q.Options,
		})
	}
	return view, nil
}

// createGeneration produces a question set (from the warm cache when
// allowed, otherwise the model), then atomically supersedes the previous
// generation and persists the new one. Nothing is written when
// generation fails.
func (s *quizService) createGeneration(ctx context.Context, userID, fileID uuid.UUID, n int, previous *types.QuizGeneration, allowCache bool) (*types.QuizGeneration, error) {
	files, err := s.fileRepo.GetByIDs(ctx, nil, []uuid.UUID{fileID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load file")
	}
	if len(files) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "file %s not found", fileID)
	}
	file := files[0]

	var raw json.RawMessage
	if allowCache && s.cache != nil {
		raw, err = s.cache.TakeOrGenerate(ctx, fileID, func(ctx context.Context) (json.RawMessage, error) {
			return s.generateQuestions(ctx, file, n)
		})
	} else {
		raw, err = s.generateQuestions(ctx, file, n)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGenerationFailure, err, "quiz generation failed for file %s", fileID)
	}

	var parsed generatedQuiz
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindGenerationFailure, err, "malformed generated quiz for file %s", fileID)
	}
	if err := validateGenerated(&parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindGenerationFailure, err, "invalid generated quiz for file %s", fileID)
	}

	gen := &types.QuizGeneration{
		ID:     uuid.New(),
		UserID: userID,
		FileID: fileID,
		Active: true,
	}
	questions := make([]*types.QuizQuestion, 0, len(parsed.Questions))
	for i, q := range parsed.Questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to encode options")
		}
		questions = append(questions, &types.QuizQuestion{
			ID:            uuid.New(),
			GenerationID:  gen.ID,
			Index:         i,
			PromptMD:      q.PromptMD,
			Options:       datatypes.JSON(opts),
			CorrectIndex:  q.CorrectIndex,
			ExplanationMD: q.ExplanationMD,
		})
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if previous != nil {
			if err := s.genRepo.Deactivate(ctx, tx, previous.ID); err != nil {
				return err
			}
		}
		if _, err := s.genRepo.Create(ctx, tx, []*types.QuizGeneration{gen}); err != nil {
			return err
		}
		if _, err := s.questionRepo.Create(ctx, tx, questions); err != nil {
			return err
		}
		return nil
	})
	if txErr != nil {
		return nil, apperr.Wrap(apperr.KindInternal, txErr, "failed to persist generation")
	}

	for _, q := range questions {
		gen.Questions = append(gen.Questions, *q)
	}
	s.log.Info("quiz generated",
		"user_id", userID.String(),
		"file_id", fileID.String(),
		"generation_id", gen.ID.String(),
		"questions", len(questions),
	)
	return gen, nil
}

func (s *quizService) generateQuestions(ctx context.Context, file *types.ContentFile, n int) (json.RawMessage, error) {
	if file.ExtractedText == "" {
		return nil, fmt.Errorf("file %s has no extractable text", file.ID)
	}
	system := "You write multiple-choice quizzes for teacher training content. " +
		"Every question must be answerable from the provided material alone. " +
		"Each question has exactly 4 options and one correct answer."
	user := fmt.Sprintf("Write exactly %d multiple-choice questions covering the key points of this material:\n\n%s", n, file.ExtractedText)

	obj, err := s.ai.GenerateJSON(ctx, system, user, "deck_quiz", quizSchema())
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func (s *quizService) requireUnlocked(ctx context.Context, userID, fileID uuid.UUID) error {
	status, err := s.progress.FileStatusFor(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if status == types.ProgressLocked {
		return apperr.New(apperr.KindInvalidState, "file %s is locked", fileID)
	}
	return nil
}

// priorPassedResult resolves a submission against an already-passed
// generation by replaying the stored passing attempt.
func (s *quizService) priorPassedResult(ctx context.Context, gen *types.QuizGeneration) (*QuizResult, error) {
	prior, err := s.attemptRepo.GetLatestPassedByGeneration(ctx, nil, gen.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load prior passing attempt")
	}
	if prior == nil {
		return nil, apperr.New(apperr.KindInternal, "generation %s marked passed but has no passing attempt", gen.ID)
	}
	return &QuizResult{
		GenerationID:      gen.ID,
		AttemptID:         prior.ID,
		Score:             prior.Score,
		TotalQuestions:    prior.TotalQuestions,
		Percentage:        prior.Percentage,
		Passed:            true,
		AlreadyPassed:     true,
		RemainingAttempts: gen.RemainingAttempts(),
	}, nil
}

func quizViewOf(gen *types.QuizGeneration) *QuizView {
	view := &QuizView{
		GenerationID:      gen.ID,
		FileID:            gen.FileID,
		AttemptsUsed:      gen.AttemptsUsed,
		RemainingAttempts: gen.RemainingAttempts(),
		HasPassed:         gen.HasPassed,
	}
	for i := range gen.Questions {
		q := &gen.Questions[i]
		opts, err := optionsOf(q)
		if err != nil {
			opts = nil
		}
		view.Questions = append(view.Questions, QuizQuestionView{
			ID:       q.ID,
			Index:    q.Index,
			PromptMD: q.PromptMD,
			Options:  opts,
		})
	}
	return view
}

func optionsOf(q *types.QuizQuestion) ([]string, error) {
	var opts []string
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func validateGenerated(quiz *generatedQuiz) error {
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("no questions generated")
	}
	for i, q := range quiz.Questions {
		if q.PromptMD == "" {
			return fmt.Errorf("question %d has an empty prompt", i)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d has %d options", i, len(q.Options))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("question %d has correct index %d out of range", i, q.CorrectIndex)
		}
	}
	return nil
}

func clampQuestions(n int) int {
	if n < MinQuizQuestions {
		return MinQuizQuestions
	}
	if n > MaxQuizQuestions {
		return MaxQuizQuestions
	}
	return n
}
