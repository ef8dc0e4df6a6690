package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/teachbridge/backend/internal/apperr"
	"github.com/teachbridge/backend/internal/types"
)

func TestGenerateQuizIdempotentWhileActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	first, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(first.Questions) == 0 {
		t.Fatal("expected questions")
	}
	if first.RemainingAttempts != types.MaxQuizAttempts {
		t.Fatalf("expected %d remaining attempts, got %d", types.MaxQuizAttempts, first.RemainingAttempts)
	}
	for _, q := range first.Questions {
		if len(q.Options) != 4 {
			t.Fatalf("expected 4 options, got %d", len(q.Options))
		}
	}

	second, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("second GenerateQuiz: %v", err)
	}
	if second.GenerationID != first.GenerationID {
		t.Fatal("expected generate to return the active generation unchanged")
	}
	if env.ai.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", env.ai.calls)
	}
}

func TestGenerateQuizLockedFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 2)

	if _, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[1].ID, 5); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState for locked file, got %v", err)
	}
}

func TestGenerateQuizInvalidCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	if _, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 0); !apperr.IsKind(err, apperr.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if _, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, -2); !apperr.IsKind(err, apperr.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestGenerateQuizModelFailureMutatesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	env.ai.failNext = true
	if _, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5); !apperr.IsKind(err, apperr.KindGenerationFailure) {
		t.Fatalf("expected GenerationFailure, got %v", err)
	}
	gen, err := env.genRepo.GetActiveByUserAndFile(ctx, nil, teacher.ID, files[0].ID)
	if err != nil {
		t.Fatalf("load generation: %v", err)
	}
	if gen != nil {
		t.Fatal("failed generation should not persist anything")
	}
}

func TestSubmitQuizPassCompletesAndUnlocks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 2)

	quiz, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	result, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, correctAnswers(quiz))
	if err != nil {
		t.Fatalf("SubmitQuiz: %v", err)
	}
	if !result.Passed || result.Percentage != 100 {
		t.Fatalf("expected 100%% pass, got passed=%v pct=%d", result.Passed, result.Percentage)
	}
	if result.CanRegenerate {
		t.Fatal("a passing result must not offer regeneration")
	}
	if len(result.Review) != len(quiz.Questions) {
		t.Fatalf("expected full review, got %d entries", len(result.Review))
	}
	for _, r := range result.Review {
		if !r.Correct || r.ExplanationMD == "" {
			t.Fatalf("review entry incomplete: %+v", r)
		}
	}

	statuses, err := env.progress.GetWeekContentStatus(ctx, teacher.ID, week.ID)
	if err != nil {
		t.Fatalf("GetWeekContentStatus: %v", err)
	}
	if statuses[0].Status != types.ProgressCompleted {
		t.Fatalf("expected completed, got %s", statuses[0].Status)
	}
	if statuses[1].Status != types.ProgressAvailable {
		t.Fatalf("expected next file unlocked, got %s", statuses[1].Status)
	}
}

func TestSubmitQuizFailDoesNotComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 2)

	quiz, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	result, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, wrongAnswers(quiz))
	if err != nil {
		t.Fatalf("SubmitQuiz: %v", err)
	}
	if result.Passed {
		t.Fatal("all-wrong submission should not pass")
	}
	if result.RemainingAttempts != types.MaxQuizAttempts-1 {
		t.Fatalf("expected %d remaining, got %d", types.MaxQuizAttempts-1, result.RemainingAttempts)
	}

	statuses, _ := env.progress.GetWeekContentStatus(ctx, teacher.ID, week.ID)
	if statuses[0].Status == types.ProgressCompleted {
		t.Fatal("failing attempt must not complete the file")
	}
	if statuses[1].Status != types.ProgressLocked {
		t.Fatal("next file must stay locked after a fail")
	}
}

func TestSubmitQuizPassBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.ai.questions = 10
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	quiz, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 10)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}

	// 6/10 is below the pass mark.
	answers := correctAnswers(quiz)
	for _, q := range quiz.Questions[6:] {
		answers[q.ID] = 1
	}
	result, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, answers)
	if err != nil {
		t.Fatalf("SubmitQuiz 6/10: %v", err)
	}
	if result.Passed || result.Percentage != 60 {
		t.Fatalf("expected 60%% fail, got passed=%v pct=%d", result.Passed, result.Percentage)
	}

	// 7/10 is exactly the pass mark.
	answers = correctAnswers(quiz)
	for _, q := range quiz.Questions[7:] {
		answers[q.ID] = 1
	}
	result, err = env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, answers)
	if err != nil {
		t.Fatalf("SubmitQuiz 7/10: %v", err)
	}
	if !result.Passed || result.Percentage != 70 {
		t.Fatalf("expected 70%% pass, got passed=%v pct=%d", result.Passed, result.Percentage)
	}
}

func TestSubmitQuizPercentageRoundsHalfUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	quiz, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 3)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}

	// 2 of 3 correct is 66.67%, which rounds to 67.
	answers := correctAnswers(quiz)
	answers[quiz.Questions[2].ID] = 1
	result, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, answers)
	if err != nil {
		t.Fatalf("SubmitQuiz: %v", err)
	}
	if result.Score != 2 || result.Percentage != 67 {
		t.Fatalf("expected 2/3 to score 67%%, got score=%d pct=%d", result.Score, result.Percentage)
	}
	if result.Passed {
		t.Fatal("67% must not pass")
	}
}

func TestSubmitQuizIncompleteSubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	quiz, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}

	// A question left unanswered.
	short := correctAnswers(quiz)
	delete(short, quiz.Questions[0].ID)
	if _, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, short); !apperr.IsKind(err, apperr.KindIncompleteSubmission) {
		t.Fatalf("expected IncompleteSubmission, got %v", err)
	}
	// Answer index out of range.
	bad := correctAnswers(quiz)
	bad[quiz.Questions[0].ID] = 99
	if _, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, bad); !apperr.IsKind(err, apperr.KindIncompleteSubmission) {
		t.Fatalf("expected IncompleteSubmission, got %v", err)
	}
	// An answer keyed by a question from some other quiz.
	stray := correctAnswers(quiz)
	delete(stray, quiz.Questions[0].ID)
	stray[uuid.New()] = 0
	if _, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, stray); !apperr.IsKind(err, apperr.KindIncompleteSubmission) {
		t.Fatalf("expected IncompleteSubmission, got %v", err)
	}

	// Neither rejected submission consumed an attempt.
	gens, err := env.genRepo.GetByIDs(ctx, nil, []uuid.UUID{quiz.GenerationID})
	if err != nil || len(gens) == 0 {
		t.Fatalf("load generation: %v", err)
	}
	if gens[0].AttemptsUsed != 0 {
		t.Fatalf("expected 0 attempts used, got %d", gens[0].AttemptsUsed)
	}
}

func TestSubmitQuizAttemptsExhausted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	quiz, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	wrong := wrongAnswers(quiz)
	for i := 0; i < types.MaxQuizAttempts; i++ {
		result, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, wrong)
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if result.RemainingAttempts != types.MaxQuizAttempts-i-1 {
			t.Fatalf("attempt %d: expected %d remaining, got %d", i+1, types.MaxQuizAttempts-i-1, result.RemainingAttempts)
		}
		// The client is told to offer regeneration exactly when the
		// budget runs out without a pass.
		wantRegen := i == types.MaxQuizAttempts-1
		if result.CanRegenerate != wantRegen {
			t.Fatalf("attempt %d: expected can_regenerate=%v, got %v", i+1, wantRegen, result.CanRegenerate)
		}
	}

	if _, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, wrong); !apperr.IsKind(err, apperr.KindAttemptsExhausted) {
		t.Fatalf("expected AttemptsExhausted, got %v", err)
	}
}

func TestSubmitQuizAlreadyPassedReturnsPriorResult(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	quiz, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	first, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, correctAnswers(quiz))
	if err != nil {
		t.Fatalf("passing submit: %v", err)
	}

	second, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, wrongAnswers(quiz))
	if err != nil {
		t.Fatalf("resubmit after pass: %v", err)
	}
	if !second.AlreadyPassed {
		t.Fatal("expected already_passed result")
	}
	if second.AttemptID != first.AttemptID || second.Percentage != first.Percentage {
		t.Fatal("expected the prior passing attempt to be returned")
	}

	// The resubmission did not consume an attempt or record a new one.
	attempts, err := env.attemptRepo.GetByGenerationIDs(ctx, nil, []uuid.UUID{quiz.GenerationID})
	if err != nil {
		t.Fatalf("load attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
}

func TestSubmitQuizWrongOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, types.RoleTeacher)
	mallory := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	quiz, err := env.quiz.GenerateQuiz(ctx, alice.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if _, err := env.quiz.SubmitQuiz(ctx, mallory.ID, quiz.GenerationID, correctAnswers(quiz)); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestRegenerateQuiz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	quiz, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}

	// Attempts remain: regeneration is rejected.
	if _, err := env.quiz.RegenerateQuiz(ctx, teacher.ID, files[0].ID, 5); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState with attempts remaining, got %v", err)
	}

	wrong := wrongAnswers(quiz)
	for i := 0; i < types.MaxQuizAttempts; i++ {
		if _, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, wrong); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	fresh, err := env.quiz.RegenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("RegenerateQuiz: %v", err)
	}
	if fresh.GenerationID == quiz.GenerationID {
		t.Fatal("expected a new generation")
	}
	if fresh.AttemptsUsed != 0 || fresh.RemainingAttempts != types.MaxQuizAttempts {
		t.Fatalf("fresh generation should reset the attempt budget, got used=%d", fresh.AttemptsUsed)
	}

	// The old generation was superseded, not deleted.
	old, err := env.genRepo.GetByIDs(ctx, nil, []uuid.UUID{quiz.GenerationID})
	if err != nil || len(old) == 0 {
		t.Fatalf("load old generation: %v", err)
	}
	if old[0].Active {
		t.Fatal("old generation should be inactive")
	}

	// And regeneration is unbounded: exhaust the fresh one and go again.
	for i := 0; i < types.MaxQuizAttempts; i++ {
		if _, err := env.quiz.SubmitQuiz(ctx, teacher.ID, fresh.GenerationID, wrongAnswers(fresh)); err != nil {
			t.Fatalf("fresh attempt %d: %v", i+1, err)
		}
	}
	third, err := env.quiz.RegenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("second RegenerateQuiz: %v", err)
	}
	if third.GenerationID == fresh.GenerationID {
		t.Fatal("expected another new generation")
	}
}

func TestRegenerateQuizRejectedAfterPass(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	quiz, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if _, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, correctAnswers(quiz)); err != nil {
		t.Fatalf("passing submit: %v", err)
	}

	// A passed generation is not regenerable; retakes go through
	// GenerateQuiz, which supersedes it.
	if _, err := env.quiz.RegenerateQuiz(ctx, teacher.ID, files[0].ID, 5); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState after pass, got %v", err)
	}

	retake, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz after pass: %v", err)
	}
	if retake.GenerationID == quiz.GenerationID {
		t.Fatal("expected a fresh generation for the retake")
	}
}

func TestGetQuizHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	quiz, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	wrong := wrongAnswers(quiz)
	for i := 0; i < types.MaxQuizAttempts; i++ {
		if _, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, wrong); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	fresh, err := env.quiz.RegenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("RegenerateQuiz: %v", err)
	}
	if _, err := env.quiz.SubmitQuiz(ctx, teacher.ID, fresh.GenerationID, correctAnswers(fresh)); err != nil {
		t.Fatalf("passing submit: %v", err)
	}

	history, err := env.quiz.GetQuizHistory(ctx, teacher.ID, files[0].ID)
	if err != nil {
		t.Fatalf("GetQuizHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 generations in history, got %d", len(history))
	}
	if len(history[0].Attempts) != types.MaxQuizAttempts {
		t.Fatalf("expected %d attempts on first generation, got %d", types.MaxQuizAttempts, len(history[0].Attempts))
	}
	if len(history[1].Attempts) != 1 || !history[1].Attempts[0].Passed {
		t.Fatal("expected one passing attempt on second generation")
	}
}

func TestWeekCheckpointAccumulatesPerUpload(t *testing.T) {
	env := newTestEnv(t)
	env.enableQuizCache(t)
	ctx := context.Background()
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 2)

	if _, err := env.quiz.WeekCheckpoint(ctx, week.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound before any warm, got %v", err)
	}
	if _, err := env.quiz.WeekCheckpoint(ctx, uuid.New()); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound for unknown week, got %v", err)
	}

	env.ai.questions = 2
	for _, f := range files {
		if err := env.quiz.WarmFile(ctx, f.ID); err != nil {
			t.Fatalf("WarmFile: %v", err)
		}
	}

	checkpoint, err := env.quiz.WeekCheckpoint(ctx, week.ID)
	if err != nil {
		t.Fatalf("WeekCheckpoint: %v", err)
	}
	if checkpoint.WeekID != week.ID {
		t.Fatalf("wrong week on checkpoint: %s", checkpoint.WeekID)
	}
	// Each upload contributed its own batch of questions.
	if len(checkpoint.Questions) != 4 {
		t.Fatalf("expected 4 checkpoint questions after 2 uploads, got %d", len(checkpoint.Questions))
	}
	for i, q := range checkpoint.Questions {
		if q.PromptMD == "" || len(q.Options) != 4 {
			t.Fatalf("checkpoint question %d incomplete: %+v", i, q)
		}
	}
}

func TestGetActiveQuiz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, types.RoleTeacher)
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)
	files := env.createFiles(t, week.ID, 1)

	if _, err := env.quiz.GetActiveQuiz(ctx, teacher.ID, files[0].ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound before generation, got %v", err)
	}
	quiz, err := env.quiz.GenerateQuiz(ctx, teacher.ID, files[0].ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	active, err := env.quiz.GetActiveQuiz(ctx, teacher.ID, files[0].ID)
	if err != nil {
		t.Fatalf("GetActiveQuiz: %v", err)
	}
	if active.GenerationID != quiz.GenerationID {
		t.Fatal("expected the generated quiz to be active")
	}
}
