package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/teachbridge/backend/internal/apperr"
	"github.com/teachbridge/backend/internal/types"
)

func TestUploadDeckValidation(t *testing.T) {
	env, _, files, _ := newAuthoringEnv(t)
	ctx := context.Background()
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)

	if _, err := files.UploadDeck(ctx, week.ID, "deck.txt", "text/plain", nil); !apperr.IsKind(err, apperr.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for empty upload, got %v", err)
	}
	if _, err := files.UploadDeck(ctx, uuid.New(), "deck.txt", "text/plain", []byte("x")); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound for unknown week, got %v", err)
	}
}

func TestUploadDeckRejectsUnreadable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bucket := newFakeBucket()
	failing := func(originalName, mimeType string, data []byte) (string, error) {
		return "", fmt.Errorf("cannot parse %s", originalName)
	}
	files := NewFileService(env.db, env.log, env.weekRepo, env.fileRepo, env.progressRepo,
		env.genRepo, env.questionRepo, env.attemptRepo, bucket, failing, nil, nil)

	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)

	if _, err := files.UploadDeck(ctx, week.ID, "deck.bin", "application/octet-stream", []byte{0x00, 0x01}); !apperr.IsKind(err, apperr.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for unreadable deck, got %v", err)
	}
	// Nothing stored or recorded for a rejected upload.
	if len(bucket.objects) != 0 {
		t.Fatalf("expected no stored objects, got %d", len(bucket.objects))
	}
	rows, err := files.ListWeekFiles(ctx, week.ID)
	if err != nil {
		t.Fatalf("ListWeekFiles: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no file rows, got %d", len(rows))
	}
}

func TestUploadDeckAppendsInOrder(t *testing.T) {
	env, _, files, bucket := newAuthoringEnv(t)
	ctx := context.Background()
	trainer := env.createUser(t, types.RoleTrainer)
	_, week := env.createCourseWeek(t, trainer.ID)

	for i := 0; i < 3; i++ {
		f, err := files.UploadDeck(ctx, week.ID, fmt.Sprintf("deck %d.txt", i), "text/plain", []byte("deck body"))
		if err != nil {
			t.Fatalf("UploadDeck %d: %v", i, err)
		}
		if f.Index != i {
			t.Fatalf("expected index %d, got %d", i, f.Index)
		}
		if f.ExtractedText == "" {
			t.Fatal("expected extracted text captured at upload")
		}
		if _, ok := bucket.objects[f.StorageKey]; !ok {
			t.Fatalf("expected object stored at %s", f.StorageKey)
		}
	}

	rows, err := files.ListWeekFiles(ctx, week.ID)
	if err != nil {
		t.Fatalf("ListWeekFiles: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 files, got %d", len(rows))
	}
	for i, f := range rows {
		if f.Index != i {
			t.Fatalf("expected ordered listing, row %d has index %d", i, f.Index)
		}
	}
}

func TestDeckStorageKeySanitizesName(t *testing.T) {
	weekID := uuid.New()
	fileID := uuid.New()
	key := deckStorageKey(weekID, fileID, "My Slides (v2)!.pdf")
	want := fmt.Sprintf("decks/%s/%s/My_Slides_v2_.pdf", weekID, fileID)
	if key != want {
		t.Fatalf("unexpected key %q, want %q", key, want)
	}

	key = deckStorageKey(weekID, fileID, "///")
	want = fmt.Sprintf("decks/%s/%s/deck", weekID, fileID)
	if key != want {
		t.Fatalf("unexpected fallback key %q, want %q", key, want)
	}
}

func TestDeleteFileCleansQuizAndProgress(t *testing.T) {
	env, _, files, bucket := newAuthoringEnv(t)
	ctx := context.Background()
	trainer := env.createUser(t, types.RoleTrainer)
	teacher := env.createUser(t, types.RoleTeacher)
	_, week := env.createCourseWeek(t, trainer.ID)

	f, err := files.UploadDeck(ctx, week.ID, "deck.txt", "text/plain", []byte("deck body"))
	if err != nil {
		t.Fatalf("UploadDeck: %v", err)
	}

	// Build up quiz and progress state against the file.
	quiz, err := env.quiz.GenerateQuiz(ctx, teacher.ID, f.ID, 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if _, err := env.quiz.SubmitQuiz(ctx, teacher.ID, quiz.GenerationID, wrongAnswers(quiz)); err != nil {
		t.Fatalf("SubmitQuiz: %v", err)
	}

	if err := files.DeleteFile(ctx, f.ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}

	if _, err := files.GetFile(ctx, f.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
	gens, err := env.genRepo.GetByFileIDs(ctx, nil, []uuid.UUID{f.ID})
	if err != nil {
		t.Fatalf("load generations: %v", err)
	}
	if len(gens) != 0 {
		t.Fatalf("expected generations removed, got %d", len(gens))
	}
	attempts, err := env.attemptRepo.GetByGenerationIDs(ctx, nil, []uuid.UUID{quiz.GenerationID})
	if err != nil {
		t.Fatalf("load attempts: %v", err)
	}
	if len(attempts) != 0 {
		t.Fatalf("expected attempts removed, got %d", len(attempts))
	}
	if len(bucket.objects) != 0 {
		t.Fatalf("expected stored object removed, got %d", len(bucket.objects))
	}
}
