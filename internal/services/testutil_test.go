package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/teachbridge/backend/internal/db"
	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/repos"
	"github.com/teachbridge/backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type testEnv struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	weekRepo     repos.TrainingWeekRepo
	fileRepo     repos.ContentFileRepo
	progressRepo repos.ContentProgressRepo
	genRepo      repos.QuizGenerationRepo
	questionRepo repos.QuizQuestionRepo
	attemptRepo  repos.QuizAttemptRepo
	courseRepo   repos.CourseRepo
	batchRepo    repos.BatchRepo

	progress ProgressService
	ai       *fakeAI
	quiz     QuizService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := newTestDB(t)
	log := newTestLogger(t)
	env := &testEnv{
		db:           gdb,
		log:          log,
		userRepo:     repos.NewUserRepo(gdb, log),
		weekRepo:     repos.NewTrainingWeekRepo(gdb, log),
		fileRepo:     repos.NewContentFileRepo(gdb, log),
		progressRepo: repos.NewContentProgressRepo(gdb, log),
		genRepo:      repos.NewQuizGenerationRepo(gdb, log),
		questionRepo: repos.NewQuizQuestionRepo(gdb, log),
		attemptRepo:  repos.NewQuizAttemptRepo(gdb, log),
		courseRepo:   repos.NewCourseRepo(gdb, log),
		batchRepo:    repos.NewBatchRepo(gdb, log),
		ai:           newFakeAI(),
	}
	env.progress = NewProgressService(gdb, log, env.userRepo, env.weekRepo, env.fileRepo, env.progressRepo)
	env.quiz = NewQuizService(gdb, log, env.weekRepo, env.fileRepo, env.genRepo, env.questionRepo, env.attemptRepo, env.progress, env.ai, nil)
	return env
}

// enableQuizCache rebuilds the quiz service on top of a live cache for
// tests that exercise warming and the checkpoint quiz.
func (e *testEnv) enableQuizCache(t *testing.T) QuizCacheService {
	t.Helper()
	cache := newTestCache(t)
	e.quiz = NewQuizService(e.db, e.log, e.weekRepo, e.fileRepo, e.genRepo, e.questionRepo, e.attemptRepo, e.progress, e.ai, cache)
	return cache
}

func (e *testEnv) createUser(t *testing.T, role string) *types.User {
	t.Helper()
	user := &types.User{
		ID:        uuid.New(),
		Email:     fmt.Sprintf("%s@example.com", uuid.New()),
		Password:  "hashed",
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	}
	if _, err := e.userRepo.Create(context.Background(), nil, []*types.User{user}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (e *testEnv) createCourseWeek(t *testing.T, createdBy uuid.UUID) (*types.Course, *types.TrainingWeek) {
	t.Helper()
	course := &types.Course{
		ID:        uuid.New(),
		Title:     "Course",
		CreatedBy: createdBy,
	}
	if _, err := e.courseRepo.Create(context.Background(), nil, []*types.Course{course}); err != nil {
		t.Fatalf("create course: %v", err)
	}
	week := &types.TrainingWeek{
		ID:       uuid.New(),
		CourseID: course.ID,
		Index:    1,
		Title:    "Week 1",
	}
	if _, err := e.weekRepo.Create(context.Background(), nil, []*types.TrainingWeek{week}); err != nil {
		t.Fatalf("create week: %v", err)
	}
	return course, week
}

func (e *testEnv) createFiles(t *testing.T, weekID uuid.UUID, n int) []*types.ContentFile {
	t.Helper()
	files := make([]*types.ContentFile, 0, n)
	for i := 0; i < n; i++ {
		f := &types.ContentFile{
			ID:            uuid.New(),
			WeekID:        weekID,
			Index:         i,
			OriginalName:  fmt.Sprintf("deck-%d.pdf", i),
			MimeType:      "application/pdf",
			SizeBytes:     100,
			StorageKey:    fmt.Sprintf("decks/%s/%d", weekID, i),
			ExtractedText: "photosynthesis converts light into chemical energy",
		}
		files = append(files, f)
	}
	if _, err := e.fileRepo.Create(context.Background(), nil, files); err != nil {
		t.Fatalf("create files: %v", err)
	}
	return files
}

// fakeAI returns a fixed question set. Option 0 is always correct.
type fakeAI struct {
	mu        sync.Mutex
	calls     int
	failNext  bool
	questions int
}

func newFakeAI() *fakeAI {
	return &fakeAI{questions: 3}
}

func (f *fakeAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return nil, fmt.Errorf("model unavailable")
	}
	f.calls++
	questions := make([]any, 0, f.questions)
	for i := 0; i < f.questions; i++ {
		questions = append(questions, map[string]any{
			"prompt_md":      fmt.Sprintf("Question %d (call %d)?", i, f.calls),
			"options":        []any{"right", "wrong", "also wrong", "very wrong"},
			"correct_index":  float64(0),
			"explanation_md": "the first option restates the material",
		})
	}
	return map[string]any{"questions": questions}, nil
}

// fakeBucket stores objects in memory.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (b *fakeBucket) UploadFile(ctx context.Context, key string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *fakeBucket) DeleteFile(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *fakeBucket) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func correctAnswers(quiz *QuizView) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(quiz.Questions))
	for _, q := range quiz.Questions {
		out[q.ID] = 0
	}
	return out
}

func wrongAnswers(quiz *QuizView) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(quiz.Questions))
	for _, q := range quiz.Questions {
		out[q.ID] = 1
	}
	return out
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}
