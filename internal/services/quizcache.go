package services

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/teachbridge/backend/internal/logger"
)

// QuizCacheService holds one pre-generated question set per deck file so
// that the first teacher to reach a file gets a quiz without waiting on
// the model. Sets are single-use: a take removes the entry, which keeps
// regenerated quizzes fresh instead of replaying cached questions.
type QuizCacheService interface {
	// Warm stores a prepared question set for the file, replacing any
	// existing one.
	Warm(ctx context.Context, fileID uuid.UUID, raw json.RawMessage) error
	// Take consumes the prepared set for the file. Returns nil with no
	// error on a cache miss.
	Take(ctx context.Context, fileID uuid.UUID) (json.RawMessage, error)
	// TakeOrGenerate consumes the prepared set, falling back to generate
	// on a miss. Concurrent misses for the same file share one generate
	// call.
	TakeOrGenerate(ctx context.Context, fileID uuid.UUID, generate func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, error)
	// Invalidate drops the prepared set, if any. Called on file delete.
	Invalidate(ctx context.Context, fileID uuid.UUID) error
	// AppendCheckpoint adds questions to the week's running checkpoint
	// quiz. Appends are atomic, so concurrent upload warms interleave
	// without losing entries.
	AppendCheckpoint(ctx context.Context, weekID uuid.UUID, questions []json.RawMessage) error
	// CheckpointQuestions returns the week's accumulated checkpoint
	// questions in append order. Returns nil with no error when the week
	// has none.
	CheckpointQuestions(ctx context.Context, weekID uuid.UUID) ([]json.RawMessage, error)
	// DropCheckpoint removes the week's checkpoint quiz. Called on week
	// delete.
	DropCheckpoint(ctx context.Context, weekID uuid.UUID) error
}

type quizCacheService struct {
	log    *logger.Logger
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
}

func NewQuizCacheService(log *logger.Logger, client *redis.Client, ttl time.Duration) QuizCacheService {
	return &quizCacheService{
		log:    log.With("service", "QuizCacheService"),
		client: client,
		ttl:    ttl,
	}
}

func (s *quizCacheService) key(fileID uuid.UUID) string {
	return "deck:" + fileID.String() + ":quiz"
}

func (s *quizCacheService) Warm(ctx context.Context, fileID uuid.UUID, raw json.RawMessage) error {
	if err := s.client.Set(ctx, s.key(fileID), []byte(raw), s.ttlWithJitter()).Err(); err != nil {
		return err
	}
	s.log.Info("warmed quiz cache", "file_id", fileID.String())
	return nil
}

func (s *quizCacheService) Take(ctx context.Context, fileID uuid.UUID) (json.RawMessage, error) {
	val, err := s.client.GetDel(ctx, s.key(fileID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(val), nil
}

func (s *quizCacheService) TakeOrGenerate(ctx context.Context, fileID uuid.UUID, generate func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	cached, err := s.Take(ctx, fileID)
	if err != nil {
		// Treat a cache outage as a miss; generation still works.
		s.log.Warn("quiz cache unavailable, generating directly", "file_id", fileID.String(), "error", err.Error())
	}
	if cached != nil {
		return cached, nil
	}
	result, err, _ := s.sf.Do(fileID.String(), func() (interface{}, error) {
		return generate(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(json.RawMessage), nil
}

func (s *quizCacheService) Invalidate(ctx context.Context, fileID uuid.UUID) error {
	return s.client.Del(ctx, s.key(fileID)).Err()
}

func (s *quizCacheService) checkpointKey(weekID uuid.UUID) string {
	return "week:" + weekID.String() + ":checkpoint"
}

func (s *quizCacheService) AppendCheckpoint(ctx context.Context, weekID uuid.UUID, questions []json.RawMessage) error {
	if len(questions) == 0 {
		return nil
	}
	vals := make([]interface{}, 0, len(questions))
	for _, q := range questions {
		vals = append(vals, []byte(q))
	}
	// Checkpoint quizzes accumulate for the life of the week, so no TTL.
	if err := s.client.RPush(ctx, s.checkpointKey(weekID), vals...).Err(); err != nil {
		return err
	}
	s.log.Info("checkpoint quiz extended", "week_id", weekID.String(), "questions", len(questions))
	return nil
}

func (s *quizCacheService) CheckpointQuestions(ctx context.Context, weekID uuid.UUID) ([]json.RawMessage, error) {
	vals, err := s.client.LRange(ctx, s.checkpointKey(weekID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([]json.RawMessage, 0, len(vals))
	for _, v := range vals {
		out = append(out, json.RawMessage(v))
	}
	return out, nil
}

func (s *quizCacheService) DropCheckpoint(ctx context.Context, weekID uuid.UUID) error {
	return s.client.Del(ctx, s.checkpointKey(weekID)).Err()
}

func (s *quizCacheService) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// Top-level rand is safe for the concurrent warm goroutines.
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
