package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"quiz-night/internal/domain"
)

// QuestionLoader fetches a named question set from a backing store (embedded content, Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, name string) ([]domain.Question, error)
}

// QuestionBank caches question sets in Redis and falls back to a loader on cache miss.
// Sets are stored as JSON: SET quiz-night:questions:{name} [...]
type QuestionBank struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader QuestionLoader, ttl time.Duration, logger *zap.Logger) *QuestionBank {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Questions returns the set for genre, falling back to the default set when the
// genre has none.
func (b *QuestionBank) Questions(ctx context.Context, genre domain.Genre) ([]domain.Question, error) {
	questions, err := b.load(ctx, string(genre))
	if errors.Is(err, domain.ErrGenreNotFound) && string(genre) != domain.DefaultQuestionSet {
		return b.load(ctx, domain.DefaultQuestionSet)
	}
	return questions, err
}

func (b *QuestionBank) load(ctx context.Context, name string) ([]domain.Question, error) {
	if questions, ok := b.cached(ctx, name); ok {
		return questions, nil
	}

	result, err, _ := b.sf.Do(name, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := b.cached(ctx, name); ok {
			return questions, nil
		}

		questions, err := b.loader.LoadQuestions(ctx, name)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(questions)
		if err != nil {
			return nil, fmt.Errorf("encode question set %s: %w", name, err)
		}
		// Best effort: a failed write only costs another loader hit.
		if err := b.client.Set(ctx, b.key(name), data, b.ttlWithJitter()).Err(); err != nil {
			b.logger.Warn("cache question set failed", zap.String("set", name), zap.Error(err))
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) cached(ctx context.Context, name string) ([]domain.Question, bool) {
	data, err := b.client.Get(ctx, b.key(name)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			b.logger.Warn("read cached question set failed", zap.String("set", name), zap.Error(err))
		}
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		b.logger.Warn("discarding corrupt cached question set", zap.String("set", name), zap.Error(err))
		return nil, false
	}
	return questions, true
}

func (b *QuestionBank) key(name string) string {
	return "quiz-night:questions:" + name
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
