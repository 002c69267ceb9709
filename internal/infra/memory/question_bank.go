package memory

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-night/internal/domain"
)

// QuestionLoader fetches a named question set from a backing store (embedded content, Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, name string) ([]domain.Question, error)
}

// QuestionBank caches question sets with TTL to avoid repeated loader hits.
// Genres without their own set are served the default set.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
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
	if questions, ok := b.cached(name); ok {
		return questions, nil
	}

	result, err, _ := b.sf.Do(name, func() (interface{}, error) {
		if questions, ok := b.cached(name); ok {
			return questions, nil
		}

		questions, err := b.loader.LoadQuestions(ctx, name)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cache[name] = cachedSet{
			questions: questions,
			expiresAt: b.clock().Add(b.ttlWithJitter()),
		}
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(result.([]domain.Question)), nil
}

func (b *QuestionBank) cached(name string) ([]domain.Question, bool) {
	now := b.clock()
	b.mu.RLock()
	defer b.mu.RUnlock()
	if entry, ok := b.cache[name]; ok && entry.expiresAt.After(now) {
		return clone(entry.questions), true
	}
	return nil, false
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

func clone(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	return out
}
