package memory

import (
	"context"
	"math/rand"
	"sync"

	"quiz-night/internal/app"
	"quiz-night/internal/domain"
)

// ShuffledBank randomizes the question order of another bank. Options are left
// alone so each question's correct index stays valid.
type ShuffledBank struct {
	inner app.QuestionBank

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewShuffledBank(inner app.QuestionBank, rnd *rand.Rand) *ShuffledBank {
	return &ShuffledBank{inner: inner, rnd: rnd}
}

func (b *ShuffledBank) Questions(ctx context.Context, genre domain.Genre) ([]domain.Question, error) {
	questions, err := b.inner.Questions(ctx, genre)
	if err != nil {
		return nil, err
	}
	out := clone(questions)
	b.mu.Lock()
	b.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	b.mu.Unlock()
	return out, nil
}
