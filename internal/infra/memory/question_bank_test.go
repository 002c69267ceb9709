package memory

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"quiz-night/internal/content"
	"quiz-night/internal/domain"
)

func TestQuestionBankCaches(t *testing.T) {
	loader := &countingLoader{QuestionLoader: content.NewLoader(sampleSets())}
	bank := NewQuestionBank(loader, time.Minute)

	if _, err := bank.Questions(context.Background(), domain.GenreMusic); err != nil {
		t.Fatalf("questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := bank.Questions(context.Background(), domain.GenreMusic); err != nil {
		t.Fatalf("questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionBankReloadsAfterTTL(t *testing.T) {
	loader := &countingLoader{QuestionLoader: content.NewLoader(sampleSets())}
	bank := NewQuestionBank(loader, time.Minute)
	now := time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)
	bank.clock = func() time.Time { return now }

	_, _ = bank.Questions(context.Background(), domain.GenreMusic)
	now = now.Add(2 * time.Minute)
	_, _ = bank.Questions(context.Background(), domain.GenreMusic)

	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestQuestionBankFallsBackToDefault(t *testing.T) {
	bank := NewQuestionBank(content.NewLoader(sampleSets()), time.Minute)

	questions, err := bank.Questions(context.Background(), domain.GenreNetflix)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 1 || questions[0].Prompt != "Which ocean is the largest?" {
		t.Fatalf("expected default set, got %+v", questions)
	}
}

func TestQuestionBankPropagatesLoaderFailure(t *testing.T) {
	boom := errors.New("db down")
	bank := NewQuestionBank(failingLoader{err: boom}, time.Minute)
	if _, err := bank.Questions(context.Background(), domain.GenreMusic); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
}

func TestQuestionBankIsDeterministic(t *testing.T) {
	bank := NewQuestionBank(content.NewLoader(sampleSets()), 0)
	first, _ := bank.Questions(context.Background(), domain.GenreMusic)
	second, _ := bank.Questions(context.Background(), domain.GenreMusic)
	for i := range first {
		if first[i].Prompt != second[i].Prompt {
			t.Fatalf("expected the same order every time, got %q vs %q", first[i].Prompt, second[i].Prompt)
		}
	}
}

func TestShuffledBankKeepsQuestionsIntact(t *testing.T) {
	sets := map[string][]domain.Question{string(domain.GenreMusic): numbered(20)}
	inner := NewQuestionBank(content.NewLoader(sets), time.Minute)

	a := NewShuffledBank(inner, rand.New(rand.NewSource(7)))
	b := NewShuffledBank(inner, rand.New(rand.NewSource(7)))
	first, err := a.Questions(context.Background(), domain.GenreMusic)
	if err != nil {
		t.Fatalf("shuffled: %v", err)
	}
	second, _ := b.Questions(context.Background(), domain.GenreMusic)

	if len(first) != 20 {
		t.Fatalf("expected 20 questions, got %d", len(first))
	}
	seen := map[string]bool{}
	moved := false
	for i, q := range first {
		if q.Prompt != second[i].Prompt {
			t.Fatalf("expected the same seed to give the same order")
		}
		if q.Prompt != numbered(20)[i].Prompt {
			moved = true
		}
		seen[q.Prompt] = true
	}
	if len(seen) != 20 {
		t.Fatalf("expected a permutation, got %d distinct questions", len(seen))
	}
	if !moved {
		t.Fatalf("expected seed 7 to reorder 20 questions")
	}

	original, _ := inner.Questions(context.Background(), domain.GenreMusic)
	if original[0].Prompt != numbered(20)[0].Prompt {
		t.Fatalf("shuffling must not reorder the cached set")
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, name string) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, name)
}

type failingLoader struct {
	err error
}

func (l failingLoader) LoadQuestions(context.Context, string) ([]domain.Question, error) {
	return nil, l.err
}

func sampleSets() map[string][]domain.Question {
	return map[string][]domain.Question{
		string(domain.GenreMusic): {
			{Prompt: "Who is known as the King of Pop?", Options: []string{"Bruno Mars", "Justin Timberlake", "Michael Jackson", "Lionel Richie"}, CorrectIndex: 2},
		},
		domain.DefaultQuestionSet: {
			{Prompt: "Which ocean is the largest?", Options: []string{"Atlantic", "Indian", "Pacific", "Arctic"}, CorrectIndex: 2},
		},
	}
}

func numbered(n int) []domain.Question {
	out := make([]domain.Question, n)
	for i := range out {
		out[i] = domain.Question{Prompt: string(rune('A' + i)), Options: []string{"a", "b", "c", "d"}}
	}
	return out
}
