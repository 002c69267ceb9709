// Package content ships the built-in question sets with the binary.
package content

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"quiz-night/internal/domain"
)

//go:embed questions.yaml
var questionsYAML []byte

// Sets parses the embedded question sets keyed by set name.
func Sets() (map[string][]domain.Question, error) {
	return Parse(questionsYAML)
}

// Parse decodes YAML question sets and validates every question.
func Parse(data []byte) (map[string][]domain.Question, error) {
	sets := make(map[string][]domain.Question)
	if err := yaml.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("parse question sets: %w", err)
	}
	for name, questions := range sets {
		for _, q := range questions {
			if err := q.Validate(); err != nil {
				return nil, fmt.Errorf("set %s: %w", name, err)
			}
		}
	}
	return sets, nil
}

// Loader serves question sets from memory. It satisfies the bank loader interfaces.
type Loader struct {
	sets map[string][]domain.Question
}

// NewLoader wraps already parsed sets.
func NewLoader(sets map[string][]domain.Question) *Loader {
	return &Loader{sets: sets}
}

// NewEmbeddedLoader serves the built-in sets.
func NewEmbeddedLoader() (*Loader, error) {
	sets, err := Sets()
	if err != nil {
		return nil, err
	}
	return NewLoader(sets), nil
}

// LoadQuestions returns a copy of the named set.
func (l *Loader) LoadQuestions(_ context.Context, name string) ([]domain.Question, error) {
	questions, ok := l.sets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGenreNotFound, name)
	}
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	return out, nil
}
