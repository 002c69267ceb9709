package app

import "quiz-night/internal/domain"

// DefaultPointsPerCorrect is the flat reward for a correct answer.
const DefaultPointsPerCorrect = 20

// ScoringPolicy turns one round's answers into per-player point deltas.
// Implementations must be pure.
type ScoringPolicy interface {
	Score(q domain.Question, answers map[string]int, roster []domain.Player) map[string]int
}

// FlatReward awards the same points to every player who picked the correct option.
// Answer speed does not matter.
type FlatReward struct {
	Points int
}

// Score returns a delta for every roster player, zero for wrong or missing answers.
func (f FlatReward) Score(q domain.Question, answers map[string]int, roster []domain.Player) map[string]int {
	deltas := make(map[string]int, len(roster))
	for _, p := range roster {
		deltas[p.ID] = 0
		if sel, ok := answers[p.ID]; ok && sel == q.CorrectIndex {
			deltas[p.ID] = f.Points
		}
	}
	return deltas
}
