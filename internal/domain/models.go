package domain

import (
	"fmt"
	"time"
)

// OptionCount is the number of options every question carries.
const OptionCount = 4

// DefaultQuestionSet names the set served for genres without their own questions.
const DefaultQuestionSet = "default"

// Player is one member of the fixed local roster.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Question models an MCQ question with exactly four options.
type Question struct {
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correctIndex" yaml:"correctIndex"`
	Explanation  string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Validate reports whether the question can be played.
func (q Question) Validate() error {
	if q.Prompt == "" {
		return fmt.Errorf("%w: empty prompt", ErrInvalidQuestion)
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("%w: %q has %d options", ErrInvalidQuestion, q.Prompt, len(q.Options))
	}
	if !ValidOption(q.CorrectIndex) {
		return fmt.Errorf("%w: %q has correct index %d", ErrInvalidQuestion, q.Prompt, q.CorrectIndex)
	}
	return nil
}

// ValidOption reports whether idx addresses one of the four options.
func ValidOption(idx int) bool {
	return idx >= 0 && idx < OptionCount
}

// Genre selects which question set a game plays.
type Genre string

const (
	GenreMusic   Genre = "Music"
	GenreCinema  Genre = "Cinema"
	GenreKDrama  Genre = "K-Drama"
	GenreNetflix Genre = "Netflix Originals"
	GenreTV      Genre = "TV Series"
)

// Genres lists the selectable genres in display order.
func Genres() []Genre {
	return []Genre{GenreMusic, GenreCinema, GenreKDrama, GenreNetflix, GenreTV}
}

// ParseGenre maps a display name onto a Genre.
func ParseGenre(raw string) (Genre, error) {
	for _, g := range Genres() {
		if string(g) == raw {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrGenreNotFound, raw)
}

// Screen is the UI phase the shared screen presents.
type Screen int

const (
	ScreenHome Screen = iota
	ScreenLobby
	ScreenGenreSelect
	ScreenQuestion
	ScreenScoreboard
	ScreenGameOver
)

// String returns the wire name of the screen.
func (s Screen) String() string {
	switch s {
	case ScreenHome:
		return "home"
	case ScreenLobby:
		return "lobby"
	case ScreenGenreSelect:
		return "genre"
	case ScreenQuestion:
		return "question"
	case ScreenScoreboard:
		return "scoreboard"
	case ScreenGameOver:
		return "gameover"
	default:
		return "unknown"
	}
}

// MarshalText encodes the screen by name so snapshots stay readable on the wire.
func (s Screen) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a screen name written by MarshalText.
func (s *Screen) UnmarshalText(text []byte) error {
	for candidate := ScreenHome; candidate <= ScreenGameOver; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown screen %q", text)
}

// Snapshot is a read-only view of one game, published after every change.
type Snapshot struct {
	GameID          string         `json:"gameId"`
	Screen          Screen         `json:"screen"`
	Players         []Player       `json:"players"`
	Standings       []Player       `json:"standings"`
	Genre           Genre          `json:"genre,omitempty"`
	RoundIndex      int            `json:"roundIndex"`
	QuestionCount   int            `json:"questionCount"`
	Question        *Question      `json:"question,omitempty"`
	TimePerQuestion int            `json:"timePerQuestion"`
	TimerSeconds    int            `json:"timerSeconds"`
	CountingDown    bool           `json:"countingDown"`
	RevealedCorrect bool           `json:"revealedCorrect"`
	Answers         map[string]int `json:"answers"`
	Winner          *Player        `json:"winner,omitempty"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}
