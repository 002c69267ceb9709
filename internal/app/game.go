package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"quiz-night/internal/domain"
	"quiz-night/internal/telemetry"
)

// QuestionBank supplies the ordered questions for a genre. Unknown genres are
// served the default set rather than an error.
type QuestionBank interface {
	Questions(ctx context.Context, genre domain.Genre) ([]domain.Question, error)
}

// GameRepository abstracts where hosted games live (in-memory, Redis-marked, etc).
type GameRepository interface {
	GetOrCreate(gameID string) *Game
	Get(gameID string) (*Game, bool)
	Delete(gameID string)
	SweepIdle(before time.Time) []string
}

// GameFactory builds a fresh game for a repository.
type GameFactory func(gameID string) *Game

// Settings are fixed for the lifetime of a game.
type Settings struct {
	RoundsPerGame    int
	TimePerQuestion  int // seconds
	PointsPerCorrect int
}

// DefaultSettings mirrors the family edition: five rounds of ten seconds, 20 points each.
func DefaultSettings() Settings {
	return Settings{RoundsPerGame: 5, TimePerQuestion: 10, PointsPerCorrect: DefaultPointsPerCorrect}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.RoundsPerGame <= 0 {
		s.RoundsPerGame = d.RoundsPerGame
	}
	if s.TimePerQuestion <= 0 {
		s.TimePerQuestion = d.TimePerQuestion
	}
	if s.PointsPerCorrect <= 0 {
		s.PointsPerCorrect = d.PointsPerCorrect
	}
	return s
}

// Option customizes a Game at construction.
type Option func(*Game)

// WithClock paces the round timer with c.
func WithClock(c Clock) Option {
	return func(g *Game) { g.timer = NewRoundTimer(c) }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Game) { g.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Game) { g.tracer = t }
}

// WithScoring replaces the flat reward policy.
func WithScoring(p ScoringPolicy) Option {
	return func(g *Game) { g.scoring = p }
}

// WithNow is test-only for deterministic timestamps.
func WithNow(now func() time.Time) Option {
	return func(g *Game) { g.now = now }
}

// Game is the state machine for one shared screen. Every transition runs under mu;
// round timer callbacks take the same lock and are dropped unless their generation
// is still current.
type Game struct {
	id       string
	settings Settings
	bank     QuestionBank
	scoring  ScoringPolicy
	timer    *RoundTimer
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time

	mu           sync.RWMutex
	screen       domain.Screen
	players      []domain.Player
	genre        domain.Genre
	questions    []domain.Question
	roundIndex   int
	timerSeconds int
	countingDown bool
	revealed     bool
	answers      map[string]int
	timerGen     Generation
	lastActivity time.Time
	subscribers  map[chan domain.Snapshot]struct{}
}

// NewGame seats the roster (names only; ids are assigned here) on the home screen.
func NewGame(id string, roster []string, settings Settings, bank QuestionBank, opts ...Option) *Game {
	settings = settings.withDefaults()
	g := &Game{
		id:           id,
		settings:     settings,
		bank:         bank,
		scoring:      FlatReward{Points: settings.PointsPerCorrect},
		logger:       zap.NewNop(),
		tracer:       telemetry.Tracer("game"),
		now:          time.Now,
		screen:       domain.ScreenHome,
		players:      make([]domain.Player, 0, len(roster)),
		timerSeconds: settings.TimePerQuestion,
		answers:      make(map[string]int),
		subscribers:  make(map[chan domain.Snapshot]struct{}),
	}
	for _, name := range roster {
		g.players = append(g.players, domain.Player{ID: uuid.NewString(), Name: name})
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.timer == nil {
		g.timer = NewRoundTimer(RealClock())
	}
	g.logger = g.logger.With(zap.String("game", id))
	g.lastActivity = g.now()
	return g
}

// ID returns the key the game is hosted under.
func (g *Game) ID() string {
	return g.id
}

// Settings returns the fixed session configuration.
func (g *Game) Settings() Settings {
	return g.settings
}

// ResetAll zeroes every score and returns to the home screen, dropping any round in flight.
func (g *Game) ResetAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cancelTimerLocked()
	for i := range g.players {
		g.players[i] = domain.Player{ID: g.players[i].ID, Name: g.players[i].Name}
	}
	g.genre = ""
	g.questions = nil
	g.roundIndex = 0
	g.timerSeconds = g.settings.TimePerQuestion
	g.countingDown = false
	g.revealed = false
	g.answers = make(map[string]int)
	g.screen = domain.ScreenHome
	g.logger.Info("game reset")
	g.changedLocked()
}

// EnterLobby shows the lobby.
func (g *Game) EnterLobby() {
	g.setScreen(domain.ScreenLobby)
}

// OpenGenreSelect shows the genre picker.
func (g *Game) OpenGenreSelect() {
	g.setScreen(domain.ScreenGenreSelect)
}

func (g *Game) setScreen(s domain.Screen) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.screen = s
	g.changedLocked()
}

// ChooseGenre loads the genre's questions and starts the first round. The bank is
// queried before the lock is taken so observers never see a half-loaded game; a
// bank failure leaves the game untouched.
func (g *Game) ChooseGenre(ctx context.Context, genre domain.Genre) error {
	ctx, span := g.tracer.Start(ctx, "game.choose_genre", trace.WithAttributes(
		attribute.String("game.id", g.id),
		attribute.String("game.genre", string(genre)),
	))
	defer span.End()

	loaded, err := g.bank.Questions(ctx, genre)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load questions")
		g.logger.Error("load questions failed", zap.String("genre", string(genre)), zap.Error(err))
		return fmt.Errorf("load questions for %s: %w", genre, err)
	}
	if len(loaded) > g.settings.RoundsPerGame {
		loaded = loaded[:g.settings.RoundsPerGame]
	}
	questions := make([]domain.Question, len(loaded))
	copy(questions, loaded)
	span.SetAttributes(attribute.Int("game.questions", len(questions)))

	g.mu.Lock()
	defer g.mu.Unlock()
	g.genre = genre
	g.questions = questions
	g.roundIndex = 0
	g.screen = domain.ScreenQuestion
	g.logger.Info("genre chosen", zap.String("genre", string(genre)), zap.Int("questions", len(questions)))
	g.startQuestionLocked()
	g.changedLocked()
	return nil
}

// StartQuestion opens the countdown for the current round, or ends the game when
// the rounds are exhausted.
func (g *Game) StartQuestion() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startQuestionLocked()
	g.changedLocked()
}

func (g *Game) startQuestionLocked() {
	if g.roundIndex >= len(g.questions) {
		g.goToWinnerLocked()
		return
	}
	g.timerSeconds = g.settings.TimePerQuestion
	g.countingDown = true
	g.revealed = false
	g.answers = make(map[string]int)
	// Start invalidates the previous generation before handing out the new one.
	g.timerGen = g.timer.Start(g.settings.TimePerQuestion, g.handleTick, g.handleExpire)
	g.logger.Debug("round started", zap.Int("round", g.roundIndex), zap.Uint64("generation", uint64(g.timerGen)))
}

// SubmitAnswer records a player's pick for the current round. Submissions outside
// the countdown, for unknown players or with an out-of-range option are ignored.
// The latest pick before scoring wins.
func (g *Game) SubmitAnswer(playerID string, option int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.countingDown || !domain.ValidOption(option) || !g.hasPlayerLocked(playerID) {
		return false
	}
	g.answers[playerID] = option
	g.changedLocked()
	return true
}

// EndQuestionAndScore reveals the answer and applies the round's points. Repeated
// calls for the same round are no-ops, so timer expiry and a manual end cannot both score.
func (g *Game) EndQuestionAndScore() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.endQuestionLocked() {
		g.changedLocked()
	}
}

func (g *Game) endQuestionLocked() bool {
	if g.revealed || g.roundIndex >= len(g.questions) {
		return false
	}
	g.cancelTimerLocked()
	g.countingDown = false
	g.revealed = true

	_, span := g.tracer.Start(context.Background(), "game.score_round", trace.WithAttributes(
		attribute.String("game.id", g.id),
		attribute.Int("game.round", g.roundIndex),
		attribute.Int("game.answers", len(g.answers)),
	))
	defer span.End()

	q := g.questions[g.roundIndex]
	deltas := g.scoring.Score(q, g.answers, g.players)
	correct := 0
	for i := range g.players {
		delta := deltas[g.players[i].ID]
		if delta > 0 {
			correct++
		}
		g.players[i].Score += delta
		if g.players[i].Score < 0 {
			g.players[i].Score = 0
		}
	}
	span.SetAttributes(attribute.Int("game.correct", correct))
	g.logger.Info("round scored", zap.Int("round", g.roundIndex), zap.Int("correct", correct))
	return true
}

// AdvanceToScoreboard shows the scoreboard once the round has been revealed.
func (g *Game) AdvanceToScoreboard() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.revealed {
		return
	}
	g.screen = domain.ScreenScoreboard
	g.changedLocked()
}

// AdvanceFromScoreboard moves to the next round, or to game over after the last one.
func (g *Game) AdvanceFromScoreboard() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.roundIndex < len(g.questions) {
		g.roundIndex++
	}
	if g.roundIndex >= len(g.questions) {
		g.goToWinnerLocked()
	} else {
		g.screen = domain.ScreenQuestion
		g.startQuestionLocked()
	}
	g.changedLocked()
}

// GoToWinner shows the game over screen.
func (g *Game) GoToWinner() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.goToWinnerLocked()
	g.changedLocked()
}

func (g *Game) goToWinnerLocked() {
	g.cancelTimerLocked()
	g.countingDown = false
	g.screen = domain.ScreenGameOver
	if w, ok := winnerOf(g.players); ok {
		g.logger.Info("game over", zap.String("winner", w.Name), zap.Int("score", w.Score))
	}
}

// Winner returns the highest scorer, ties going to the earlier roster seat.
// It reports false for an empty roster.
func (g *Game) Winner() (domain.Player, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return winnerOf(g.players)
}

func winnerOf(players []domain.Player) (domain.Player, bool) {
	if len(players) == 0 {
		return domain.Player{}, false
	}
	best := players[0]
	for _, p := range players[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return best, true
}

// Snapshot returns the current read-only view of the game.
func (g *Game) Snapshot() domain.Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked()
}

// IdleSince reports when the game last changed.
func (g *Game) IdleSince() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastActivity
}

// Subscribe returns a channel that receives a snapshot after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (g *Game) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	g.mu.Lock()
	g.subscribers[ch] = struct{}{}
	ch <- g.snapshotLocked()
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		if _, ok := g.subscribers[ch]; ok {
			delete(g.subscribers, ch)
			close(ch)
		}
		g.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the round timer and releases every subscriber.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelTimerLocked()
	g.countingDown = false
	for ch := range g.subscribers {
		delete(g.subscribers, ch)
		close(ch)
	}
}

func (g *Game) handleTick(gen Generation, remaining int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.timerGen || !g.countingDown {
		return
	}
	if remaining < 0 {
		remaining = 0
	}
	g.timerSeconds = remaining
	g.broadcastLocked()
}

func (g *Game) handleExpire(gen Generation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.timerGen || !g.countingDown {
		return
	}
	g.timerSeconds = 0
	if g.endQuestionLocked() {
		g.changedLocked()
	}
}

func (g *Game) cancelTimerLocked() {
	g.timer.Cancel()
	g.timerGen = 0
}

func (g *Game) hasPlayerLocked(playerID string) bool {
	for _, p := range g.players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

func (g *Game) changedLocked() {
	g.lastActivity = g.now()
	g.broadcastLocked()
}

func (g *Game) broadcastLocked() {
	snap := g.snapshotLocked()
	for ch := range g.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale update so a slow subscriber never blocks the game.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// standingsOf ranks players by score, ties keeping roster order.
func standingsOf(players []domain.Player) []domain.Player {
	ranked := make([]domain.Player, len(players))
	copy(ranked, players)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

func (g *Game) snapshotLocked() domain.Snapshot {
	players := make([]domain.Player, len(g.players))
	copy(players, g.players)
	answers := make(map[string]int, len(g.answers))
	for id, sel := range g.answers {
		answers[id] = sel
	}

	snap := domain.Snapshot{
		GameID:          g.id,
		Screen:          g.screen,
		Players:         players,
		Standings:       standingsOf(players),
		Genre:           g.genre,
		RoundIndex:      g.roundIndex,
		QuestionCount:   len(g.questions),
		TimePerQuestion: g.settings.TimePerQuestion,
		TimerSeconds:    g.timerSeconds,
		CountingDown:    g.countingDown,
		RevealedCorrect: g.revealed,
		Answers:         answers,
		UpdatedAt:       g.now(),
	}
	if g.roundIndex < len(g.questions) {
		q := g.questions[g.roundIndex]
		snap.Question = &q
	}
	if g.screen == domain.ScreenGameOver {
		if w, ok := winnerOf(g.players); ok {
			snap.Winner = &w
		}
	}
	return snap
}
