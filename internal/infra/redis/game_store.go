package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quiz-night/internal/app"
)

// GameStore is a Redis-aware implementation of app.GameRepository.
// Notes:
//   - Games live in a local map; their timers and subscribers are process-bound.
//   - Redis only marks which game ids this process hosts, so an operator can see
//     live screens across instances. State itself is never persisted.
type GameStore struct {
	client  *redis.Client
	ttl     time.Duration
	factory app.GameFactory
	logger  *zap.Logger

	mu    sync.RWMutex
	games map[string]*app.Game
}

func NewGameStore(client *redis.Client, ttl time.Duration, factory app.GameFactory, logger *zap.Logger) *GameStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameStore{
		client:  client,
		ttl:     ttl,
		factory: factory,
		logger:  logger,
		games:   make(map[string]*app.Game),
	}
}

func (s *GameStore) GetOrCreate(gameID string) *app.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	if game, ok := s.games[gameID]; ok {
		s.touch(gameID)
		return game
	}
	game := s.factory(gameID)
	s.games[gameID] = game
	s.touch(gameID)
	return game
}

func (s *GameStore) Get(gameID string) (*app.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[gameID]
	return game, ok
}

func (s *GameStore) Delete(gameID string) {
	s.mu.Lock()
	game, ok := s.games[gameID]
	delete(s.games, gameID)
	s.mu.Unlock()
	if !ok {
		return
	}
	game.Close()
	s.forget(gameID)
}

// SweepIdle removes games that have not changed since before and clears their markers.
// Markers of the games that stay are refreshed, so they outlive the sweep interval.
func (s *GameStore) SweepIdle(before time.Time) []string {
	s.mu.Lock()
	var idle []*app.Game
	var live []string
	for id, game := range s.games {
		if game.IdleSince().Before(before) {
			idle = append(idle, game)
			delete(s.games, id)
		} else {
			live = append(live, id)
		}
	}
	s.mu.Unlock()

	for _, id := range live {
		s.touch(id)
	}

	ids := make([]string, 0, len(idle))
	for _, game := range idle {
		game.Close()
		s.forget(game.ID())
		ids = append(ids, game.ID())
	}
	return ids
}

// touch refreshes the best-effort liveness marker.
func (s *GameStore) touch(gameID string) {
	if err := s.client.Set(context.Background(), s.key(gameID), "1", s.ttl).Err(); err != nil {
		s.logger.Warn("mark game live failed", zap.String("game", gameID), zap.Error(err))
	}
}

func (s *GameStore) forget(gameID string) {
	if err := s.client.Del(context.Background(), s.key(gameID)).Err(); err != nil {
		s.logger.Warn("clear game marker failed", zap.String("game", gameID), zap.Error(err))
	}
}

func (s *GameStore) key(gameID string) string {
	return "quiz-night:game:" + gameID
}
