package memory

import (
	"sync"
	"time"

	"quiz-night/internal/app"
)

// GameStore is an in-memory implementation of app.GameRepository.
type GameStore struct {
	factory app.GameFactory

	mu    sync.RWMutex
	games map[string]*app.Game
}

func NewGameStore(factory app.GameFactory) *GameStore {
	return &GameStore{
		factory: factory,
		games:   make(map[string]*app.Game),
	}
}

func (s *GameStore) GetOrCreate(gameID string) *app.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	if game, ok := s.games[gameID]; ok {
		return game
	}
	game := s.factory(gameID)
	s.games[gameID] = game
	return game
}

func (s *GameStore) Get(gameID string) (*app.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[gameID]
	return game, ok
}

// Delete stops the game's timer and forgets it.
func (s *GameStore) Delete(gameID string) {
	s.mu.Lock()
	game, ok := s.games[gameID]
	delete(s.games, gameID)
	s.mu.Unlock()
	if ok {
		game.Close()
	}
}

// SweepIdle removes games that have not changed since before and returns their ids.
func (s *GameStore) SweepIdle(before time.Time) []string {
	s.mu.Lock()
	var idle []*app.Game
	for id, game := range s.games {
		if game.IdleSince().Before(before) {
			idle = append(idle, game)
			delete(s.games, id)
		}
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(idle))
	for _, game := range idle {
		game.Close()
		ids = append(ids, game.ID())
	}
	return ids
}
