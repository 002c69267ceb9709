package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"quiz-night/internal/app"
	"quiz-night/internal/domain"
	"quiz-night/internal/logging"
)

// NewRouter mounts health, snapshot and websocket endpoints.
func NewRouter(games app.GameRepository, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ws := NewWSHandler(games, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(logging.RequestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/games/{gameID}", func(w http.ResponseWriter, r *http.Request) {
		game, ok := games.Get(chi.URLParam(r, "gameID"))
		if !ok {
			writeJSON(w, http.StatusNotFound, errorPayload{Message: domain.ErrGameNotFound.Error()})
			return
		}
		writeJSON(w, http.StatusOK, game.Snapshot())
	})
	r.Get("/ws", ws.ServeWS)
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
