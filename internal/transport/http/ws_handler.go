package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-night/internal/app"
	"quiz-night/internal/domain"
)

var errAnswerRejected = errors.New("answer not accepted")

type WSHandler struct {
	games    app.GameRepository
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(games app.GameRepository, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		games:  games,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type chooseGenrePayload struct {
	Genre string `json:"genre"`
}

type answerPayload struct {
	PlayerID string `json:"playerId"`
	Option   int    `json:"option"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets, streams game snapshots and applies
// control messages from the host device.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		http.Error(w, "missing gameId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("game", gameID))
	game := h.games.GetOrCreate(gameID)
	updates, cancel := game.Subscribe()
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections allow one concurrent writer.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write failed", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					// Game was closed (swept or deleted); unblock the reader.
					_ = conn.Close()
					return
				}
				select {
				case send <- outboundMessage{Type: "state", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	logger.Info("screen connected")
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r.Context(), game, inbound); err != nil {
			logger.Debug("control message rejected", zap.String("type", inbound.Type), zap.Error(err))
			select {
			case send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-writerDone:
			}
		}
	}
	logger.Info("screen disconnected")

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch applies one control message. Calls outside their phase are no-ops in the
// game itself; only malformed messages, bank failures and rejected answers surface as errors.
func (h *WSHandler) dispatch(ctx context.Context, game *app.Game, msg inboundMessage) error {
	switch msg.Type {
	case "reset":
		game.ResetAll()
	case "lobby":
		game.EnterLobby()
	case "genres":
		game.OpenGenreSelect()
	case "chooseGenre":
		var payload chooseGenrePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid chooseGenre payload: %w", err)
		}
		// Names without a question set of their own are served the default set.
		return game.ChooseGenre(ctx, domain.Genre(payload.Genre))
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid answer payload: %w", err)
		}
		if !game.SubmitAnswer(payload.PlayerID, payload.Option) {
			return errAnswerRejected
		}
	case "endRound":
		game.EndQuestionAndScore()
	case "scoreboard":
		game.AdvanceToScoreboard()
	case "next":
		game.AdvanceFromScoreboard()
	case "winner":
		game.GoToWinner()
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownMessage, msg.Type)
	}
	return nil
}
