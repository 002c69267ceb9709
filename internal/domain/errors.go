package domain

import "errors"

var (
	// ErrGameNotFound is returned when no game is hosted under the requested id.
	ErrGameNotFound = errors.New("game not found")
	// ErrGenreNotFound indicates no question set is stored for a genre.
	ErrGenreNotFound = errors.New("genre not found")
	// ErrInvalidQuestion indicates question content that cannot be played.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrUnknownMessage is returned for control messages the server does not understand.
	ErrUnknownMessage = errors.New("unsupported message type")
)
