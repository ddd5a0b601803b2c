package game

import "errors"

var (
	// ErrRosterNotEstablished is the panic value when a simulation is advanced, or
	// boxes are registered, before Init. It is a programming error and must not be
	// recovered inside the simulation.
	ErrRosterNotEstablished = errors.New("game: roster not established")

	ErrInvalidRoster    = errors.New("game: invalid roster")
	ErrAlreadyInit      = errors.New("game: simulation already initialized")
	ErrInvalidCharacter = errors.New("game: invalid character config")
	ErrBadEncoding      = errors.New("game: malformed state encoding")
)
