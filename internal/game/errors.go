package game

import "errors"

var (
	// ErrNotYourTurn is returned when a player acts out of turn. Under
	// a race this is the losing side of the single-writer guarantee.
	ErrNotYourTurn = errors.New("game: not your turn")

	// ErrIllegalDouble is returned when a double is attempted on
	// anything but an untouched two-card hand.
	ErrIllegalDouble = errors.New("game: can only double on a two-card hand")

	// ErrInsufficientBalance is returned when a bet or double exceeds
	// the player's balance.
	ErrInsufficientBalance = errors.New("game: insufficient balance")

	// ErrLobbyNotFound is returned for an unknown lobby code.
	ErrLobbyNotFound = errors.New("game: lobby not found")

	// ErrLobbyAllocationExhausted is returned when no free lobby code
	// was found within the attempt budget.
	ErrLobbyAllocationExhausted = errors.New("game: lobby code allocation exhausted")

	// ErrConcurrentModification surfaces after the store's transparent
	// retry budget is spent on a contended record.
	ErrConcurrentModification = errors.New("game: concurrent modification")

	// ErrRoundAlreadyFinished is returned for actions against a
	// settled round.
	ErrRoundAlreadyFinished = errors.New("game: round already finished")

	// ErrRoundNotStarted is returned for actions before the host
	// starts the round.
	ErrRoundNotStarted = errors.New("game: round not started")

	// ErrNotHost is returned when a non-host calls a host-only
	// operation.
	ErrNotHost = errors.New("game: only the host may do that")

	// ErrNotAllReady is returned when the host starts before every
	// player is ready.
	ErrNotAllReady = errors.New("game: not all players are ready")

	// ErrLobbyInProgress is returned when an operation requires the
	// lobby to be waiting.
	ErrLobbyInProgress = errors.New("game: lobby already in a round")

	// ErrNotInLobby is returned when the acting uid has no seat.
	ErrNotInLobby = errors.New("game: player not in lobby")

	// ErrLobbyFull is returned when joining a lobby at its seat cap.
	ErrLobbyFull = errors.New("game: lobby is full")

	// ErrDeckExhausted is fatal for the round: the deck ran out mid
	// round. The round is aborted and the lobby reset to waiting.
	ErrDeckExhausted = errors.New("game: deck exhausted")
)
