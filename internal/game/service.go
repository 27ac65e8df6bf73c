// Package game implements the shared blackjack table: the lobby
// directory, the round state record and its lifecycle, and the
// optimistic transactions that are the only way either record mutates.
package game

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/lobbycode"
	"github.com/lox/blackjacktable/internal/store"
)

// DefaultStartingBalance is the chip balance a player joins with.
const DefaultStartingBalance = 100

// DefaultMaxSeats caps the roster. Five seats keeps a 52-card shoe
// comfortably clear of exhaustion.
const DefaultMaxSeats = 5

// Service coordinates all lobby and round mutations through the
// transactional store. It holds no game state of its own: every
// operation is a read-validate-commit transaction, so two racing
// callers can never both apply against the same pre-state.
type Service struct {
	store           *store.Store
	codes           *lobbycode.Generator
	logger          *log.Logger
	newDeck         func() *deck.Deck
	startingBalance int
	maxSeats        int
}

// Option configures a Service.
type Option func(*Service)

// WithDeckFactory overrides how Start builds the shoe, used by tests
// to deal known hands.
func WithDeckFactory(f func() *deck.Deck) Option {
	return func(s *Service) { s.newDeck = f }
}

// WithStartingBalance overrides the balance new players join with.
func WithStartingBalance(balance int) Option {
	return func(s *Service) { s.startingBalance = balance }
}

// WithCodeGenerator overrides lobby code generation, used by tests to
// force collisions.
func WithCodeGenerator(g *lobbycode.Generator) Option {
	return func(s *Service) { s.codes = g }
}

// WithMaxSeats overrides the roster cap.
func WithMaxSeats(n int) Option {
	return func(s *Service) { s.maxSeats = n }
}

// NewService creates a game service backed by st.
func NewService(st *store.Store, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		store:           st,
		codes:           lobbycode.NewGenerator(nil),
		logger:          logger.WithPrefix("game"),
		newDeck:         deck.NewShuffled,
		startingBalance: DefaultStartingBalance,
		maxSeats:        DefaultMaxSeats,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the backing store for snapshot subscriptions.
func (s *Service) Store() *store.Store {
	return s.store
}

// run wraps store.RunTransaction, translating a spent retry budget
// into the game-level error.
func (s *Service) run(ctx context.Context, fn func(tx *store.Tx) error) error {
	err := s.store.RunTransaction(ctx, fn)
	if errors.Is(err, store.ErrConflict) {
		return ErrConcurrentModification
	}
	return err
}

// getLobby reads the lobby record inside tx, mapping absence to
// ErrLobbyNotFound.
func getLobby(tx *store.Tx, code string) (*Lobby, error) {
	var l Lobby
	found, err := tx.Get(LobbyKey(code), &l)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrLobbyNotFound
	}
	return &l, nil
}
