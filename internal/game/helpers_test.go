package game

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/store"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	return NewService(store.New(log.New(io.Discard)), log.New(io.Discard), opts...)
}

// riggedShoe builds a full 52-card deck arranged so the cards listed
// are dealt in order. Start deals two cards to each seat in turn
// order, then the dealer's up card, then the hole card; later draws
// continue down the list.
func riggedShoe(dealt ...deck.Card) func() *deck.Deck {
	return func() *deck.Deck {
		used := make(map[deck.Card]bool, len(dealt))
		for _, c := range dealt {
			used[c] = true
		}
		var rest []deck.Card
		for _, c := range deck.New().Cards() {
			if !used[c] {
				rest = append(rest, c)
			}
		}
		// Draw pops from the end, so the first dealt card goes last.
		cards := rest
		for i := len(dealt) - 1; i >= 0; i-- {
			cards = append(cards, dealt[i])
		}
		return deck.FromCards(cards)
	}
}

func card(rank deck.Rank, suit deck.Suit) deck.Card {
	return deck.NewCard(rank, suit)
}

// twoPlayerLobby seats host "alice" and "bob", both ready with bet.
func twoPlayerLobby(t *testing.T, s *Service, bet int) string {
	t.Helper()
	ctx := context.Background()

	code, err := s.CreateLobby(ctx, "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, s.JoinLobby(ctx, code, "bob", "Bob"))
	require.NoError(t, s.SetReady(ctx, code, "alice", true, bet))
	require.NoError(t, s.SetReady(ctx, code, "bob", true, bet))
	return code
}

// fixedSource always picks the first candidate, forcing every
// generated lobby code to collide.
type fixedSource struct{}

func (fixedSource) Intn(int) int { return 0 }
