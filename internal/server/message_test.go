package server

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/game"
)

func TestHandViewConcealsHoleCard(t *testing.T) {
	hand := deck.Hand{
		deck.Deal(deck.NewCard(deck.Ten, deck.Diamonds)),
		deck.DealConcealed(deck.NewCard(deck.Six, deck.Diamonds)),
	}

	view := handView(hand)

	require.Len(t, view.Cards, 2)
	assert.Equal(t, CardView{Rank: "10", Suit: "Diamonds"}, view.Cards[0])
	assert.Equal(t, CardView{Hidden: true}, view.Cards[1])
	assert.Equal(t, 10, view.Value, "concealed card must not count toward the visible total")

	// The hole card's identity must not survive serialization either.
	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "6")
}

func TestHandViewRevealed(t *testing.T) {
	hand := deck.Hand{
		deck.Deal(deck.NewCard(deck.Ten, deck.Diamonds)),
		deck.DealConcealed(deck.NewCard(deck.Six, deck.Diamonds)),
	}
	hand.Reveal()

	view := handView(hand)
	assert.Equal(t, CardView{Rank: "6", Suit: "Diamonds"}, view.Cards[1])
	assert.Equal(t, 16, view.Value)
}

func TestRoundStateFromGameOrdersByLobbySeats(t *testing.T) {
	lobby := &game.Lobby{
		Code:      "1234",
		Host:      "alice",
		Players:   []string{"alice", "bob"},
		Usernames: map[string]string{"alice": "Alice", "bob": "Bob"},
		Status:    game.StatusPlaying,
	}
	round := &game.Round{
		DealerHand: deck.Hand{deck.Deal(deck.NewCard(deck.Ten, deck.Clubs))},
		Hands: map[string]deck.Hand{
			"alice": {deck.Deal(deck.NewCard(deck.Nine, deck.Spades)), deck.Deal(deck.NewCard(deck.Ten, deck.Spades))},
			"bob":   {deck.Deal(deck.NewCard(deck.Ace, deck.Hearts)), deck.Deal(deck.NewCard(deck.King, deck.Hearts))},
		},
		Bets:      map[string]int{"alice": 50, "bob": 25},
		Balances:  map[string]int{"alice": 50, "bob": 75},
		Outcomes:  map[string]string{"alice": "", "bob": game.OutcomeWin},
		TurnIndex: 0,
		Deck:      []deck.Card{deck.NewCard(deck.Two, deck.Clubs)},
	}

	state := RoundStateFromGame(lobby, round)

	require.Len(t, state.Players, 2)
	assert.Equal(t, "alice", state.Players[0].UID)
	assert.Equal(t, "bob", state.Players[1].UID)
	assert.Equal(t, 19, state.Players[0].Hand.Value)
	assert.Equal(t, 21, state.Players[1].Hand.Value)
	assert.Equal(t, game.OutcomeWin, state.Players[1].Outcome)
	assert.Equal(t, 0, state.TurnIndex)
	assert.False(t, state.Finished)
	assert.Equal(t, 1, state.DeckSize)
}

func TestLobbyStateFromGame(t *testing.T) {
	lobby := &game.Lobby{
		Code:      "4321",
		Host:      "bob",
		Players:   []string{"bob", "carol"},
		Usernames: map[string]string{"bob": "Bob", "carol": "Carol"},
		Ready:     map[string]bool{"bob": true},
		Bets:      map[string]int{"bob": 10},
		Balances:  map[string]int{"bob": 90, "carol": 100},
		Status:    game.StatusWaiting,
	}

	state := LobbyStateFromGame(lobby)

	assert.Equal(t, "4321", state.Code)
	assert.Equal(t, "bob", state.Host)
	assert.Equal(t, game.StatusWaiting, state.Status)
	require.Len(t, state.Players, 2)
	assert.Equal(t, LobbyPlayerView{UID: "bob", Name: "Bob", Ready: true, Bet: 10, Balance: 90}, state.Players[0])
	assert.Equal(t, LobbyPlayerView{UID: "carol", Name: "Carol", Balance: 100}, state.Players[1])
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{game.ErrNotYourTurn, "not_your_turn"},
		{game.ErrIllegalDouble, "illegal_double"},
		{game.ErrInsufficientBalance, "insufficient_balance"},
		{game.ErrLobbyNotFound, "lobby_not_found"},
		{game.ErrConcurrentModification, "concurrent_modification"},
		{game.ErrRoundAlreadyFinished, "round_already_finished"},
		{game.ErrNotHost, "not_host"},
		{game.ErrNotAllReady, "not_all_ready"},
		{game.ErrLobbyFull, "lobby_full"},
		{errors.New("boom"), "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, errorCode(tt.err))
		})
	}
}
