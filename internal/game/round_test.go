package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjacktable/internal/deck"
)

func TestStartDealsRound(t *testing.T) {
	s := newTestService(t, WithDeckFactory(riggedShoe(
		card(deck.Ten, deck.Spades), card(deck.Nine, deck.Spades), // alice: 19
		card(deck.Eight, deck.Clubs), card(deck.Seven, deck.Clubs), // bob: 15
		card(deck.Ten, deck.Hearts), card(deck.Six, deck.Hearts), // dealer: 16
	)))
	ctx := context.Background()
	code := twoPlayerLobby(t, s, 50)

	require.NoError(t, s.Start(ctx, code, "alice"))

	lobby, err := s.Lobby(code)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, lobby.Status)

	round, err := s.Round(code)
	require.NoError(t, err)
	assert.Equal(t, 0, round.TurnIndex)
	assert.False(t, round.Finished)
	assert.Equal(t, 19, round.Hands["alice"].Value())
	assert.Equal(t, 15, round.Hands["bob"].Value())

	// Dealer shows one card; the hole card stays out of the visible total.
	require.Len(t, round.DealerHand, 2)
	assert.False(t, round.DealerHand[0].Concealed)
	assert.True(t, round.DealerHand[1].Concealed)
	assert.Equal(t, 10, round.DealerHand.Value())
	assert.Equal(t, 16, round.DealerHand.FullValue())

	// Bets debited at deal time.
	assert.Equal(t, 50, round.Balances["alice"])
	assert.Equal(t, 50, round.Balances["bob"])
	assert.Equal(t, 50, round.Bets["alice"])

	assert.Equal(t, 52, round.CardsInPlay())
}

func TestStartPreconditions(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	code, err := s.CreateLobby(ctx, "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, s.JoinLobby(ctx, code, "bob", "Bob"))
	require.NoError(t, s.SetReady(ctx, code, "alice", true, 10))

	assert.ErrorIs(t, s.Start(ctx, code, "bob"), ErrNotHost)
	assert.ErrorIs(t, s.Start(ctx, code, "alice"), ErrNotAllReady)

	require.NoError(t, s.SetReady(ctx, code, "bob", true, 10))
	require.NoError(t, s.Start(ctx, code, "alice"))
	assert.ErrorIs(t, s.Start(ctx, code, "alice"), ErrLobbyInProgress)
}

func TestStartSkipsOpeningNaturals(t *testing.T) {
	s := newTestService(t, WithDeckFactory(riggedShoe(
		card(deck.Ace, deck.Spades), card(deck.King, deck.Spades), // alice: natural
		card(deck.Eight, deck.Clubs), card(deck.Seven, deck.Clubs), // bob: 15
		card(deck.Ten, deck.Hearts), card(deck.Six, deck.Hearts),
	)))
	ctx := context.Background()
	code := twoPlayerLobby(t, s, 10)

	require.NoError(t, s.Start(ctx, code, "alice"))

	round, err := s.Round(code)
	require.NoError(t, err)
	assert.Equal(t, 1, round.TurnIndex, "alice's natural is auto-skipped")
	assert.False(t, round.Finished)
}

func TestStartAllNaturalsSettlesImmediately(t *testing.T) {
	s := newTestService(t, WithDeckFactory(riggedShoe(
		card(deck.Ace, deck.Spades), card(deck.King, deck.Spades), // alice: natural
		card(deck.Ace, deck.Clubs), card(deck.Queen, deck.Clubs), // bob: natural
		card(deck.Ten, deck.Hearts), card(deck.Seven, deck.Hearts), // dealer: 17
	)))
	ctx := context.Background()
	code := twoPlayerLobby(t, s, 10)

	require.NoError(t, s.Start(ctx, code, "alice"))

	round, err := s.Round(code)
	require.NoError(t, err)
	assert.True(t, round.Finished)
	assert.Equal(t, OutcomeWin, round.Outcomes["alice"])
	assert.Equal(t, OutcomeWin, round.Outcomes["bob"])
	assert.Equal(t, 110, round.Balances["alice"])
	assert.False(t, round.DealerHand[1].Concealed, "settlement reveals the hole card")
}

func TestDealerDrawsToSeventeenAndHitsSoftSeventeen(t *testing.T) {
	s := newTestService(t, WithDeckFactory(riggedShoe(
		card(deck.Ten, deck.Spades), card(deck.Nine, deck.Spades), // alice: 19
		card(deck.Ace, deck.Hearts), card(deck.Six, deck.Hearts), // dealer: soft 17
		card(deck.Five, deck.Clubs), // dealer must hit soft 17: A+6+5 = 12 hard
		card(deck.Nine, deck.Clubs), // then 21
	)))
	ctx := context.Background()
	code, err := s.CreateLobby(ctx, "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, s.SetReady(ctx, code, "alice", true, 10))
	require.NoError(t, s.Start(ctx, code, "alice"))

	require.NoError(t, s.Stand(ctx, code, "alice"))

	round, err := s.Round(code)
	require.NoError(t, err)
	assert.True(t, round.Finished)
	assert.Equal(t, 21, round.DealerHand.Value())
	assert.Len(t, round.DealerHand, 4)
	assert.Equal(t, OutcomeLose, round.Outcomes["alice"])
}

func TestSettlementOutcomes(t *testing.T) {
	// Dealer busts at 24; alice stands on 20, bob busts. Only the
	// standing player is paid.
	s := newTestService(t, WithDeckFactory(riggedShoe(
		card(deck.Ten, deck.Spades), card(deck.Queen, deck.Spades), // alice: 20
		card(deck.Ten, deck.Clubs), card(deck.Six, deck.Clubs), // bob: 16
		card(deck.Ten, deck.Hearts), card(deck.Four, deck.Hearts), // dealer: 14
		card(deck.King, deck.Clubs), // bob hits: 26, bust
		card(deck.King, deck.Hearts), // dealer draws: 24, bust
	)))
	ctx := context.Background()
	code := twoPlayerLobby(t, s, 50)

	require.NoError(t, s.Start(ctx, code, "alice"))
	require.NoError(t, s.Stand(ctx, code, "alice"))
	require.NoError(t, s.Hit(ctx, code, "bob"))

	round, err := s.Round(code)
	require.NoError(t, err)
	assert.True(t, round.Finished)
	assert.Equal(t, OutcomeWin, round.Outcomes["alice"])
	assert.Equal(t, OutcomeBusted, round.Outcomes["bob"])
	assert.Equal(t, 150, round.Balances["alice"], "winner credited twice the bet")
	assert.Equal(t, 50, round.Balances["bob"], "busted seat keeps the debited balance")
	assert.Equal(t, 52, round.CardsInPlay())
}

func TestSettlementPush(t *testing.T) {
	s := newTestService(t, WithDeckFactory(riggedShoe(
		card(deck.Ten, deck.Spades), card(deck.Nine, deck.Spades), // alice: 19
		card(deck.Ten, deck.Hearts), card(deck.Nine, deck.Hearts), // dealer: 19
	)))
	ctx := context.Background()
	code, err := s.CreateLobby(ctx, "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, s.SetReady(ctx, code, "alice", true, 40))
	require.NoError(t, s.Start(ctx, code, "alice"))

	require.NoError(t, s.Stand(ctx, code, "alice"))

	round, err := s.Round(code)
	require.NoError(t, err)
	assert.Equal(t, OutcomePush, round.Outcomes["alice"])
	assert.Equal(t, 100, round.Balances["alice"], "push returns the bet")
}

func TestNewRoundCarriesBalancesForward(t *testing.T) {
	s := newTestService(t, WithDeckFactory(riggedShoe(
		card(deck.Ten, deck.Spades), card(deck.Queen, deck.Spades), // alice: 20
		card(deck.Ten, deck.Clubs), card(deck.Six, deck.Clubs), // bob: 16
		card(deck.Ten, deck.Hearts), card(deck.Eight, deck.Hearts), // dealer: 18
	)))
	ctx := context.Background()
	code := twoPlayerLobby(t, s, 50)

	require.NoError(t, s.Start(ctx, code, "alice"))
	require.NoError(t, s.Stand(ctx, code, "alice"))
	require.NoError(t, s.Stand(ctx, code, "bob"))

	assert.ErrorIs(t, s.NewRound(ctx, code, "bob"), ErrNotHost)
	require.NoError(t, s.NewRound(ctx, code, "alice"))

	lobby, err := s.Lobby(code)
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, lobby.Status)
	assert.Equal(t, 150, lobby.Balances["alice"], "win carried forward")
	assert.Equal(t, 50, lobby.Balances["bob"], "loss carried forward")
	assert.False(t, lobby.Ready["alice"])
	assert.Equal(t, 0, lobby.Bets["alice"])

	_, err = s.Round(code)
	assert.ErrorIs(t, err, ErrRoundNotStarted)
}
