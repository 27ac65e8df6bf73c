package game

import (
	"time"

	"github.com/lox/blackjacktable/internal/deck"
)

// Lobby status values.
const (
	StatusWaiting = "waiting"
	StatusPlaying = "playing"
)

// Round outcome strings, empty until decided.
const (
	OutcomeWin    = "Win!"
	OutcomeLose   = "Lose"
	OutcomePush   = "Push"
	OutcomeBusted = "Busted!"
)

// Lobby is the roster record: seat order, host, readiness and the
// committed bets and balances between rounds. Players holds the turn
// order and is the sole source of seat indices.
type Lobby struct {
	Code      string            `json:"code"`
	Host      string            `json:"host"`
	Players   []string          `json:"players"`
	Usernames map[string]string `json:"usernames"`
	Ready     map[string]bool   `json:"ready"`
	Bets      map[string]int    `json:"bets"`
	Balances  map[string]int    `json:"balances"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

// SeatOf returns the seat index of uid, -1 if absent.
func (l *Lobby) SeatOf(uid string) int {
	for i, p := range l.Players {
		if p == uid {
			return i
		}
	}
	return -1
}

// AllReady reports whether the roster is non-empty and every player
// has readied up.
func (l *Lobby) AllReady() bool {
	if len(l.Players) == 0 {
		return false
	}
	for _, p := range l.Players {
		if !l.Ready[p] {
			return false
		}
	}
	return true
}

// Round is the live shared record of one dealt round. Balances here
// are the authoritative copy while the round runs; NewRound copies
// them back into the lobby as the next baseline.
type Round struct {
	Deck       []deck.Card          `json:"deck"`
	DealerHand deck.Hand            `json:"dealerHand"`
	Hands      map[string]deck.Hand `json:"hands"`
	Bets       map[string]int       `json:"bets"`
	Balances   map[string]int       `json:"balances"`
	Outcomes   map[string]string    `json:"outcomes"`
	TurnIndex  int                  `json:"turnIndex"`
	Finished   bool                 `json:"finished"`
}

// CardsInPlay counts every card in the round record: deck remainder,
// player hands and the dealer hand. It must always equal 52.
func (r *Round) CardsInPlay() int {
	n := len(r.Deck) + len(r.DealerHand)
	for _, h := range r.Hands {
		n += len(h)
	}
	return n
}

// draw pops the top card off the round's deck.
func (r *Round) draw() (deck.Card, error) {
	if len(r.Deck) == 0 {
		return deck.Card{}, ErrDeckExhausted
	}
	c := r.Deck[len(r.Deck)-1]
	r.Deck = r.Deck[:len(r.Deck)-1]
	return c, nil
}

// LobbyKey is the store key of a lobby record.
func LobbyKey(code string) string {
	return "lobbies/" + code
}

// RoundKey is the store key of a lobby's live round record.
func RoundKey(code string) string {
	return "lobbies/" + code + "/round"
}
