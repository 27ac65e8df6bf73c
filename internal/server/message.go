package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type HelloData struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
}

type JoinLobbyData struct {
	Code string `json:"code"`
}

type SetReadyData struct {
	Ready bool `json:"ready"`
	Bet   int  `json:"bet"`
}

// Server → Client Messages

type HelloResponseData struct {
	Success bool   `json:"success"`
	UID     string `json:"uid,omitempty"`
	Error   string `json:"error,omitempty"`
}

type LobbyCreatedData struct {
	Code string `json:"code"`
}

type LobbyJoinedData struct {
	Code string `json:"code"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CardView is a card as shown to clients. A concealed card carries no
// rank or suit at all, so the hole card cannot leak through the wire.
type CardView struct {
	Rank   string `json:"rank,omitempty"`
	Suit   string `json:"suit,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

// HandView pairs the visible cards with their visible total.
type HandView struct {
	Cards []CardView `json:"cards"`
	Value int        `json:"value"`
}

type LobbyPlayerView struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Ready   bool   `json:"ready"`
	Bet     int    `json:"bet"`
	Balance int    `json:"balance"`
}

// LobbyStateData is pushed to every member on each lobby commit.
type LobbyStateData struct {
	Code    string            `json:"code"`
	Host    string            `json:"host"`
	Status  string            `json:"status"`
	Players []LobbyPlayerView `json:"players"`
}

type RoundPlayerView struct {
	UID     string   `json:"uid"`
	Hand    HandView `json:"hand"`
	Bet     int      `json:"bet"`
	Balance int      `json:"balance"`
	Outcome string   `json:"outcome,omitempty"`
}

// RoundStateData is pushed to every member on each round commit.
type RoundStateData struct {
	Dealer    HandView          `json:"dealer"`
	Players   []RoundPlayerView `json:"players"`
	TurnIndex int               `json:"turnIndex"`
	Finished  bool              `json:"finished"`
	DeckSize  int               `json:"deckSize"`
}

func handView(h deck.Hand) HandView {
	cards := make([]CardView, len(h))
	for i, dc := range h {
		if dc.Concealed {
			cards[i] = CardView{Hidden: true}
			continue
		}
		cards[i] = CardView{Rank: dc.Card.Rank.String(), Suit: dc.Card.Suit.String()}
	}
	return HandView{Cards: cards, Value: h.Value()}
}

// LobbyStateFromGame converts a lobby record to its wire form.
func LobbyStateFromGame(l *game.Lobby) LobbyStateData {
	players := make([]LobbyPlayerView, len(l.Players))
	for i, uid := range l.Players {
		players[i] = LobbyPlayerView{
			UID:     uid,
			Name:    l.Usernames[uid],
			Ready:   l.Ready[uid],
			Bet:     l.Bets[uid],
			Balance: l.Balances[uid],
		}
	}
	return LobbyStateData{
		Code:    l.Code,
		Host:    l.Host,
		Status:  l.Status,
		Players: players,
	}
}

// RoundStateFromGame converts a round record to its wire form,
// ordering seats by the lobby's turn order.
func RoundStateFromGame(l *game.Lobby, r *game.Round) RoundStateData {
	players := make([]RoundPlayerView, len(l.Players))
	for i, uid := range l.Players {
		players[i] = RoundPlayerView{
			UID:     uid,
			Hand:    handView(r.Hands[uid]),
			Bet:     r.Bets[uid],
			Balance: r.Balances[uid],
			Outcome: r.Outcomes[uid],
		}
	}
	return RoundStateData{
		Dealer:    handView(r.DealerHand),
		Players:   players,
		TurnIndex: r.TurnIndex,
		Finished:  r.Finished,
		DeckSize:  len(r.Deck),
	}
}

// errorCode maps game errors to stable wire codes the UI keys off.
func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, game.ErrIllegalDouble):
		return "illegal_double"
	case errors.Is(err, game.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, game.ErrLobbyNotFound):
		return "lobby_not_found"
	case errors.Is(err, game.ErrLobbyAllocationExhausted):
		return "lobby_allocation_exhausted"
	case errors.Is(err, game.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, game.ErrRoundAlreadyFinished):
		return "round_already_finished"
	case errors.Is(err, game.ErrRoundNotStarted):
		return "round_not_started"
	case errors.Is(err, game.ErrNotHost):
		return "not_host"
	case errors.Is(err, game.ErrNotAllReady):
		return "not_all_ready"
	case errors.Is(err, game.ErrLobbyInProgress):
		return "lobby_in_progress"
	case errors.Is(err, game.ErrNotInLobby):
		return "not_in_lobby"
	case errors.Is(err, game.ErrLobbyFull):
		return "lobby_full"
	case errors.Is(err, game.ErrDeckExhausted):
		return "deck_exhausted"
	default:
		return "internal_error"
	}
}
