package game

import (
	"context"
	"errors"
	"time"

	"github.com/lox/blackjacktable/internal/lobbycode"
	"github.com/lox/blackjacktable/internal/store"
)

// errCodeTaken signals CreateLobby's allocation loop to try the next
// candidate code. Never escapes this file.
var errCodeTaken = errors.New("game: lobby code taken")

// CreateLobby allocates a fresh lobby with hostUID seated as host.
// Candidate codes are checked transactionally, so two servers racing
// on the same code cannot both create it. Returns the lobby code.
func (s *Service) CreateLobby(ctx context.Context, hostUID, hostName string) (string, error) {
	for attempt := 0; attempt < lobbycode.MaxAttempts; attempt++ {
		code := s.codes.Generate()
		err := s.run(ctx, func(tx *store.Tx) error {
			found, err := tx.Get(LobbyKey(code), &Lobby{})
			if err != nil {
				return err
			}
			if found {
				return errCodeTaken
			}
			lobby := &Lobby{
				Code:      code,
				Host:      hostUID,
				Players:   []string{hostUID},
				Usernames: map[string]string{hostUID: hostName},
				Ready:     map[string]bool{hostUID: false},
				Bets:      map[string]int{hostUID: 0},
				Balances:  map[string]int{hostUID: s.startingBalance},
				Status:    StatusWaiting,
				CreatedAt: time.Now().UTC(),
			}
			return tx.Set(LobbyKey(code), lobby)
		})
		if errors.Is(err, errCodeTaken) {
			continue
		}
		if err != nil {
			return "", err
		}
		s.logger.Info("lobby created", "code", code, "host", hostUID)
		return code, nil
	}
	return "", ErrLobbyAllocationExhausted
}

// JoinLobby seats uid at the end of the turn order. Rejoining the
// same lobby is a no-op. New seats are only dealt in while the lobby
// waits: a mid-round join would grow the roster the turn pointer is
// checked against without giving the seat a hand or a bet.
func (s *Service) JoinLobby(ctx context.Context, code, uid, name string) error {
	if err := lobbycode.Validate(code); err != nil {
		return ErrLobbyNotFound
	}
	return s.run(ctx, func(tx *store.Tx) error {
		lobby, err := getLobby(tx, code)
		if err != nil {
			return err
		}
		if lobby.SeatOf(uid) >= 0 {
			return nil
		}
		if lobby.Status != StatusWaiting {
			return ErrLobbyInProgress
		}
		if len(lobby.Players) >= s.maxSeats {
			return ErrLobbyFull
		}
		lobby.Players = append(lobby.Players, uid)
		lobby.Usernames[uid] = name
		lobby.Ready[uid] = false
		lobby.Bets[uid] = 0
		lobby.Balances[uid] = s.startingBalance
		return tx.Set(LobbyKey(code), lobby)
	})
}

// SetReady records uid's readiness and committed bet for the next
// round. Only legal while the lobby is waiting.
func (s *Service) SetReady(ctx context.Context, code, uid string, ready bool, bet int) error {
	return s.run(ctx, func(tx *store.Tx) error {
		lobby, err := getLobby(tx, code)
		if err != nil {
			return err
		}
		if lobby.Status != StatusWaiting {
			return ErrLobbyInProgress
		}
		if lobby.SeatOf(uid) < 0 {
			return ErrNotInLobby
		}
		if bet < 0 || bet > lobby.Balances[uid] {
			return ErrInsufficientBalance
		}
		lobby.Ready[uid] = ready
		lobby.Bets[uid] = bet
		return tx.Set(LobbyKey(code), lobby)
	})
}

// Lobby returns a snapshot of the lobby record.
func (s *Service) Lobby(code string) (*Lobby, error) {
	var l Lobby
	if _, err := s.store.Get(LobbyKey(code), &l); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLobbyNotFound
		}
		return nil, err
	}
	return &l, nil
}

// Round returns a snapshot of the live round record, or
// ErrRoundNotStarted when no round is dealt.
func (s *Service) Round(code string) (*Round, error) {
	var r Round
	if _, err := s.store.Get(RoundKey(code), &r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoundNotStarted
		}
		return nil, err
	}
	return &r, nil
}
