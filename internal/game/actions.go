package game

import (
	"context"
	"errors"

	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/store"
)

// act wraps the shared discipline of every player action: read both
// records, validate it is the caller's turn against that exact
// snapshot, apply fn, then settle if the pointer ran past the roster.
// All of it commits atomically or not at all; of two racing callers at
// most one can observe a matching turn pointer.
//
// Deck exhaustion inside fn or settlement is fatal to the round: the
// committed state is an aborted round (bets refunded, lobby back to
// waiting) and the error still surfaces to the caller.
func (s *Service) act(ctx context.Context, code, uid string, fn func(round *Round) error) error {
	var fatal error
	err := s.run(ctx, func(tx *store.Tx) error {
		fatal = nil

		lobby, err := getLobby(tx, code)
		if err != nil {
			return err
		}
		var round Round
		found, err := tx.Get(RoundKey(code), &round)
		if err != nil {
			return err
		}
		if !found {
			return ErrRoundNotStarted
		}
		if round.Finished {
			return ErrRoundAlreadyFinished
		}
		seat := lobby.SeatOf(uid)
		if seat < 0 {
			return ErrNotInLobby
		}
		if round.TurnIndex != seat {
			return ErrNotYourTurn
		}

		err = fn(&round)
		if err == nil && round.TurnIndex >= len(lobby.Players) {
			err = settle(lobby, &round)
		}
		if errors.Is(err, ErrDeckExhausted) {
			fatal = err
			return abortRound(tx, lobby, &round)
		}
		if err != nil {
			return err
		}
		return tx.Set(RoundKey(code), &round)
	})
	if err != nil {
		return err
	}
	return fatal
}

// abortRound commits the recovery state for an unplayable round:
// every bet refunded, readiness cleared, round record discarded.
func abortRound(tx *store.Tx, lobby *Lobby, round *Round) error {
	for _, p := range lobby.Players {
		lobby.Balances[p] = round.Balances[p] + round.Bets[p]
		lobby.Ready[p] = false
		lobby.Bets[p] = 0
	}
	lobby.Status = StatusWaiting
	tx.Delete(RoundKey(lobby.Code))
	return tx.Set(LobbyKey(lobby.Code), lobby)
}

// Hit draws one card into the caller's hand. Busting marks the
// outcome and forfeits the turn; an exact 21 is a forced stand;
// anything less keeps the turn.
func (s *Service) Hit(ctx context.Context, code, uid string) error {
	return s.act(ctx, code, uid, func(round *Round) error {
		c, err := round.draw()
		if err != nil {
			return err
		}
		round.Hands[uid] = append(round.Hands[uid], deck.Deal(c))

		total := round.Hands[uid].Value()
		if total > 21 {
			round.Outcomes[uid] = OutcomeBusted
		}
		if total >= 21 {
			round.TurnIndex++
		}
		return nil
	})
}

// Stand forfeits the caller's turn.
func (s *Service) Stand(ctx context.Context, code, uid string) error {
	return s.act(ctx, code, uid, func(round *Round) error {
		round.TurnIndex++
		return nil
	})
}

// Double doubles the caller's bet for exactly one more card and ends
// the turn. Only legal as the first action on a two-card hand with
// enough balance to cover the second bet.
func (s *Service) Double(ctx context.Context, code, uid string) error {
	return s.act(ctx, code, uid, func(round *Round) error {
		if len(round.Hands[uid]) != 2 {
			return ErrIllegalDouble
		}
		if round.Balances[uid] < round.Bets[uid] {
			return ErrInsufficientBalance
		}

		round.Balances[uid] -= round.Bets[uid]
		round.Bets[uid] *= 2

		c, err := round.draw()
		if err != nil {
			return err
		}
		round.Hands[uid] = append(round.Hands[uid], deck.Deal(c))
		if round.Hands[uid].Value() > 21 {
			round.Outcomes[uid] = OutcomeBusted
		}
		round.TurnIndex++
		return nil
	})
}
