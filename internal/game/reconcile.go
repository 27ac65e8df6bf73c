package game

import (
	"context"

	"github.com/lox/blackjacktable/internal/store"
)

// RemovePlayer is the single reconciliation path for both a voluntary
// leave and a presence expiry. The two can race for the same uid, so
// the whole procedure is idempotent: a second run finds no seat and
// commits nothing. Lobby and round mutate in one atomic transaction.
func (s *Service) RemovePlayer(ctx context.Context, code, uid string) error {
	return s.run(ctx, func(tx *store.Tx) error {
		var lobby Lobby
		found, err := tx.Get(LobbyKey(code), &lobby)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		seat := lobby.SeatOf(uid)
		if seat < 0 {
			return nil
		}

		lobby.Players = append(lobby.Players[:seat], lobby.Players[seat+1:]...)
		delete(lobby.Usernames, uid)
		delete(lobby.Ready, uid)
		delete(lobby.Bets, uid)
		delete(lobby.Balances, uid)

		if len(lobby.Players) == 0 {
			tx.Delete(LobbyKey(code))
			tx.Delete(RoundKey(code))
			s.logger.Info("lobby emptied, deleting", "code", code)
			return nil
		}
		if lobby.Host == uid {
			lobby.Host = lobby.Players[0]
		}

		var round Round
		haveRound, err := tx.Get(RoundKey(code), &round)
		if err != nil {
			return err
		}
		if haveRound {
			delete(round.Hands, uid)
			delete(round.Bets, uid)
			delete(round.Balances, uid)
			delete(round.Outcomes, uid)

			// Keep the pointer on the same remaining seat: seats after
			// the removed one shifted down by one. When the removed
			// seat held the turn, the next actor inherits its index,
			// so no adjustment is needed.
			if seat < round.TurnIndex {
				round.TurnIndex--
			}
			// Nobody left to act: the round would stall, settle now.
			if !round.Finished && round.TurnIndex >= len(lobby.Players) {
				if err := settle(&lobby, &round); err != nil {
					return abortRound(tx, &lobby, &round)
				}
			}
			if err := tx.Set(RoundKey(code), &round); err != nil {
				return err
			}
		}

		s.logger.Info("player removed", "code", code, "uid", uid, "seat", seat)
		return tx.Set(LobbyKey(code), &lobby)
	})
}
