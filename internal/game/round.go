package game

import (
	"context"

	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/store"
)

// Start deals a new round. Host-only, and every seated player must be
// ready. Bets are debited from balances here; they come back (or
// don't) at settlement. The opening turn pointer skips seats dealt a
// natural 21, and if every seat opened at 21 the round settles inside
// this same transaction.
func (s *Service) Start(ctx context.Context, code, uid string) error {
	return s.run(ctx, func(tx *store.Tx) error {
		lobby, err := getLobby(tx, code)
		if err != nil {
			return err
		}
		if lobby.Host != uid {
			return ErrNotHost
		}
		if lobby.Status != StatusWaiting {
			return ErrLobbyInProgress
		}
		if !lobby.AllReady() {
			return ErrNotAllReady
		}

		shoe := s.newDeck()
		round := &Round{
			Hands:    make(map[string]deck.Hand, len(lobby.Players)),
			Bets:     make(map[string]int, len(lobby.Players)),
			Balances: make(map[string]int, len(lobby.Players)),
			Outcomes: make(map[string]string, len(lobby.Players)),
		}

		for _, p := range lobby.Players {
			hand := make(deck.Hand, 0, 2)
			for i := 0; i < 2; i++ {
				c, ok := shoe.Draw()
				if !ok {
					return ErrDeckExhausted
				}
				hand = append(hand, deck.Deal(c))
			}
			round.Hands[p] = hand
			round.Bets[p] = lobby.Bets[p]
			round.Balances[p] = lobby.Balances[p] - lobby.Bets[p]
			round.Outcomes[p] = ""
		}

		up, ok := shoe.Draw()
		if !ok {
			return ErrDeckExhausted
		}
		hole, ok := shoe.Draw()
		if !ok {
			return ErrDeckExhausted
		}
		round.DealerHand = deck.Hand{deck.Deal(up), deck.DealConcealed(hole)}
		round.Deck = shoe.Cards()

		// Seats dealt a natural have nothing to do; the pointer opens
		// on the first seat that can act.
		round.TurnIndex = 0
		for round.TurnIndex < len(lobby.Players) && round.Hands[lobby.Players[round.TurnIndex]].IsNatural() {
			round.TurnIndex++
		}
		if round.TurnIndex >= len(lobby.Players) {
			if err := settle(lobby, round); err != nil {
				return err
			}
		}

		lobby.Status = StatusPlaying
		if err := tx.Set(LobbyKey(code), lobby); err != nil {
			return err
		}
		return tx.Set(RoundKey(code), round)
	})
}

// settle finishes the round in place: reveal the dealer's hole card,
// draw to seventeen (hitting soft seventeen), then resolve every seat
// that didn't bust. Winners are credited twice their bet, pushes get
// the bet back, losers nothing.
func settle(lobby *Lobby, round *Round) error {
	round.DealerHand.Reveal()
	for {
		total, soft := round.DealerHand.ValueSoft()
		if total > 17 || (total == 17 && !soft) {
			break
		}
		c, err := round.draw()
		if err != nil {
			return err
		}
		round.DealerHand = append(round.DealerHand, deck.Deal(c))
	}

	dealerTotal := round.DealerHand.Value()
	for _, p := range lobby.Players {
		if round.Outcomes[p] == OutcomeBusted {
			continue
		}
		playerTotal := round.Hands[p].Value()
		switch {
		case dealerTotal > 21 || playerTotal > dealerTotal:
			round.Outcomes[p] = OutcomeWin
			round.Balances[p] += round.Bets[p] * 2
		case playerTotal == dealerTotal:
			round.Outcomes[p] = OutcomePush
			round.Balances[p] += round.Bets[p]
		default:
			round.Outcomes[p] = OutcomeLose
		}
	}
	round.Finished = true
	return nil
}

// NewRound resets the table for the next round: readiness and bets
// cleared, the settled balances carried forward as the new baseline,
// the round record discarded. Host-only.
func (s *Service) NewRound(ctx context.Context, code, uid string) error {
	return s.run(ctx, func(tx *store.Tx) error {
		lobby, err := getLobby(tx, code)
		if err != nil {
			return err
		}
		if lobby.Host != uid {
			return ErrNotHost
		}

		var round Round
		haveRound, err := tx.Get(RoundKey(code), &round)
		if err != nil {
			return err
		}

		for _, p := range lobby.Players {
			lobby.Ready[p] = false
			lobby.Bets[p] = 0
			if haveRound {
				if bal, ok := round.Balances[p]; ok {
					lobby.Balances[p] = bal
				}
			}
		}
		lobby.Status = StatusWaiting
		if haveRound {
			tx.Delete(RoundKey(code))
		}
		return tx.Set(LobbyKey(code), lobby)
	})
}
