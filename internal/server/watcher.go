package server

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjacktable/internal/game"
	"github.com/lox/blackjacktable/internal/store"
)

// lobbyWatcher subscribes to one lobby's records and fans committed
// snapshots out to every seated connection. One watcher exists per
// live lobby; it dies with the lobby record.
type lobbyWatcher struct {
	code   string
	server *Server
	logger *log.Logger

	cancelLobby func()
	cancelRound func()
	done        chan struct{}
	stopOnce    sync.Once

	mu        sync.Mutex
	turnUID   string
	turnSince time.Time
}

// watchLobby ensures a watcher is running for code.
func (s *Server) watchLobby(code string) {
	s.mu.Lock()
	if _, ok := s.watchers[code]; ok {
		s.mu.Unlock()
		return
	}
	w := &lobbyWatcher{
		code:   code,
		server: s,
		logger: s.logger.WithPrefix("watcher").With("lobby", code),
		done:   make(chan struct{}),
	}
	s.watchers[code] = w
	s.mu.Unlock()

	st := s.game.Store()
	lobbyCh, cancelLobby := st.Subscribe(game.LobbyKey(code))
	roundCh, cancelRound := st.Subscribe(game.RoundKey(code))
	w.cancelLobby = cancelLobby
	w.cancelRound = cancelRound

	go w.loop(lobbyCh, roundCh)
}

func (w *lobbyWatcher) stop() {
	w.stopOnce.Do(func() {
		w.cancelLobby()
		w.cancelRound()
		close(w.done)
	})
}

func (w *lobbyWatcher) loop(lobbyCh, roundCh <-chan store.Event) {
	for {
		select {
		case ev := <-lobbyCh:
			if ev.Deleted {
				w.handleLobbyClosed()
				return
			}
			w.handleLobbyEvent(ev)

		case ev := <-roundCh:
			if ev.Deleted {
				w.clearTurnHolder()
				continue
			}
			w.handleRoundEvent(ev)

		case <-w.done:
			return
		}
	}
}

func (w *lobbyWatcher) handleLobbyEvent(ev store.Event) {
	var lobby game.Lobby
	if err := ev.Decode(&lobby); err != nil {
		w.logger.Error("Failed to decode lobby snapshot", "error", err)
		return
	}

	msg, err := NewMessage(MessageTypeLobbyState, LobbyStateFromGame(&lobby))
	if err != nil {
		w.logger.Error("Failed to create lobby state message", "error", err)
		return
	}
	w.server.BroadcastToLobby(w.code, msg)
}

func (w *lobbyWatcher) handleRoundEvent(ev store.Event) {
	var round game.Round
	if err := ev.Decode(&round); err != nil {
		w.logger.Error("Failed to decode round snapshot", "error", err)
		return
	}

	lobby, err := w.server.game.Lobby(w.code)
	if err != nil {
		if !errors.Is(err, game.ErrLobbyNotFound) {
			w.logger.Error("Failed to read lobby for round snapshot", "error", err)
		}
		return
	}

	w.trackTurn(lobby, &round)

	msg, err := NewMessage(MessageTypeRoundState, RoundStateFromGame(lobby, &round))
	if err != nil {
		w.logger.Error("Failed to create round state message", "error", err)
		return
	}
	w.server.BroadcastToLobby(w.code, msg)
}

func (w *lobbyWatcher) handleLobbyClosed() {
	w.logger.Info("Lobby closed")

	msg, err := NewMessage(MessageTypeLobbyClosed, struct{}{})
	if err == nil {
		w.server.BroadcastToLobby(w.code, msg)
	}

	w.server.mu.Lock()
	delete(w.server.watchers, w.code)
	w.server.mu.Unlock()
	w.stop()
}

// trackTurn records who holds the turn and since when, feeding the
// timeout sweep. The clock only restarts when the holder changes.
func (w *lobbyWatcher) trackTurn(lobby *game.Lobby, round *game.Round) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if round.Finished || round.TurnIndex >= len(lobby.Players) {
		w.turnUID = ""
		return
	}
	holder := lobby.Players[round.TurnIndex]
	if holder != w.turnUID {
		w.turnUID = holder
		w.turnSince = w.server.clock.Now()
	}
}

func (w *lobbyWatcher) clearTurnHolder() {
	w.mu.Lock()
	w.turnUID = ""
	w.mu.Unlock()
}

func (w *lobbyWatcher) turnHolder() (string, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.turnUID, w.turnSince
}
