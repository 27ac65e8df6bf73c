package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjacktable/internal/game"
)

// turnSweepInterval is how often the turn-timeout sweep runs when
// enabled.
const turnSweepInterval = time.Second

// Server represents the WebSocket server
type Server struct {
	addr        string
	cfg         *Config
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	watchers    map[string]*lobbyWatcher
	game        *game.Service
	clock       quartz.Clock
	logger      *log.Logger
	httpSrv     *http.Server
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewServer creates a new WebSocket server
func NewServer(cfg *Config, svc *game.Service, logger *log.Logger, clock quartz.Clock) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: cfg.ListenAddress(),
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				// In production, implement proper origin checking
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		watchers:    make(map[string]*lobbyWatcher),
		game:        svc,
		clock:       clock,
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start runs the WebSocket server until Stop is called. The HTTP
// listener, the connection lifecycle loop and the turn-timeout sweep
// share one cancellation scope.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.httpSrv = &http.Server{Addr: s.addr, Handler: mux}

	s.logger.Info("Starting WebSocket server", "addr", s.addr)

	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error {
		s.run(ctx)
		return nil
	})
	g.Go(func() error {
		if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	})
	if s.cfg.TurnTimeout() > 0 {
		g.Go(func() error {
			ticker := s.clock.TickerFunc(ctx, turnSweepInterval, func() error {
				s.sweepTurns(ctx)
				return nil
			}, "turn-sweep")
			if err := ticker.Wait(); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Stop stops the WebSocket server
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	for _, w := range s.watchers {
		w.stop()
	}
	s.mu.Unlock()

	return nil
}

// run handles connection lifecycle
func (s *Server) run(ctx context.Context) {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn]
			if ok {
				delete(s.connections, conn)
			}
			total := len(s.connections)
			s.mu.Unlock()
			if !ok {
				continue
			}

			// The dead socket is the presence signal: reconcile the
			// player out of their lobby. Safe to race with an explicit
			// leave, RemovePlayer is idempotent.
			uid, code := conn.Player(), conn.Lobby()
			if uid != "" && code != "" {
				s.logger.Info("Reconciling disconnected player", "player", uid, "lobby", code)
				if err := s.game.RemovePlayer(context.Background(), code, uid); err != nil {
					s.logger.Error("Failed to reconcile player", "player", uid, "error", err)
				}
			}
			_ = conn.Close()
			s.logger.Info("Client disconnected", "total", total)

		case <-ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s, s.logger)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// BroadcastToLobby sends a message to all connections seated at a lobby
func (s *Server) BroadcastToLobby(code string, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.Lobby() == code {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send message to client", "error", err, "player", conn.Player())
			} else {
				count++
			}
		}
	}

	s.logger.Debug("Broadcasted message to lobby", "lobby", code, "type", msg.Type, "recipients", count)
}

// sweepTurns force-stands any seat that has held the turn past the
// configured timeout, so one stalled client cannot block the table
// until presence expiry catches up.
func (s *Server) sweepTurns(ctx context.Context) {
	timeout := s.cfg.TurnTimeout()
	now := s.clock.Now()

	s.mu.RLock()
	var stale []*lobbyWatcher
	for _, w := range s.watchers {
		if uid, since := w.turnHolder(); uid != "" && now.Sub(since) >= timeout {
			stale = append(stale, w)
		}
	}
	s.mu.RUnlock()

	for _, w := range stale {
		uid, _ := w.turnHolder()
		if uid == "" {
			continue
		}
		s.logger.Warn("Turn timeout, forcing stand", "lobby", w.code, "player", uid)
		if err := s.game.Stand(ctx, w.code, uid); err != nil {
			// The player may have acted between the check and the
			// forced stand; nothing to do.
			s.logger.Debug("Forced stand not applied", "lobby", w.code, "player", uid, "error", err)
		}
	}
}
