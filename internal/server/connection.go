package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer. A
	// client silent past this deadline is treated as disconnected,
	// which is what triggers reconciliation.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection represents a WebSocket connection to a client. It is the
// presence channel for its player: when the socket dies for any
// reason, the unregister path removes the player from their lobby.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	uid       string
	name      string
	lobbyCode string
	server    *Server
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, server *Server, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		server: server,
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, expected during shutdown.
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Player returns the associated uid, empty before hello.
func (c *Connection) Player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.uid
}

// Lobby returns the lobby code this connection is seated at.
func (c *Connection) Lobby() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lobbyCode
}

func (c *Connection) setPlayer(uid, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uid = uid
	c.name = name
}

func (c *Connection) setLobby(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lobbyCode = code
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.Player())

	switch msg.Type {
	case MessageTypeHello:
		var data HelloData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse hello data")
			return
		}
		c.handleHello(data)

	case MessageTypeCreateLobby:
		c.handleCreateLobby()

	case MessageTypeJoinLobby:
		var data JoinLobbyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join lobby data")
			return
		}
		c.handleJoinLobby(data)

	case MessageTypeSetReady:
		var data SetReadyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse set ready data")
			return
		}
		c.handleSetReady(data)

	case MessageTypeStartRound, MessageTypeHit, MessageTypeStand, MessageTypeDouble, MessageTypeNewRound:
		c.handleRoundAction(msg.Type)

	case MessageTypeLeaveLobby:
		c.handleLeaveLobby()

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) handleHello(data HelloData) {
	if data.UID == "" || data.DisplayName == "" {
		c.sendData(MessageTypeHelloResponse, HelloResponseData{
			Success: false,
			Error:   "uid and displayName are required",
		})
		return
	}
	c.setPlayer(data.UID, data.DisplayName)
	c.sendData(MessageTypeHelloResponse, HelloResponseData{Success: true, UID: data.UID})
}

func (c *Connection) handleCreateLobby() {
	uid, name, ok := c.requireHello()
	if !ok {
		return
	}
	code, err := c.server.game.CreateLobby(c.ctx, uid, name)
	if err != nil {
		c.sendGameError(err)
		return
	}
	c.setLobby(code)
	c.server.watchLobby(code)
	c.sendData(MessageTypeLobbyCreated, LobbyCreatedData{Code: code})
}

func (c *Connection) handleJoinLobby(data JoinLobbyData) {
	uid, name, ok := c.requireHello()
	if !ok {
		return
	}
	if err := c.server.game.JoinLobby(c.ctx, data.Code, uid, name); err != nil {
		c.sendGameError(err)
		return
	}
	c.setLobby(data.Code)
	c.server.watchLobby(data.Code)
	c.sendData(MessageTypeLobbyJoined, LobbyJoinedData{Code: data.Code})
}

func (c *Connection) handleSetReady(data SetReadyData) {
	uid, code, ok := c.requireSeat()
	if !ok {
		return
	}
	if err := c.server.game.SetReady(c.ctx, code, uid, data.Ready, data.Bet); err != nil {
		c.sendGameError(err)
	}
}

// handleRoundAction runs the game transaction for a mutating action.
// Success needs no ack: the committed snapshot reaches every member
// through the lobby watcher.
func (c *Connection) handleRoundAction(mt MessageType) {
	uid, code, ok := c.requireSeat()
	if !ok {
		return
	}

	var err error
	switch mt {
	case MessageTypeStartRound:
		err = c.server.game.Start(c.ctx, code, uid)
	case MessageTypeHit:
		err = c.server.game.Hit(c.ctx, code, uid)
	case MessageTypeStand:
		err = c.server.game.Stand(c.ctx, code, uid)
	case MessageTypeDouble:
		err = c.server.game.Double(c.ctx, code, uid)
	case MessageTypeNewRound:
		err = c.server.game.NewRound(c.ctx, code, uid)
	}
	if err != nil {
		c.sendGameError(err)
	}
}

func (c *Connection) handleLeaveLobby() {
	uid, code, ok := c.requireSeat()
	if !ok {
		return
	}
	if err := c.server.game.RemovePlayer(c.ctx, code, uid); err != nil {
		c.sendGameError(err)
		return
	}
	c.setLobby("")
	c.sendData(MessageTypeLobbyLeft, struct{}{})
}

func (c *Connection) requireHello() (uid, name string, ok bool) {
	c.mu.RLock()
	uid, name = c.uid, c.name
	c.mu.RUnlock()
	if uid == "" {
		c.sendError("not_identified", "Send hello first")
		return "", "", false
	}
	return uid, name, true
}

func (c *Connection) requireSeat() (uid, code string, ok bool) {
	c.mu.RLock()
	uid, code = c.uid, c.lobbyCode
	c.mu.RUnlock()
	if uid == "" {
		c.sendError("not_identified", "Send hello first")
		return "", "", false
	}
	if code == "" {
		c.sendError("not_in_lobby", "Join a lobby first")
		return "", "", false
	}
	return uid, code, true
}

func (c *Connection) sendData(mt MessageType, data interface{}) {
	msg, err := NewMessage(mt, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", mt, "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

func (c *Connection) sendGameError(err error) {
	c.sendError(errorCode(err), err.Error())
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	c.sendData(MessageTypeError, ErrorData{Code: code, Message: message})
}
