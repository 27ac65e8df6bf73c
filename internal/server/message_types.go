package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeHello       MessageType = "hello"
	MessageTypeCreateLobby MessageType = "create_lobby"
	MessageTypeJoinLobby   MessageType = "join_lobby"
	MessageTypeSetReady    MessageType = "set_ready"
	MessageTypeStartRound  MessageType = "start_round"
	MessageTypeHit         MessageType = "hit"
	MessageTypeStand       MessageType = "stand"
	MessageTypeDouble      MessageType = "double"
	MessageTypeNewRound    MessageType = "new_round"
	MessageTypeLeaveLobby  MessageType = "leave_lobby"

	// Server to client messages
	MessageTypeHelloResponse MessageType = "hello_response"
	MessageTypeLobbyCreated  MessageType = "lobby_created"
	MessageTypeLobbyJoined   MessageType = "lobby_joined"
	MessageTypeLobbyLeft     MessageType = "lobby_left"
	MessageTypeLobbyState    MessageType = "lobby_state"
	MessageTypeRoundState    MessageType = "round_state"
	MessageTypeLobbyClosed   MessageType = "lobby_closed"
	MessageTypeError         MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
