package ws

import "encoding/json"

// Control frame types emitted by the server. Every other "type" on the wire
// (screen, mouse_move, key_press, ...) is opaque payload between the peers
// and is relayed without being parsed.
const (
	TypeError            = "error"
	TypeConnected        = "connected"
	TypePeerConnected    = "peer_connected"
	TypePeerDisconnected = "peer_disconnected"
)

// Message is the flat control frame shape. Unset fields stay off the wire.
type Message struct {
	Type     string `json:"type"`
	Role     string `json:"role,omitempty"`
	Room     string `json:"room,omitempty"`
	PeerRole string `json:"peer_role,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (m Message) encode() ([]byte, error) {
	return json.Marshal(m)
}
