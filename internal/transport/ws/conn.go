package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/remotedesk/signal-service/internal/domain"
	"github.com/remotedesk/signal-service/internal/registry"
)

const writeTimeout = 5 * time.Second

type wsConn struct {
	conn   *websocket.Conn
	roomID string
	role   domain.Role
	sendMu chan struct{}
	closed chan struct{}
}

func newWSConn(c *websocket.Conn, roomID string, role domain.Role) *wsConn {
	return &wsConn{
		conn:   c,
		roomID: roomID,
		role:   role,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Send writes one raw frame, serialized against concurrent senders. Both the
// peer's relay loop and server control frames go through here.
func (c *wsConn) Send(messageType int, data []byte) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	return c.conn.WriteMessage(messageType, data)
}

func (c *wsConn) SendControl(msg Message) error {
	return sendControl(c, msg)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}

// sendControl marshals a control frame and sends it as text. Works against
// any slot occupant retrieved from the registry.
func sendControl(c registry.Conn, msg Message) error {
	b, err := msg.encode()
	if err != nil {
		return err
	}
	return c.Send(websocket.TextMessage, b)
}
