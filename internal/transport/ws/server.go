package ws

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/remotedesk/signal-service/internal/domain"
	"github.com/remotedesk/signal-service/internal/metrics"
	"github.com/remotedesk/signal-service/internal/registry"
	"github.com/remotedesk/signal-service/pkg/logger"
)

// Rooms is the slice of the registry the websocket layer needs.
type Rooms interface {
	GetOrCreate(id string)
	Status(id string) (domain.RoomStatus, error)
	Assign(id string, role domain.Role, c registry.Conn)
	MarkOperatorReady(id string, c registry.Conn) bool
	Clear(id string, role domain.Role, c registry.Conn) bool
	Peer(id string, role domain.Role) registry.Conn
	DeleteIfEmpty(id string) bool
}

const defaultReadyDelay = 500 * time.Millisecond

type Server struct {
	upgrader websocket.Upgrader
	rooms    Rooms

	// readyDelay is the grace between an operator connecting and the room
	// admitting clients, smoothing over transient operator reconnects.
	readyDelay time.Duration
}

func NewServer(rooms Rooms, readyDelay time.Duration) *Server {
	if readyDelay <= 0 {
		readyDelay = defaultReadyDelay
	}
	return &Server{
		rooms:      rooms,
		readyDelay: readyDelay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// WS endpoint: GET /ws/{room}/{role}
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room")
	roleStr := chi.URLParam(r, "role")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "room", roomID, "err", err)
		return
	}

	role, ok := domain.ParseRole(roleStr)
	if !ok {
		c := newWSConn(conn, roomID, "")
		_ = c.SendControl(Message{Type: TypeError, Message: rejectionMessage(domain.ErrInvalidRole, roomID)})
		_ = c.Close()
		return
	}

	c := newWSConn(conn, roomID, role)

	var admitted bool
	switch role {
	case domain.RoleOperator:
		admitted = s.admitOperator(c)
	case domain.RoleClient:
		admitted = s.admitClient(c)
	}
	if !admitted {
		_ = c.Close()
		return
	}
	attrs := append([]slog.Attr{
		slog.String("room", roomID),
		slog.String("role", role.String()),
	}, logger.AttrsFromCtx(r.Context())...)
	slog.LogAttrs(r.Context(), slog.LevelInfo, "peer admitted", attrs...)

	metrics.ConnectionsActive.WithLabelValues(role.String()).Inc()
	s.relay(c)
	metrics.ConnectionsActive.WithLabelValues(role.String()).Dec()

	s.cleanup(c)
	_ = c.Close()
}

// admitOperator places the connection in the operator slot. Unknown rooms are
// created implicitly; a previous operator is evicted silently.
func (s *Server) admitOperator(c *wsConn) bool {
	s.rooms.GetOrCreate(c.roomID)
	s.rooms.Assign(c.roomID, domain.RoleOperator, c)

	// Readiness lands after the grace delay. By the time the timer fires the
	// slot may belong to a newer connection or the room may be gone;
	// MarkOperatorReady re-checks that this exact connection still owns it.
	time.AfterFunc(s.readyDelay, func() {
		if s.rooms.MarkOperatorReady(c.roomID, c) {
			slog.Debug("operator ready", "room", c.roomID)
		}
	})

	if err := c.SendControl(Message{
		Type:    TypeConnected,
		Role:    domain.RoleOperator.String(),
		Room:    c.roomID,
		Message: "Waiting for client...",
	}); err != nil {
		slog.Debug("ws send connected failed", "room", c.roomID, "err", err)
	}

	// A client already waiting in the room is paired immediately, ahead of
	// the readiness timer.
	if peer := s.rooms.Peer(c.roomID, domain.RoleClient); peer != nil {
		_ = sendControl(peer, Message{Type: TypePeerConnected, PeerRole: domain.RoleOperator.String()})
		_ = c.SendControl(Message{Type: TypePeerConnected, PeerRole: domain.RoleClient.String()})
	}
	return true
}

// admitClient gates the connection on the room existing, the operator being
// past its readiness grace, and the operator slot being occupied. Each check
// failing is terminal: one error frame, then close.
func (s *Server) admitClient(c *wsConn) bool {
	st, err := s.rooms.Status(c.roomID)
	if rej := clientAdmission(st, err); rej != nil {
		_ = c.SendControl(Message{Type: TypeError, Message: rejectionMessage(rej, c.roomID)})
		return false
	}

	s.rooms.Assign(c.roomID, domain.RoleClient, c)

	if err := c.SendControl(Message{
		Type: TypeConnected,
		Role: domain.RoleClient.String(),
		Room: c.roomID,
	}); err != nil {
		slog.Debug("ws send connected failed", "room", c.roomID, "err", err)
	}

	if peer := s.rooms.Peer(c.roomID, domain.RoleOperator); peer != nil {
		_ = sendControl(peer, Message{
			Type:     TypePeerConnected,
			PeerRole: domain.RoleClient.String(),
			Message:  "Client connected successfully!",
		})
	}
	return true
}

// clientAdmission maps a room snapshot to the admission outcome for a
// client. Checks run in order: existence, readiness, operator presence; the
// first failure wins.
func clientAdmission(st domain.RoomStatus, err error) error {
	switch {
	case err != nil:
		return domain.ErrRoomNotFound
	case !st.OperatorReady:
		return domain.ErrOperatorNotReady
	case !st.HasOperator:
		return domain.ErrNoOperator
	default:
		return nil
	}
}

// rejectionMessage renders the human-readable text peers display for a
// terminal handshake error.
func rejectionMessage(err error, roomID string) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRole):
		return "Invalid role"
	case errors.Is(err, domain.ErrRoomNotFound):
		return fmt.Sprintf("Room '%s' does not exist. Please check the Room ID.", roomID)
	case errors.Is(err, domain.ErrOperatorNotReady):
		return "Operator is not ready yet. Please wait and try again."
	case errors.Is(err, domain.ErrNoOperator):
		return fmt.Sprintf("No operator in room '%s'. Please ask operator to connect first.", roomID)
	}
	return err.Error()
}

// relay forwards every inbound frame to whatever connection currently holds
// the opposite slot. Frames with no peer are dropped; they are supersede-able
// snapshots, not a durable log. A failed forward never terminates the sender.
func (s *Server) relay(c *wsConn) {
	c.conn.SetReadLimit(1 << 20)
	peerRole := c.role.Opposite()

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			slog.Debug("ws read loop done", "room", c.roomID, "role", c.role, "err", err)
			return
		}

		peer := s.rooms.Peer(c.roomID, peerRole)
		if peer == nil {
			metrics.FramesDropped.Inc()
			continue
		}
		if err := peer.Send(mt, data); err != nil {
			metrics.RelaySendErrors.Inc()
			slog.Warn("relay send failed", "room", c.roomID, "to", peerRole, "err", err)
			continue
		}
		metrics.FramesRelayed.Inc()
	}
}

// cleanup runs once per admitted connection. The slot is released only if
// this connection still owns it; a newer connection of the same role keeps
// its seat and its peer is not notified by us.
func (s *Server) cleanup(c *wsConn) {
	released := s.rooms.Clear(c.roomID, c.role, c)

	if released {
		if peer := s.rooms.Peer(c.roomID, c.role.Opposite()); peer != nil {
			// best-effort: the peer may be tearing down too
			_ = sendControl(peer, Message{Type: TypePeerDisconnected, PeerRole: c.role.String()})
		}
	}

	if s.rooms.DeleteIfEmpty(c.roomID) {
		slog.Info("room deleted", "room", c.roomID)
	}
	slog.Info("peer disconnected", "room", c.roomID, "role", c.role)
}
