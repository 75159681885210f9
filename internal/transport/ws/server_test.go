package ws_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/remotedesk/signal-service/internal/domain"
	"github.com/remotedesk/signal-service/internal/registry"
	"github.com/remotedesk/signal-service/internal/transport/ws"
)

func newTestServer(t *testing.T, readyDelay time.Duration) (*httptest.Server, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	srv := ws.NewServer(reg, readyDelay)

	r := chi.NewRouter()
	r.Get("/ws/{room}/{role}", srv.HandleWS)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, reg
}

func dial(t *testing.T, ts *httptest.Server, room, role string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + room + "/" + role
	c, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", u, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readFrame(t *testing.T, c *websocket.Conn) []byte {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data
}

func readControl(t *testing.T, c *websocket.Conn) ws.Message {
	t.Helper()
	var m ws.Message
	if err := json.Unmarshal(readFrame(t, c), &m); err != nil {
		t.Fatalf("decode control frame: %v", err)
	}
	return m
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestInvalidRoleRejected(t *testing.T) {
	ts, _ := newTestServer(t, 10*time.Millisecond)

	c := dial(t, ts, "r1", "viewer")
	msg := readControl(t, c)
	if msg.Type != ws.TypeError || msg.Message != "Invalid role" {
		t.Fatalf("unexpected frame %+v", msg)
	}

	_ = c.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := c.ReadMessage(); err == nil {
		t.Fatal("socket should be closed after the error frame")
	}
}

func TestClientRejectedUnknownRoom(t *testing.T) {
	ts, reg := newTestServer(t, 10*time.Millisecond)

	c := dial(t, ts, "nope", "client")
	msg := readControl(t, c)
	if msg.Type != ws.TypeError {
		t.Fatalf("want error, got %+v", msg)
	}
	if !strings.Contains(msg.Message, "Room 'nope' does not exist") {
		t.Fatalf("unexpected message %q", msg.Message)
	}
	if reg.Exists("nope") {
		t.Fatal("a rejected client must not create the room")
	}
}

func TestClientRejectedBeforeReadiness(t *testing.T) {
	ts, reg := newTestServer(t, 300*time.Millisecond)

	op := dial(t, ts, "abc", "operator")
	msg := readControl(t, op)
	if msg.Type != ws.TypeConnected || msg.Role != "operator" || msg.Room != "abc" {
		t.Fatalf("unexpected operator frame %+v", msg)
	}
	if msg.Message != "Waiting for client..." {
		t.Fatalf("unexpected greeting %q", msg.Message)
	}

	cl := dial(t, ts, "abc", "client")
	rej := readControl(t, cl)
	if rej.Type != ws.TypeError || !strings.Contains(rej.Message, "Operator is not ready yet") {
		t.Fatalf("unexpected rejection %+v", rej)
	}

	// the rejection leaves the operator untouched
	st, err := reg.Status("abc")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.HasOperator || st.HasClient {
		t.Fatalf("operator slot affected by rejected client: %+v", st)
	}
}

func TestOperatorReadinessAfterGrace(t *testing.T) {
	ts, reg := newTestServer(t, 200*time.Millisecond)

	op := dial(t, ts, "r-ready", "operator")
	readControl(t, op)

	st, err := reg.Status("r-ready")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.OperatorReady {
		t.Fatal("room must not be ready before the grace delay")
	}

	waitFor(t, time.Second, func() bool {
		st, err := reg.Status("r-ready")
		return err == nil && st.OperatorReady
	})
}

func TestPairRelayAndDisconnect(t *testing.T) {
	ts, reg := newTestServer(t, 20*time.Millisecond)

	op := dial(t, ts, "abc", "operator")
	readControl(t, op)

	waitFor(t, time.Second, func() bool {
		st, err := reg.Status("abc")
		return err == nil && st.OperatorReady
	})

	cl := dial(t, ts, "abc", "client")
	clMsg := readControl(t, cl)
	if clMsg.Type != ws.TypeConnected || clMsg.Role != "client" || clMsg.Room != "abc" {
		t.Fatalf("unexpected client frame %+v", clMsg)
	}

	opMsg := readControl(t, op)
	if opMsg.Type != ws.TypePeerConnected || opMsg.PeerRole != "client" {
		t.Fatalf("unexpected operator frame %+v", opMsg)
	}
	if opMsg.Message != "Client connected successfully!" {
		t.Fatalf("unexpected pairing message %q", opMsg.Message)
	}

	// client -> operator, byte-for-byte
	frame := []byte(`{"type":"mouse_move","x":0.5,"y":0.5}`)
	if err := cl.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("client write: %v", err)
	}
	if got := readFrame(t, op); !bytes.Equal(got, frame) {
		t.Fatalf("relayed frame mangled: %s", got)
	}

	// operator -> client, opaque payload
	screen := []byte(`{"type":"screen","data":"iVBORw0KGgo..."}`)
	if err := op.WriteMessage(websocket.TextMessage, screen); err != nil {
		t.Fatalf("operator write: %v", err)
	}
	if got := readFrame(t, cl); !bytes.Equal(got, screen) {
		t.Fatalf("relayed frame mangled: %s", got)
	}

	// operator leaves; client hears about it exactly once
	_ = op.Close()
	bye := readControl(t, cl)
	if bye.Type != ws.TypePeerDisconnected || bye.PeerRole != "operator" {
		t.Fatalf("unexpected disconnect frame %+v", bye)
	}

	// once the client leaves too, the room is reclaimed
	_ = cl.Close()
	waitFor(t, time.Second, func() bool {
		_, err := reg.Status("abc")
		return errors.Is(err, domain.ErrRoomNotFound)
	})
}

func TestOperatorRejoinsWaitingClient(t *testing.T) {
	ts, reg := newTestServer(t, 20*time.Millisecond)

	op1 := dial(t, ts, "w1", "operator")
	readControl(t, op1)
	waitFor(t, time.Second, func() bool {
		st, err := reg.Status("w1")
		return err == nil && st.OperatorReady
	})

	cl := dial(t, ts, "w1", "client")
	readControl(t, cl)  // connected
	readControl(t, op1) // peer_connected

	_ = op1.Close()
	gone := readControl(t, cl)
	if gone.Type != ws.TypePeerDisconnected || gone.PeerRole != "operator" {
		t.Fatalf("unexpected frame %+v", gone)
	}

	// a new operator pairs with the waiting client immediately, ahead of the
	// readiness timer
	op2 := dial(t, ts, "w1", "operator")
	first := readControl(t, op2)
	if first.Type != ws.TypeConnected {
		t.Fatalf("want connected, got %+v", first)
	}
	second := readControl(t, op2)
	if second.Type != ws.TypePeerConnected || second.PeerRole != "client" {
		t.Fatalf("want peer_connected(client), got %+v", second)
	}

	back := readControl(t, cl)
	if back.Type != ws.TypePeerConnected || back.PeerRole != "operator" {
		t.Fatalf("want peer_connected(operator), got %+v", back)
	}
}

func TestFramesDroppedWithoutPeer(t *testing.T) {
	ts, reg := newTestServer(t, 20*time.Millisecond)

	op := dial(t, ts, "solo", "operator")
	readControl(t, op)

	// no client in the room; frames vanish without killing the sender
	for i := 0; i < 5; i++ {
		if err := op.WriteMessage(websocket.TextMessage, []byte(`{"type":"screen"}`)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	time.Sleep(50 * time.Millisecond)
	st, err := reg.Status("solo")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.HasOperator {
		t.Fatal("sender must survive dropped frames")
	}
}
