package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/internal/protocol"
	"github.com/lox/pokerroom/internal/room"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// startServer runs a websocket server in front of a single default room.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	_, _, ts := startRooms(t, "main")
	return ts
}

// startRooms runs a websocket server in front of one default room per ID.
func startRooms(t *testing.T, ids ...string) (*Server, *room.Manager, *httptest.Server) {
	t.Helper()
	logger := testLogger()
	srv := NewServer("", logger)

	configs := make([]room.Config, len(ids))
	for i, id := range ids {
		configs[i] = room.DefaultConfig(id)
	}
	rooms, err := room.NewManager(configs, srv, logger)
	require.NoError(t, err)
	srv.SetRooms(func(id string) (Room, bool) {
		r, ok := rooms.Room(id)
		if !ok {
			return nil, false
		}
		return r, true
	})

	go func() { _ = rooms.Run(t.Context()) }()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.closeAll()
	})
	return srv, rooms, ts
}

func dial(t *testing.T, ts *httptest.Server, player string) *websocket.Conn {
	t.Helper()
	return dialRoom(t, ts, "main", player)
}

func dialRoom(t *testing.T, ts *httptest.Server, roomID, player string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?room=" + roomID + "&player=" + player + "&name=" + strings.ToUpper(player)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads frames until one decodes to T.
func readUntil[T protocol.Outbound](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err)
		msg, err := protocol.DecodeOutbound(frame)
		require.NoError(t, err)
		if m, ok := any(msg).(*T); ok {
			return *m
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg protocol.Inbound) {
	t.Helper()
	frame, err := protocol.EncodeInbound(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func TestServerHealth(t *testing.T) {
	t.Parallel()
	srv := NewServer("", testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestWebSocketRejectsBadRequests(t *testing.T) {
	t.Parallel()
	ts := startServer(t)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"missing player", "?room=main", http.StatusBadRequest},
		{"missing room", "?player=p1", http.StatusBadRequest},
		{"unknown room", "?room=nope&player=p1", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/ws" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestWebSocketJoin(t *testing.T) {
	t.Parallel()
	ts := startServer(t)
	conn := dial(t, ts, "p1")

	joined := readUntil[protocol.PlayerJoined](t, conn)
	assert.Equal(t, protocol.PlayerJoined{PlayerID: "p1", Name: "P1"}, joined)

	state := readUntil[protocol.GameStateUpdate](t, conn)
	assert.Equal(t, "main", state.RoomID)
	assert.Equal(t, "waiting", state.Stage)
	assert.Equal(t, 20, state.BigBlind)
}

func TestWebSocketErrors(t *testing.T) {
	t.Parallel()
	ts := startServer(t)
	conn := dial(t, ts, "p1")
	readUntil[protocol.GameStateUpdate](t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	malformed := readUntil[protocol.Error](t, conn)
	assert.Equal(t, protocol.CodeMalformed, malformed.Code)

	send(t, conn, protocol.SitAtTable{BuyIn: 5})
	amount := readUntil[protocol.Error](t, conn)
	assert.Equal(t, protocol.CodeInvalidAmount, amount.Code)
	assert.Equal(t, 400, amount.Min)
	assert.Equal(t, 4000, amount.Max)

	send(t, conn, protocol.Check{})
	turn := readUntil[protocol.Error](t, conn)
	assert.Equal(t, protocol.CodeOutOfTurn, turn.Code)
}

func TestWebSocketSpectatorLeaves(t *testing.T) {
	t.Parallel()
	ts := startServer(t)
	alice := dial(t, ts, "alice")
	readUntil[protocol.GameStateUpdate](t, alice)

	bob := dial(t, ts, "bob")
	joined := readUntil[protocol.PlayerJoined](t, alice)
	assert.Equal(t, "bob", joined.PlayerID)
	readUntil[protocol.GameStateUpdate](t, bob)

	require.NoError(t, bob.Close())
	left := readUntil[protocol.PlayerLeft](t, alice)
	assert.Equal(t, "bob", left.PlayerID)
}

func TestWebSocketSeatedPlayersSeeEachOther(t *testing.T) {
	t.Parallel()
	ts := startServer(t)
	alice := dial(t, ts, "alice")
	readUntil[protocol.GameStateUpdate](t, alice)
	bob := dial(t, ts, "bob")
	readUntil[protocol.GameStateUpdate](t, bob)

	send(t, alice, protocol.SitAtTable{BuyIn: 1000})
	send(t, alice, protocol.SetReady{IsReady: true})
	ready := readUntil[protocol.PlayerReadyUpdate](t, bob)
	assert.Equal(t, "alice", ready.PlayerID)
	assert.True(t, ready.IsReady)

	send(t, bob, protocol.SocialAction{Payload: json.RawMessage(`{"emote":"wave"}`)})
	social := readUntil[protocol.SocialActionBroadcast](t, alice)
	assert.Equal(t, "bob", social.PlayerID)
	assert.JSONEq(t, `{"emote":"wave"}`, string(social.Payload))
}

func TestWebSocketPlayerInTwoRooms(t *testing.T) {
	t.Parallel()
	srv, rooms, ts := startRooms(t, "a", "b")
	roomA, _ := rooms.Room("a")

	inA := dialRoom(t, ts, "a", "alice")
	readUntil[protocol.GameStateUpdate](t, inA)
	send(t, inA, protocol.SitAtTable{BuyIn: 1000})

	inB := dialRoom(t, ts, "b", "alice")
	readUntil[protocol.GameStateUpdate](t, inB)
	assert.Equal(t, []string{"alice"}, srv.ConnectedPlayers("a"), "joining b keeps the connection to a")
	assert.Equal(t, []string{"alice"}, srv.ConnectedPlayers("b"))

	// Room a's private messages stay on the room a socket.
	send(t, inA, protocol.SetReady{IsReady: true})
	ready := readUntil[protocol.PlayerReadyUpdate](t, inA)
	assert.Equal(t, "alice", ready.PlayerID)

	require.NoError(t, inA.Close())
	require.Eventually(t, func() bool {
		snap, err := roomA.Snapshot(t.Context())
		if err != nil {
			return false
		}
		p, ok := snap.Member("alice")
		return ok && !p.Connected
	}, 5*time.Second, 10*time.Millisecond, "closing the room a socket disconnects alice from a")

	assert.Empty(t, srv.ConnectedPlayers("a"))
	assert.Equal(t, []string{"alice"}, srv.ConnectedPlayers("b"))

	send(t, inB, protocol.Check{})
	turn := readUntil[protocol.Error](t, inB)
	assert.Equal(t, protocol.CodeOutOfTurn, turn.Code, "the room b connection is still live")
}
