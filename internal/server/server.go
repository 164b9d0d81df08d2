package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/pokerroom/internal/protocol"
)

// Room is the part of a room the transport drives.
type Room interface {
	Connect(playerID, name string) error
	Disconnect(playerID string) error
	Deliver(playerID string, msg protocol.Inbound) error
}

// RoomLookup finds a room by ID.
type RoomLookup func(id string) (Room, bool)

// connKey identifies a player's seat at one room. A player may hold one
// connection per room.
type connKey struct {
	roomID   string
	playerID string
}

// Server is the WebSocket transport. It implements room.Transport: one
// connection per player per room.
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	players  map[connKey]*Connection
	rooms    RoomLookup
	clock    quartz.Clock
	logger   *log.Logger
	mu       sync.RWMutex
}

// NewServer creates a new WebSocket server
func NewServer(addr string, logger *log.Logger) *Server {
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Rooms are joined by ID; origin is not used for access control.
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		players: make(map[connKey]*Connection),
		rooms:   func(string) (Room, bool) { return nil, false },
		clock:   quartz.NewReal(),
		logger:  logger.WithPrefix("server"),
	}
}

// SetRooms sets how /ws resolves the room query parameter
func (s *Server) SetRooms(lookup RoomLookup) {
	s.rooms = lookup
}

// Handler returns the HTTP routes: /ws and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Run serves until ctx is cancelled, then closes every connection.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting WebSocket server", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeAll()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) closeAll() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.players))
	for _, c := range s.players {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.Close() // Ignore close errors during shutdown
	}
}

// handleWebSocket upgrades /ws?room=<id>&player=<id>&name=<name> and attaches
// the player to the room.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID, playerID, name := q.Get("room"), q.Get("player"), q.Get("name")
	if roomID == "" || playerID == "" {
		http.Error(w, "room and player are required", http.StatusBadRequest)
		return
	}
	rm, ok := s.rooms(roomID)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown room %q", roomID), http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, playerID, roomID, rm, s)
	s.register(client)
	client.Start()

	if err := rm.Connect(playerID, name); err != nil {
		s.logger.Error("Room refused connection", "room", roomID, "player", playerID, "error", err)
		_ = client.Close()
	}

	// Connection cleanup is handled by the connection itself
	go func() {
		<-client.ctx.Done()
		s.unregister(client)
	}()
}

// register makes client the player's connection to its room, closing any
// older one to the same room.
func (s *Server) register(client *Connection) {
	key := client.key()
	s.mu.Lock()
	old := s.players[key]
	s.players[key] = client
	total := len(s.players)
	s.mu.Unlock()

	if old != nil {
		s.logger.Info("Replacing connection", "player", client.playerID, "room", client.roomID)
		_ = old.Close()
	}
	s.logger.Info("Client connected", "player", client.playerID, "room", client.roomID, "total", total)
}

// unregister forgets client and tells its room, unless a newer connection
// has taken over the player.
func (s *Server) unregister(client *Connection) {
	key := client.key()
	s.mu.Lock()
	current := s.players[key] == client
	if current {
		delete(s.players, key)
	}
	total := len(s.players)
	s.mu.Unlock()

	if !current {
		return
	}
	if err := client.room.Disconnect(client.playerID); err != nil {
		s.logger.Debug("Room gone before disconnect", "player", client.playerID, "error", err)
	}
	s.logger.Info("Client disconnected", "player", client.playerID, "room", client.roomID, "total", total)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

func (s *Server) encode(msg protocol.Outbound) ([]byte, bool) {
	frame, err := protocol.Encode(msg, s.clock.Now())
	if err != nil {
		s.logger.Error("Failed to encode message", "type", msg.Type(), "error", err)
		return nil, false
	}
	return frame, true
}

// Send delivers msg to one player if they are connected to the room.
func (s *Server) Send(roomID, playerID string, msg protocol.Outbound) {
	s.mu.RLock()
	conn := s.players[connKey{roomID: roomID, playerID: playerID}]
	s.mu.RUnlock()
	if conn == nil {
		s.logger.Debug("Dropping message for absent player", "room", roomID, "player", playerID, "type", msg.Type())
		return
	}
	if frame, ok := s.encode(msg); ok {
		_ = conn.SendFrame(frame)
	}
}

// Broadcast delivers msg to every connection in the room.
func (s *Server) Broadcast(roomID string, msg protocol.Outbound) {
	frame, ok := s.encode(msg)
	if !ok {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, conn := range s.players {
		if conn.roomID != roomID {
			continue
		}
		if err := conn.SendFrame(frame); err != nil {
			s.logger.Debug("Failed to send message to client", "error", err, "player", conn.playerID)
			continue
		}
		count++
	}
	s.logger.Debug("Broadcast", "room", roomID, "type", msg.Type(), "recipients", count)
}

// ConnectedPlayers returns the IDs of players connected to the room
func (s *Server) ConnectedPlayers(roomID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]string, 0, len(s.players))
	for key := range s.players {
		if key.roomID == roomID {
			players = append(players, key.playerID)
		}
	}
	slices.Sort(players)
	return players
}
