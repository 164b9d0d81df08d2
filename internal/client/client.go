package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/pokerroom/internal/protocol"
)

// Client is a WebSocket connection to one room as one player.
type Client struct {
	serverURL string
	roomID    string
	playerID  string
	name      string
	conn      *websocket.Conn
	send      chan []byte
	receive   chan protocol.Outbound
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewClient creates a new WebSocket client
func NewClient(serverURL, roomID, playerID, name string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		roomID:    roomID,
		playerID:  playerID,
		name:      name,
		send:      make(chan []byte, 256),
		receive:   make(chan protocol.Outbound, 256),
		logger:    logger.WithPrefix("client").With("room", roomID, "player", playerID),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// roomURL turns the server URL into the room's WebSocket endpoint
func roomURL(serverURL, roomID, playerID, name string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server URL: unsupported scheme %q", u.Scheme)
	}

	u.Path = "/ws"
	q := url.Values{}
	q.Set("room", roomID)
	q.Set("player", playerID)
	if name != "" {
		q.Set("name", name)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	endpoint, err := roomURL(c.serverURL, c.roomID, c.playerID, c.name)
	if err != nil {
		return err
	}
	c.logger.Info("Connecting to server", "url", endpoint)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	go c.readPump()
	go c.writePump()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
		c.logger.Info("Disconnected from server")
	})
	return err
}

// Messages yields every decoded server message. It is closed when the
// connection ends.
func (c *Client) Messages() <-chan protocol.Outbound {
	return c.receive
}

// Done is closed once the client has been disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Send queues a message for the room
func (c *Client) Send(msg protocol.Inbound) error {
	frame, err := protocol.EncodeInbound(msg)
	if err != nil {
		return err
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		close(c.receive)
		_ = c.Disconnect()
	}()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		msg, err := protocol.DecodeOutbound(frame)
		if err != nil {
			c.logger.Warn("Skipping message", "error", err)
			continue
		}
		c.logger.Debug("Received message", "type", msg.Type())

		select {
		case c.receive <- msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				_ = c.Disconnect()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
