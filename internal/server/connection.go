package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/craftgrid/internal/network"
	"github.com/gravitas-games/craftgrid/pkg/models"
	"github.com/gravitas-games/craftgrid/pkg/workbench"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	ws     *websocket.Conn
	server *Server

	// Set by Join
	player    *models.Player
	workspace *Workspace

	// Buffered channel for outbound messages
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// NewConnection creates a new connection
func NewConnection(ws *websocket.Conn, server *Server) *Connection {
	return &Connection{
		ws:     ws,
		server: server,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// Join attaches the connection to the player's workspace, forwards the
// station's events and queues the welcome message.
func (c *Connection) Join(player *models.Player) error {
	ws, err := c.server.session.AddPlayer(player, c)
	if err != nil {
		return err
	}
	c.player = ws.Player()
	c.workspace = ws

	c.server.bus.Subscribe(c.player.StationOwner(), c.forwardEvent)

	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeWelcome,
		Payload: network.WelcomePayload{
			PlayerID: c.player.ID,
			Username: c.player.Username,
			Items:    itemInfo(c.server.catalog),
			State:    ws.Snapshot(),
		},
	})
	return nil
}

// Reject writes a single error to a connection that never joined and closes it
func (c *Connection) Reject(code, message string) {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(network.ServerMessage{
		Type:    network.MsgTypeError,
		Payload: network.ErrorPayload{Code: code, Message: message},
	}); err != nil {
		log.Printf("WebSocket write error: %v", err)
	}
	c.ws.Close()
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the workspace
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			log.Printf("Failed to parse client message: %v", err)
			c.SendError("invalid_message", "Failed to parse message")
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage applies a command to the workspace and sends the reply
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	if msg.Type != network.MsgTypePing {
		log.Printf("Received %s from %s", msg.Type, c.player.Username)
	}

	reply, err := c.workspace.Apply(*msg)
	if err != nil {
		log.Printf("Station error for %s, closing connection: %v", c.player.Username, err)
		c.SendMessage(&reply)
		c.Close()
		return
	}
	if reply.Type == network.MsgTypeError {
		log.Printf("Bad message %s from %s", msg.Type, c.player.Username)
	}
	c.SendMessage(&reply)
}

// forwardEvent relays a station event to the client
func (c *Connection) forwardEvent(e workbench.Event) {
	c.SendMessage(&network.ServerMessage{Type: network.MsgTypeEvent, Payload: e})
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	select {
	case <-c.done:
	case c.send <- data:
	default:
		log.Printf("Send buffer full, dropping message")
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close detaches the player and closes the connection. Safe to call more
// than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if c.player != nil {
			c.server.bus.Unsubscribe(c.player.StationOwner())
			c.server.session.RemovePlayer(c.player.ID)
		}
		close(c.done)
		c.ws.Close()
	})
}
