package server

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gravitas-games/craftgrid/pkg/models"
)

var (
	ErrSessionFull      = errors.New("session is full")
	ErrAlreadyConnected = errors.New("player already connected")
)

// Session tracks connected players and their workspaces. Workspaces outlive
// connections, so a player who reconnects finds their inventory as they
// left it.
type Session struct {
	ID        string
	CreatedAt time.Time

	workspaces  map[string]*Workspace  // playerID -> Workspace
	connections map[string]*Connection // playerID -> Connection
	mu          sync.RWMutex

	maxPlayers int
	newStation StationFactory
}

// SessionStatus represents the current state of the session
type SessionStatus struct {
	PlayerCount int   `json:"player_count"`
	Workspaces  int   `json:"workspaces"`
	MaxPlayers  int   `json:"max_players"`
	Uptime      int64 `json:"uptime"` // seconds
}

// NewSession creates a session building stations with factory
func NewSession(id string, maxPlayers int, factory StationFactory) *Session {
	log.Printf("Creating session: %s", id)
	return &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		workspaces:  make(map[string]*Workspace),
		connections: make(map[string]*Connection),
		maxPlayers:  maxPlayers,
		newStation:  factory,
	}
}

// AddPlayer attaches a connection and returns the player's workspace,
// creating it on first join
func (s *Session) AddPlayer(player *models.Player, conn *Connection) (*Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.connections[player.ID]; exists {
		return nil, ErrAlreadyConnected
	}
	if s.maxPlayers > 0 && len(s.connections) >= s.maxPlayers {
		return nil, ErrSessionFull
	}

	ws, exists := s.workspaces[player.ID]
	if !exists {
		st, err := s.newStation(player)
		if err != nil {
			return nil, err
		}
		ws = NewWorkspace(player, st)
		s.workspaces[player.ID] = ws
		log.Printf("Workspace created for player %s (%s)", player.Username, player.ID)
	}
	ws.player.Connect(time.Now())
	s.connections[player.ID] = conn

	log.Printf("Player %s (%s) joined session %s", player.Username, player.ID, s.ID)
	return ws, nil
}

// RemovePlayer detaches the player's connection. A drag in progress is
// cancelled so the held item goes back where it came from.
func (s *Session) RemovePlayer(playerID string) {
	s.mu.Lock()
	ws, connected := s.workspaces[playerID]
	if _, ok := s.connections[playerID]; !ok {
		connected = false
	}
	delete(s.connections, playerID)
	s.mu.Unlock()

	if !connected {
		return
	}
	ws.Release()
	ws.player.Disconnect(time.Now())
	log.Printf("Player %s (%s) left session %s", ws.player.Username, playerID, s.ID)
}

// GetWorkspace retrieves a player's workspace
func (s *Session) GetWorkspace(playerID string) (*Workspace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, exists := s.workspaces[playerID]
	return ws, exists
}

// GetStatus returns the current session status
func (s *Session) GetStatus() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionStatus{
		PlayerCount: len(s.connections),
		Workspaces:  len(s.workspaces),
		MaxPlayers:  s.maxPlayers,
		Uptime:      int64(time.Since(s.CreatedAt).Seconds()),
	}
}
