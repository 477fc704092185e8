package server

import (
	"errors"
	"sync"
	"time"

	"github.com/gravitas-games/cachegrid/internal/network"
	"github.com/gravitas-games/cachegrid/pkg/logger"
	"github.com/gravitas-games/cachegrid/pkg/models"
	"github.com/sirupsen/logrus"
)

var (
	errSessionFull      = errors.New("session is full")
	errAlreadyConnected = errors.New("player is already connected")
)

// Session is the room every connected player shares. Games are per player;
// the session only tracks who is present and relays join/leave notices.
type Session struct {
	ID        string
	CreatedAt time.Time

	players     map[string]*models.Player // playerID -> Player
	connections map[string]*Connection    // playerID -> Connection
	maxPlayers  int
	mu          sync.RWMutex

	log *logrus.Entry
}

// NewSession creates a new game session
func NewSession(id string, maxPlayers int) *Session {
	s := &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		players:     make(map[string]*models.Player),
		connections: make(map[string]*Connection),
		maxPlayers:  maxPlayers,
		log:         logger.Component("session").WithField("session", id),
	}
	s.log.WithField("max_players", maxPlayers).Info("Session created")
	return s
}

// AddPlayer adds a player to the session
func (s *Session) AddPlayer(player *models.Player, conn *Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[player.ID]; exists {
		return errAlreadyConnected
	}
	if s.maxPlayers > 0 && len(s.players) >= s.maxPlayers {
		return errSessionFull
	}
	s.players[player.ID] = player
	s.connections[player.ID] = conn

	s.log.WithFields(logrus.Fields{"player": player.ID, "username": player.Username}).Info("Player joined")
	return nil
}

// RemovePlayer removes a player joined through conn. It reports whether
// anything was removed.
func (s *Session) RemovePlayer(playerID string, conn *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, exists := s.players[playerID]
	if !exists || s.connections[playerID] != conn {
		return false
	}
	delete(s.players, playerID)
	delete(s.connections, playerID)
	s.log.WithFields(logrus.Fields{"player": playerID, "username": player.Username}).Info("Player left")
	return true
}

// GetPlayer retrieves a player by ID
func (s *Session) GetPlayer(playerID string) (*models.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, exists := s.players[playerID]
	return player, exists
}

// PlayerCount returns the number of joined players
func (s *Session) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// BroadcastExcept sends a message to all players except the specified connection
func (s *Session) BroadcastExcept(exclude *Connection, msgType string, payload interface{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conn := range s.connections {
		if conn != exclude {
			conn.Notify(msgType, payload)
		}
	}
}

// Status returns the current session status
func (s *Session) Status() network.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := "waiting"
	if len(s.players) > 0 {
		state = "running"
	}
	return network.SessionStatus{
		State:       state,
		PlayerCount: len(s.players),
		MaxPlayers:  s.maxPlayers,
		Uptime:      int64(time.Since(s.CreatedAt).Seconds()),
	}
}
