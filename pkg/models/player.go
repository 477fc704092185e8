package models

import (
	"fmt"
	"regexp"
	"time"
)

var anonymousName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// Player represents a connected player
type Player struct {
	// From JWT claims, or the requested name for anonymous players
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	Permissions int64  `json:"permissions"`
	Activated   int64  `json:"activated"`   // activation timestamp, 0 inactive, -1 banned
	AuthMethod  string `json:"auth_method"` // "password", "oauth" or "anonymous"

	// Connection state
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`

	// Session state
	SessionID string `json:"session_id"`
}

// NewAnonymous returns a player identified only by a chosen name.
func NewAnonymous(name string) (*Player, error) {
	if !anonymousName.MatchString(name) {
		return nil, fmt.Errorf("invalid player name %q", name)
	}
	return &Player{
		ID:         "anon-" + name,
		Username:   name,
		Activated:  1,
		AuthMethod: "anonymous",
	}, nil
}

// StoreNamespace is the key prefix under which the player's caches,
// inventory and position are kept.
func (p *Player) StoreNamespace() string {
	return "player:" + p.ID + ":"
}

// IsActive checks if the player account is activated and not banned
func (p *Player) IsActive() bool {
	return p.Activated > 0
}

// IsBanned checks if the player is banned
func (p *Player) IsBanned() bool {
	return p.Activated == -1
}

// IsConnected checks if the player is currently connected
func (p *Player) IsConnected() bool {
	return p.Connected
}
