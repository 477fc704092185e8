package network

import (
	"encoding/json"
	"fmt"

	"github.com/gravitas-games/cachegrid/internal/grid"
	"github.com/gravitas-games/cachegrid/internal/merge"
)

// Message types - Client → Server
const (
	MsgTypeJoin     = "join"
	MsgTypeLeave    = "leave"
	MsgTypePing     = "ping"
	MsgTypeMove     = "move"
	MsgTypeViewport = "viewport"
	MsgTypeTake     = "take"
	MsgTypePlace    = "place"
	MsgTypeReset    = "reset"
)

// Message types - Server → Client
const (
	MsgTypeWelcome      = "welcome"
	MsgTypePlayerJoined = "player_joined"
	MsgTypePlayerLeft   = "player_left"
	MsgTypeCellShown    = "cell_shown"
	MsgTypeCellHidden   = "cell_hidden"
	MsgTypeCellValue    = "cell_value"
	MsgTypeActionResult = "action_result"
	MsgTypePlayerState  = "player_state"
	MsgTypeError        = "error"
	MsgTypePong         = "pong"
)

// Error codes
const (
	ErrCodeInvalidMessage   = "INVALID_MESSAGE"
	ErrCodeUnknownType      = "UNKNOWN_MESSAGE_TYPE"
	ErrCodeNotJoined        = "NOT_JOINED"
	ErrCodeSessionFull      = "SESSION_FULL"
	ErrCodeAlreadyConnected = "ALREADY_CONNECTED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (m ClientMessage) Decode(v interface{}) error {
	if len(m.Payload) == 0 || string(m.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", m.Type, err)
	}
	return nil
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Encode marshals a server message.
func Encode(msgType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(ServerMessage{Type: msgType, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", msgType, err)
	}
	return data, nil
}

// --- Client Message Payloads ---

// MovePayload steps the player one tile
type MovePayload struct {
	Direction string `json:"direction"`
}

// ViewportPayload replaces the visible region
type ViewportPayload struct {
	NorthWest grid.LatLng `json:"north_west"`
	SouthEast grid.LatLng `json:"south_east"`
}

// Viewport converts the payload into a grid viewport.
func (p ViewportPayload) Viewport() grid.Viewport {
	return grid.Viewport{NorthWest: p.NorthWest, SouthEast: p.SouthEast}
}

// CellPayload addresses a cache for take and place
type CellPayload struct {
	I int `json:"i"`
	J int `json:"j"`
}

// Coord returns the addressed coordinate.
func (p CellPayload) Coord() grid.Coord { return grid.Coord{I: p.I, J: p.J} }

// --- Server Message Payloads ---

// WelcomePayload is sent to client after successful join
type WelcomePayload struct {
	PlayerID      string        `json:"player_id"`
	Username      string        `json:"username"`
	SessionID     string        `json:"session_id"`
	SessionStatus SessionStatus `json:"session_status"`
}

// PlayerJoinedPayload notifies clients when a player joins
type PlayerJoinedPayload struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// PlayerLeftPayload notifies clients when a player leaves
type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// CellShownPayload announces a cache entering the viewport
type CellShownPayload struct {
	Coord  grid.Coord  `json:"coord"`
	Bounds grid.Bounds `json:"bounds"`
	Value  int         `json:"value"`
}

// CellHiddenPayload announces a cache leaving the viewport
type CellHiddenPayload struct {
	Coord grid.Coord `json:"coord"`
}

// CellValuePayload announces a changed cache value
type CellValuePayload struct {
	Coord grid.Coord `json:"coord"`
	Value int        `json:"value"`
}

// ActionResultPayload reports a take or place
type ActionResultPayload struct {
	merge.Result
	Status string `json:"status"`
}

// PlayerState mirrors the player's position and inventory
type PlayerState struct {
	Position     grid.LatLng `json:"position"`
	Cell         grid.Coord  `json:"cell"`
	Inventory    int         `json:"inventory"`
	LiveCaches   int         `json:"live_caches"`
	WinThreshold int         `json:"win_threshold"`
}

// SessionStatus represents the current session state
type SessionStatus struct {
	State       string `json:"state"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	Uptime      int64  `json:"uptime"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
