package server

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gravitas-games/cachegrid/internal/grid"
	"github.com/gravitas-games/cachegrid/internal/merge"
	"github.com/gravitas-games/cachegrid/internal/network"
	"github.com/gravitas-games/cachegrid/internal/play"
	"github.com/gravitas-games/cachegrid/internal/store"
	"github.com/gravitas-games/cachegrid/pkg/models"
	"github.com/sirupsen/logrus"
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

	// Largest viewport a client may request, in tiles per axis
	maxViewportTiles = 64
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	ws     *websocket.Conn
	server *Server
	player *models.Player

	// game is set by join and only touched from the read pump
	game *play.Game

	// Buffered channel for outbound messages
	send      chan []byte
	sendMu    sync.RWMutex
	closed    bool
	done      chan struct{}
	closeOnce sync.Once

	log *logrus.Entry
}

// NewConnection creates a new connection for an authenticated player
func NewConnection(ws *websocket.Conn, server *Server, player *models.Player) *Connection {
	return &Connection{
		ws:     ws,
		server: server,
		player: player,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		log:    server.log.WithField("player", player.ID),
	}
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

// readPump pumps messages from the WebSocket connection to the game
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("WebSocket read error")
			}
			return
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.log.WithError(err).Debug("Failed to parse client message")
			c.SendError(network.ErrCodeInvalidMessage, "Failed to parse message")
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
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.WithError(err).Warn("WebSocket write error")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	c.log.WithField("type", msg.Type).Debug("Received message")

	switch msg.Type {
	case network.MsgTypeJoin:
		c.handleJoin()
	case network.MsgTypeLeave:
		c.handleLeave()
	case network.MsgTypePing:
		c.SendMessage(network.MsgTypePong, map[string]interface{}{"timestamp": time.Now().Unix()})
	case network.MsgTypeMove, network.MsgTypeViewport, network.MsgTypeTake,
		network.MsgTypePlace, network.MsgTypeReset:
		if c.game == nil {
			c.SendError(network.ErrCodeNotJoined, "Join the session first")
			return
		}
		c.handleGameMessage(msg)
	default:
		c.SendError(network.ErrCodeUnknownType, "Unknown message type")
	}
}

// handleJoin adds the player to the session and starts their game
func (c *Connection) handleJoin() {
	if c.game != nil {
		c.SendError(network.ErrCodeInvalidMessage, "Already joined")
		return
	}

	session := c.server.session
	if err := session.AddPlayer(c.player, c); err != nil {
		code := network.ErrCodeInternal
		switch {
		case errors.Is(err, errSessionFull):
			code = network.ErrCodeSessionFull
		case errors.Is(err, errAlreadyConnected):
			code = network.ErrCodeAlreadyConnected
		}
		c.SendError(code, err.Error())
		return
	}

	c.player.Connected = true
	c.player.ConnectedAt = time.Now()
	c.player.SessionID = session.ID

	st := store.New(c.server.storage.forPlayer(c.player))
	game := play.New(c.server.config.Game, st, connRenderer{c}, c.server.luck)

	c.SendMessage(network.MsgTypeWelcome, network.WelcomePayload{
		PlayerID:      c.player.ID,
		Username:      c.player.Username,
		SessionID:     session.ID,
		SessionStatus: session.Status(),
	})

	if err := game.Start(c.server.ctx); err != nil {
		c.log.WithError(err).Error("Failed to start game")
		session.RemovePlayer(c.player.ID, c)
		c.SendError(network.ErrCodeInternal, "Failed to start game")
		return
	}
	c.game = game
	c.sendState()

	session.BroadcastExcept(c, network.MsgTypePlayerJoined, network.PlayerJoinedPayload{
		PlayerID: c.player.ID,
		Username: c.player.Username,
	})
}

// handleLeave removes the player from the session
func (c *Connection) handleLeave() {
	c.leave()
	c.game = nil
}

func (c *Connection) leave() {
	if !c.server.session.RemovePlayer(c.player.ID, c) {
		return
	}
	c.player.Connected = false
	c.player.LastSeen = time.Now()
	c.server.session.BroadcastExcept(c, network.MsgTypePlayerLeft, network.PlayerLeftPayload{
		PlayerID: c.player.ID,
		Username: c.player.Username,
	})
}

func (c *Connection) handleGameMessage(msg *network.ClientMessage) {
	ctx := c.server.ctx

	switch msg.Type {
	case network.MsgTypeMove:
		var p network.MovePayload
		if err := msg.Decode(&p); err != nil {
			c.SendError(network.ErrCodeInvalidMessage, err.Error())
			return
		}
		dir, err := play.ParseDirection(p.Direction)
		if err != nil {
			c.SendError(network.ErrCodeInvalidMessage, err.Error())
			return
		}
		if _, err := c.game.Move(ctx, dir); err != nil {
			c.internalError("move", err)
			return
		}
		c.sendState()

	case network.MsgTypeViewport:
		var p network.ViewportPayload
		if err := msg.Decode(&p); err != nil {
			c.SendError(network.ErrCodeInvalidMessage, err.Error())
			return
		}
		vp := p.Viewport()
		if !c.viewportAllowed(vp) {
			c.SendError(network.ErrCodeInvalidMessage, "Viewport too large")
			return
		}
		if err := c.game.SetViewport(ctx, vp); err != nil {
			c.internalError("viewport", err)
			return
		}
		c.sendState()

	case network.MsgTypeTake, network.MsgTypePlace:
		var p network.CellPayload
		if err := msg.Decode(&p); err != nil {
			c.SendError(network.ErrCodeInvalidMessage, err.Error())
			return
		}
		var (
			res merge.Result
			err error
		)
		if msg.Type == network.MsgTypeTake {
			res, err = c.game.Take(ctx, p.Coord())
		} else {
			res, err = c.game.Place(ctx, p.Coord())
		}
		if err != nil {
			c.internalError(msg.Type, err)
			return
		}
		c.SendMessage(network.MsgTypeActionResult, network.ActionResultPayload{Result: res, Status: res.Status()})

	case network.MsgTypeReset:
		if err := c.game.Reset(ctx); err != nil {
			c.internalError("reset", err)
			return
		}
		c.sendState()
	}
}

func (c *Connection) viewportAllowed(vp grid.Viewport) bool {
	b := vp.Bounds()
	tile := c.game.Layout().TileDegrees
	return (b.NorthEast.Lat-b.SouthWest.Lat)/tile <= maxViewportTiles &&
		(b.NorthEast.Lng-b.SouthWest.Lng)/tile <= maxViewportTiles
}

func (c *Connection) sendState() {
	st, err := c.game.State(c.server.ctx)
	if err != nil {
		c.internalError("state", err)
		return
	}
	c.SendMessage(network.MsgTypePlayerState, network.PlayerState{
		Position:     st.Position,
		Cell:         st.Cell,
		Inventory:    st.Inventory,
		LiveCaches:   st.LiveCaches,
		WinThreshold: st.WinThreshold,
	})
}

func (c *Connection) internalError(op string, err error) {
	c.log.WithError(err).WithField("op", op).Error("Game operation failed")
	c.SendError(network.ErrCodeInternal, "Failed to "+op)
}

// SendMessage queues a message for the client, waiting for buffer space
// until the connection closes or the server shuts down.
func (c *Connection) SendMessage(msgType string, payload interface{}) {
	c.enqueue(msgType, payload, true)
}

// Notify queues a message from another player's goroutine. It is dropped
// when the buffer is full so a slow client never stalls its peers.
func (c *Connection) Notify(msgType string, payload interface{}) {
	c.enqueue(msgType, payload, false)
}

func (c *Connection) enqueue(msgType string, payload interface{}, wait bool) {
	data, err := network.Encode(msgType, payload)
	if err != nil {
		c.log.WithError(err).Error("Failed to marshal message")
		return
	}

	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closed {
		return
	}
	if !wait {
		select {
		case c.send <- data:
		default:
			c.log.WithField("type", msgType).Warn("Send buffer full, dropping message")
		}
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	case <-c.server.ctx.Done():
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(network.MsgTypeError, network.ErrorPayload{
		Code:    code,
		Message: message,
	})
}

// Close removes the player from the session and closes the connection.
// It is safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.leave()

		// Release senders waiting on a full buffer before taking the lock.
		close(c.done)
		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()

		c.ws.Close()
	})
}

// connRenderer turns cache lifecycle calls into cell_* messages.
type connRenderer struct {
	c *Connection
}

func (r connRenderer) ShowCell(c grid.Coord, bounds grid.Bounds, value int) {
	r.c.SendMessage(network.MsgTypeCellShown, network.CellShownPayload{Coord: c, Bounds: bounds, Value: value})
}

func (r connRenderer) HideCell(c grid.Coord) {
	r.c.SendMessage(network.MsgTypeCellHidden, network.CellHiddenPayload{Coord: c})
}

func (r connRenderer) UpdateCellValue(c grid.Coord, value int) {
	r.c.SendMessage(network.MsgTypeCellValue, network.CellValuePayload{Coord: c, Value: value})
}
