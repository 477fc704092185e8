// Package play runs one player's game: position, viewport, and actions over
// a single store, game map and merge engine.
package play

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gravitas-games/cachegrid/internal/config"
	"github.com/gravitas-games/cachegrid/internal/gamemap"
	"github.com/gravitas-games/cachegrid/internal/grid"
	"github.com/gravitas-games/cachegrid/internal/luck"
	"github.com/gravitas-games/cachegrid/internal/merge"
	"github.com/gravitas-games/cachegrid/internal/store"
)

// Direction is a one-tile step on the grid.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

// ParseDirection accepts a direction name or its WASD key.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "north", "n", "w":
		return North, nil
	case "south", "s":
		return South, nil
	case "east", "e", "d":
		return East, nil
	case "west", "a":
		return West, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

func (d Direction) delta() (dLat, dLng float64) {
	switch d {
	case North:
		return 1, 0
	case South:
		return -1, 0
	case East:
		return 0, 1
	case West:
		return 0, -1
	}
	return 0, 0
}

// State is a snapshot of the player.
type State struct {
	Position     grid.LatLng `json:"position"`
	Cell         grid.Coord  `json:"cell"`
	Inventory    int         `json:"inventory"`
	LiveCaches   int         `json:"live_caches"`
	WinThreshold int         `json:"win_threshold"`
}

// Game serialises every operation for one player.
type Game struct {
	mu         sync.Mutex
	layout     grid.Layout
	viewRadius int
	store      *store.Store
	gameMap    *gamemap.GameMap
	engine     *merge.Engine
	position   grid.LatLng
}

// New wires a game over s. A nil renderer discards lifecycle calls and a nil
// source uses the seeded hash from cfg.
func New(cfg config.GameConfig, s *store.Store, r gamemap.Renderer, src luck.Source) *Game {
	if r == nil {
		r = gamemap.NopRenderer{}
	}
	if src == nil {
		src = luck.NewHash(cfg.Seed)
	}
	layout := cfg.Layout()
	m := gamemap.New(layout, s,
		gamemap.WithLuck(src),
		gamemap.WithRenderer(r),
		gamemap.WithSpawnProbability(cfg.SpawnProbability),
	)
	return &Game{
		layout:     layout,
		viewRadius: cfg.ViewRadius,
		store:      s,
		gameMap:    m,
		engine: merge.New(m, s,
			merge.WithReach(cfg.InteractRadius),
			merge.WithWinThreshold(cfg.WinThreshold),
		),
		position: layout.StartPosition(),
	}
}

// Start restores the saved position, if any, and spawns the caches around
// the player.
func (g *Game) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok, err := g.store.Position(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore position: %w", err)
	}
	if ok {
		g.position = pos
	}
	return g.gameMap.Update(ctx, g.layout.ViewportAround(g.position, g.viewRadius))
}

// Move steps the player one tile and refreshes the surrounding caches.
func (g *Game) Move(ctx context.Context, dir Direction) (grid.LatLng, error) {
	dLat, dLng := dir.delta()
	if dLat == 0 && dLng == 0 {
		return grid.LatLng{}, fmt.Errorf("unknown direction %q", dir)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.position.Offset(dLat, dLng, g.layout.TileDegrees)
	if err := g.store.SetPosition(ctx, next); err != nil {
		return g.position, fmt.Errorf("failed to save position: %w", err)
	}
	g.position = next
	return next, g.gameMap.Update(ctx, g.layout.ViewportAround(next, g.viewRadius))
}

// SetViewport replaces the visible region with one chosen by the host.
func (g *Game) SetViewport(ctx context.Context, vp grid.Viewport) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gameMap.Update(ctx, vp)
}

// Take moves the token at c into the inventory.
func (g *Game) Take(ctx context.Context, c grid.Coord) (merge.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.Take(ctx, g.position, c)
}

// Place drops the held token into the cache at c.
func (g *Game) Place(ctx context.Context, c grid.Coord) (merge.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.Place(ctx, c)
}

// Reset forgets every override and the inventory. The position is kept.
func (g *Game) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.engine.Reset(ctx); err != nil {
		return err
	}
	if err := g.store.SetPosition(ctx, g.position); err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// State returns the player's current snapshot.
func (g *Game) State(ctx context.Context) (State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	held, err := g.engine.Inventory(ctx)
	if err != nil {
		return State{}, err
	}
	return State{
		Position:     g.position,
		Cell:         g.layout.CellAt(g.position),
		Inventory:    held,
		LiveCaches:   g.gameMap.Len(),
		WinThreshold: g.engine.WinThreshold(),
	}, nil
}

// Caches returns the live caches with their current values.
func (g *Game) Caches(ctx context.Context) (map[grid.Coord]int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[grid.Coord]int, g.gameMap.Len())
	for _, cell := range g.gameMap.Cells() {
		v, err := cell.CurrentValue(ctx)
		if err != nil {
			return nil, err
		}
		out[cell.Coord()] = v
	}
	return out, nil
}

// Layout returns the grid layout the game runs on.
func (g *Game) Layout() grid.Layout { return g.layout }
