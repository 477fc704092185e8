package gamemap

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gravitas-games/cachegrid/internal/grid"
	"github.com/gravitas-games/cachegrid/internal/luck"
	"github.com/gravitas-games/cachegrid/internal/store"
	"github.com/gravitas-games/cachegrid/pkg/logger"
	"github.com/sirupsen/logrus"
)

// ErrNotSpawned is returned when addressing a coordinate with no live cache.
var ErrNotSpawned = errors.New("no cache spawned at coordinate")

// GameMap owns the set of live caches for one viewer and keeps it in step
// with the viewport.
type GameMap struct {
	layout           grid.Layout
	store            *store.Store
	luck             luck.Source
	renderer         Renderer
	spawnProbability float64

	cells    map[grid.Coord]*Cell
	viewport grid.Viewport
	log      *logrus.Entry
}

// Option configures a GameMap.
type Option func(*GameMap)

// WithLuck replaces the default hash source.
func WithLuck(src luck.Source) Option {
	return func(m *GameMap) { m.luck = src }
}

// WithRenderer attaches a renderer.
func WithRenderer(r Renderer) Option {
	return func(m *GameMap) { m.renderer = r }
}

// WithSpawnProbability sets the share of cells hosting a cache.
func WithSpawnProbability(p float64) Option {
	return func(m *GameMap) { m.spawnProbability = p }
}

// WithLogger sets the log entry used by the map.
func WithLogger(entry *logrus.Entry) Option {
	return func(m *GameMap) { m.log = entry }
}

// New creates an empty game map. Nothing is spawned until the first
// viewport arrives.
func New(layout grid.Layout, s *store.Store, opts ...Option) *GameMap {
	m := &GameMap{
		layout:           layout,
		store:            s,
		luck:             luck.NewHash(""),
		renderer:         NopRenderer{},
		spawnProbability: luck.DefaultSpawnProbability,
		cells:            make(map[grid.Coord]*Cell),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Component("gamemap")
	}
	return m
}

// Layout returns the map's grid layout.
func (m *GameMap) Layout() grid.Layout { return m.layout }

// Viewport returns the last viewport passed to Update or SpawnAll.
func (m *GameMap) Viewport() grid.Viewport { return m.viewport }

// Update applies a viewport change: despawn what left the view, then spawn
// what entered it.
func (m *GameMap) Update(ctx context.Context, vp grid.Viewport) error {
	m.viewport = vp
	removed, delErr := m.DeleteAll(ctx)
	added, spawnErr := m.SpawnAll(ctx, vp)

	m.log.WithFields(logrus.Fields{
		"spawned":   added,
		"despawned": removed,
		"live":      len(m.cells),
	}).Debug("Viewport updated")

	return errors.Join(delErr, spawnErr)
}

// SpawnAll creates a cell for every visible coordinate that hosts a cache
// and is not live yet. The first spawn of a coordinate commits its baseline
// to the store. Returns the number of cells created.
func (m *GameMap) SpawnAll(ctx context.Context, vp grid.Viewport) (int, error) {
	m.viewport = vp
	spawned := 0
	for _, c := range m.layout.Candidates(vp) {
		if _, live := m.cells[c]; live {
			continue
		}
		if !luck.Present(m.luck, c, m.spawnProbability) {
			continue
		}

		cell := NewCell(c, luck.Baseline(m.luck, c), m.layout.CellBounds(c), m.store)
		if err := m.seed(ctx, cell); err != nil {
			return spawned, err
		}
		if err := cell.OnSpawn(ctx, m.renderer); err != nil {
			return spawned, fmt.Errorf("failed to spawn %s: %w", c, err)
		}
		m.cells[c] = cell
		spawned++
	}
	return spawned, nil
}

func (m *GameMap) seed(ctx context.Context, cell *Cell) error {
	_, ok, err := m.store.Get(ctx, cell.Coord())
	if err != nil {
		return fmt.Errorf("failed to seed %s: %w", cell.Coord(), err)
	}
	if ok {
		return nil
	}
	if err := cell.SetValue(ctx, cell.Baseline()); err != nil {
		return fmt.Errorf("failed to seed %s: %w", cell.Coord(), err)
	}
	return nil
}

// DeleteAll despawns every live cell that is no longer visible and prunes
// its store entry when the value is back at baseline. Visible cells stay.
// Returns the number of cells removed.
func (m *GameMap) DeleteAll(ctx context.Context) (int, error) {
	var errs []error
	removed := 0
	for _, c := range m.sortedCoords() {
		if m.layout.Visible(c, m.viewport) {
			continue
		}
		cell := m.cells[c]
		cell.OnDespawn(m.renderer)
		delete(m.cells, c)
		removed++

		if err := m.prune(ctx, cell); err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

func (m *GameMap) prune(ctx context.Context, cell *Cell) error {
	v, err := cell.CurrentValue(ctx)
	if err != nil {
		return fmt.Errorf("failed to prune %s: %w", cell.Coord(), err)
	}
	if v != cell.Baseline() {
		return nil
	}
	if err := m.store.Remove(ctx, cell.Coord()); err != nil {
		return fmt.Errorf("failed to prune %s: %w", cell.Coord(), err)
	}
	return nil
}

// Cell returns the live cell at c.
func (m *GameMap) Cell(c grid.Coord) (*Cell, bool) {
	cell, ok := m.cells[c]
	return cell, ok
}

// Cells returns the live cells in row-major order.
func (m *GameMap) Cells() []*Cell {
	out := make([]*Cell, 0, len(m.cells))
	for _, c := range m.sortedCoords() {
		out = append(out, m.cells[c])
	}
	return out
}

// Len returns the number of live cells.
func (m *GameMap) Len() int { return len(m.cells) }

// SetValue writes v to the live cell at c and notifies the renderer.
func (m *GameMap) SetValue(ctx context.Context, c grid.Coord, v int) error {
	cell, ok := m.cells[c]
	if !ok {
		return fmt.Errorf("failed to set %s: %w", c, ErrNotSpawned)
	}
	if err := cell.SetValue(ctx, v); err != nil {
		return err
	}
	m.renderer.UpdateCellValue(c, v)
	return nil
}

// Reset clears the store and puts every live cell back at its baseline.
func (m *GameMap) Reset(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	for _, cell := range m.Cells() {
		if err := m.seed(ctx, cell); err != nil {
			return err
		}
		m.renderer.UpdateCellValue(cell.Coord(), cell.Baseline())
	}
	m.log.WithField("live", len(m.cells)).Info("Game map reset")
	return nil
}

func (m *GameMap) sortedCoords() []grid.Coord {
	coords := make([]grid.Coord, 0, len(m.cells))
	for c := range m.cells {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(a, b int) bool { return coords[a].Less(coords[b]) })
	return coords
}
