package gamemap

import (
	"context"

	"github.com/gravitas-games/cachegrid/internal/grid"
	"github.com/gravitas-games/cachegrid/internal/store"
)

// Cell is a spawned cache. It owns no canonical state: the coordinate and
// baseline are recomputable and the current value lives in the store, so
// two Cells for the same coordinate are interchangeable.
type Cell struct {
	coord    grid.Coord
	baseline int
	bounds   grid.Bounds
	store    *store.Store
}

// NewCell builds a cell view over s.
func NewCell(c grid.Coord, baseline int, bounds grid.Bounds, s *store.Store) *Cell {
	return &Cell{coord: c, baseline: baseline, bounds: bounds, store: s}
}

func (c *Cell) Coord() grid.Coord   { return c.coord }
func (c *Cell) Baseline() int       { return c.baseline }
func (c *Cell) Bounds() grid.Bounds { return c.bounds }

// CurrentValue returns the stored override, or the baseline when there is
// none.
func (c *Cell) CurrentValue(ctx context.Context) (int, error) {
	v, ok, err := c.store.Get(ctx, c.coord)
	if err != nil {
		return 0, err
	}
	if !ok {
		return c.baseline, nil
	}
	return v, nil
}

// SetValue writes v through to the store.
func (c *Cell) SetValue(ctx context.Context, v int) error {
	return c.store.Set(ctx, c.coord, v)
}

// OnSpawn attaches the cell to r.
func (c *Cell) OnSpawn(ctx context.Context, r Renderer) error {
	v, err := c.CurrentValue(ctx)
	if err != nil {
		return err
	}
	r.ShowCell(c.coord, c.bounds, v)
	return nil
}

// OnDespawn detaches the cell from r.
func (c *Cell) OnDespawn(r Renderer) {
	r.HideCell(c.coord)
}
