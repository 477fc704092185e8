package gamemap

import "github.com/gravitas-games/cachegrid/internal/grid"

// Renderer observes cache lifecycle and value changes. Nothing it returns
// feeds back into game state.
type Renderer interface {
	ShowCell(c grid.Coord, bounds grid.Bounds, value int)
	HideCell(c grid.Coord)
	UpdateCellValue(c grid.Coord, value int)
}

// NopRenderer discards every call.
type NopRenderer struct{}

func (NopRenderer) ShowCell(grid.Coord, grid.Bounds, int) {}
func (NopRenderer) HideCell(grid.Coord)                   {}
func (NopRenderer) UpdateCellValue(grid.Coord, int)       {}
