package grid

import "math"

// Default layout: the classroom origin and 1e-4 degree tiles.
const (
	DefaultOriginLat   = 36.997936938057016
	DefaultOriginLng   = -122.05703507501151
	DefaultTileDegrees = 1e-4
)

// Layout maps grid coordinates onto world space.
type Layout struct {
	Origin      LatLng
	TileDegrees float64
}

// DefaultLayout returns the layout used when nothing is configured.
func DefaultLayout() Layout {
	return Layout{
		Origin:      LatLng{Lat: DefaultOriginLat, Lng: DefaultOriginLng},
		TileDegrees: DefaultTileDegrees,
	}
}

// CellBounds returns the world-space rectangle covered by c.
func (l Layout) CellBounds(c Coord) Bounds {
	return Bounds{
		SouthWest: LatLng{
			Lat: l.Origin.Lat + float64(c.I)*l.TileDegrees,
			Lng: l.Origin.Lng + float64(c.J)*l.TileDegrees,
		},
		NorthEast: LatLng{
			Lat: l.Origin.Lat + float64(c.I+1)*l.TileDegrees,
			Lng: l.Origin.Lng + float64(c.J+1)*l.TileDegrees,
		},
	}
}

// CellCenter returns the midpoint of cell c.
func (l Layout) CellCenter(c Coord) LatLng {
	return l.CellBounds(c).Center()
}

// CellAt returns the cell containing p. Points on a shared edge belong to
// the cell to the north/east.
func (l Layout) CellAt(p LatLng) Coord {
	return Coord{
		I: int(math.Floor((p.Lat - l.Origin.Lat) / l.TileDegrees)),
		J: int(math.Floor((p.Lng - l.Origin.Lng) / l.TileDegrees)),
	}
}

// StartPosition is the point a new player spawns at: half a tile
// south-west of the origin, the centre of cell (-1,-1).
func (l Layout) StartPosition() LatLng {
	return l.Origin.Offset(-0.5, -0.5, l.TileDegrees)
}

// WithinReach reports whether p is within radius tiles of the centre of c
// on both axes.
func (l Layout) WithinReach(p LatLng, c Coord, radius float64) bool {
	center := l.CellCenter(c)
	limit := radius * l.TileDegrees
	return math.Abs(center.Lat-p.Lat) <= limit && math.Abs(center.Lng-p.Lng) <= limit
}
