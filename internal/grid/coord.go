package grid

import "fmt"

// Coord identifies a grid cell. I runs along latitude (north), J along
// longitude (east). It is comparable and used directly as a map key.
type Coord struct {
	I int `json:"i"`
	J int `json:"j"`
}

// Add returns c+o.
func (c Coord) Add(o Coord) Coord { return Coord{I: c.I + o.I, J: c.J + o.J} }

func (c Coord) String() string { return fmt.Sprintf("%d,%d", c.I, c.J) }

// Less orders coordinates row-major.
func (c Coord) Less(o Coord) bool {
	if c.I != o.I {
		return c.I < o.I
	}
	return c.J < o.J
}

// LatLng is a point in world space, in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Offset moves the point by whole tiles.
func (p LatLng) Offset(dLat, dLng, tile float64) LatLng {
	return LatLng{Lat: p.Lat + dLat*tile, Lng: p.Lng + dLng*tile}
}

// Bounds is an axis-aligned world-space rectangle.
type Bounds struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
}

// Center returns the midpoint of the rectangle.
func (b Bounds) Center() LatLng {
	return LatLng{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lng: (b.SouthWest.Lng + b.NorthEast.Lng) / 2,
	}
}

// Empty reports whether the rectangle has no area.
func (b Bounds) Empty() bool {
	return b.NorthEast.Lat <= b.SouthWest.Lat || b.NorthEast.Lng <= b.SouthWest.Lng
}

// Overlaps reports whether the intersection of b and o has positive area.
// Rectangles that only share an edge do not overlap.
func (b Bounds) Overlaps(o Bounds) bool {
	if b.Empty() || o.Empty() {
		return false
	}
	return b.SouthWest.Lat < o.NorthEast.Lat && o.SouthWest.Lat < b.NorthEast.Lat &&
		b.SouthWest.Lng < o.NorthEast.Lng && o.SouthWest.Lng < b.NorthEast.Lng
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}

// Viewport is the region a host currently shows, given by its corners.
type Viewport struct {
	NorthWest LatLng `json:"north_west"`
	SouthEast LatLng `json:"south_east"`
}

// Bounds normalises the viewport into a south-west/north-east rectangle.
func (v Viewport) Bounds() Bounds {
	return Bounds{
		SouthWest: LatLng{Lat: min(v.NorthWest.Lat, v.SouthEast.Lat), Lng: min(v.NorthWest.Lng, v.SouthEast.Lng)},
		NorthEast: LatLng{Lat: max(v.NorthWest.Lat, v.SouthEast.Lat), Lng: max(v.NorthWest.Lng, v.SouthEast.Lng)},
	}
}
