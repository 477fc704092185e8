package grid

import "math"

// Visible reports whether cell c overlaps the viewport.
func (l Layout) Visible(c Coord, vp Viewport) bool {
	return l.CellBounds(c).Overlaps(vp.Bounds())
}

// MaxSpan is the largest number of cell indices Candidates scans per axis.
const MaxSpan = 4096

// maxIndex keeps indices exactly representable in a float64 and far from
// int overflow.
const maxIndex = 1 << 52

// Candidates returns every coordinate whose cell overlaps the viewport,
// row-major (I outer, J inner). Viewports spanning more than MaxSpan cells
// on either axis, or reaching past the representable index range, yield
// nil.
func (l Layout) Candidates(vp Viewport) []Coord {
	b := vp.Bounds()
	if b.Empty() || l.TileDegrees <= 0 {
		return nil
	}

	iMin, iMax, ok := l.indexRange(b.SouthWest.Lat, b.NorthEast.Lat, l.Origin.Lat)
	if !ok {
		return nil
	}
	jMin, jMax, ok := l.indexRange(b.SouthWest.Lng, b.NorthEast.Lng, l.Origin.Lng)
	if !ok {
		return nil
	}

	out := make([]Coord, 0, (iMax-iMin+1)*(jMax-jMin+1))
	for i := iMin; i <= iMax; i++ {
		for j := jMin; j <= jMax; j++ {
			out = append(out, Coord{I: i, J: j})
		}
	}
	return out
}

// indexRange converts [lo, hi] on one axis into the inclusive range of cell
// indices whose span overlaps it with positive length.
func (l Layout) indexRange(lo, hi, origin float64) (int, int, bool) {
	first := math.Floor((lo - origin) / l.TileDegrees)
	last := math.Ceil((hi-origin)/l.TileDegrees) - 1
	// NaN fails every comparison and lands here too.
	if !(first >= -maxIndex && last <= maxIndex && last >= first && last-first < MaxSpan) {
		return 0, 0, false
	}
	return int(first), int(last), true
}

// ViewportAround returns a square viewport reaching radius tiles from p in
// every direction.
func (l Layout) ViewportAround(p LatLng, radius int) Viewport {
	r := float64(radius) * l.TileDegrees
	return Viewport{
		NorthWest: LatLng{Lat: p.Lat + r, Lng: p.Lng - r},
		SouthEast: LatLng{Lat: p.Lat - r, Lng: p.Lng + r},
	}
}
