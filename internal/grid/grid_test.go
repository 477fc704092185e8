package grid

import (
	"math"
	"testing"
)

func unitLayout() Layout {
	return Layout{Origin: LatLng{}, TileDegrees: 1}
}

func TestCandidatesRowMajor(t *testing.T) {
	l := unitLayout()
	vp := Viewport{
		NorthWest: LatLng{Lat: 2, Lng: -1},
		SouthEast: LatLng{Lat: 0, Lng: 1},
	}

	got := l.Candidates(vp)
	want := []Coord{{0, -1}, {0, 0}, {1, -1}, {1, 0}}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCandidatesPartialTiles(t *testing.T) {
	l := unitLayout()
	// Covers fractions of cells -1..1 on both axes.
	vp := Viewport{
		NorthWest: LatLng{Lat: 1.5, Lng: -0.5},
		SouthEast: LatLng{Lat: -0.5, Lng: 1.5},
	}
	got := l.Candidates(vp)
	if len(got) != 9 {
		t.Fatalf("expected 9 candidates, got %d: %v", len(got), got)
	}
	if got[0] != (Coord{-1, -1}) || got[8] != (Coord{1, 1}) {
		t.Errorf("unexpected range %v..%v", got[0], got[8])
	}
	for _, c := range got {
		if !l.Visible(c, vp) {
			t.Errorf("candidate %v should be visible", c)
		}
	}
}

func TestCandidatesDegenerateViewport(t *testing.T) {
	l := unitLayout()
	vp := Viewport{NorthWest: LatLng{Lat: 1, Lng: 1}, SouthEast: LatLng{Lat: 1, Lng: 3}}
	if got := l.Candidates(vp); len(got) != 0 {
		t.Fatalf("expected no candidates for zero-height viewport, got %v", got)
	}
}

func TestCandidatesSpanLimit(t *testing.T) {
	l := unitLayout()
	strip := func(width float64) Viewport {
		return Viewport{NorthWest: LatLng{Lat: 1, Lng: 0}, SouthEast: LatLng{Lat: 0, Lng: width}}
	}
	if got := l.Candidates(strip(MaxSpan)); len(got) != MaxSpan {
		t.Fatalf("expected %d candidates at the limit, got %d", MaxSpan, len(got))
	}
	if got := l.Candidates(strip(MaxSpan + 1)); got != nil {
		t.Fatalf("expected nil past the limit, got %d candidates", len(got))
	}

	tests := []struct {
		name   string
		layout Layout
		vp     Viewport
	}{
		{"tiny tiles", Layout{TileDegrees: 1e-9}, Viewport{
			NorthWest: LatLng{Lat: 1, Lng: 0},
			SouthEast: LatLng{Lat: 0, Lng: 1},
		}},
		{"huge coordinates", unitLayout(), Viewport{
			NorthWest: LatLng{Lat: 1<<61 + 1024, Lng: 0},
			SouthEast: LatLng{Lat: 1 << 61, Lng: 1},
		}},
		{"infinite", unitLayout(), Viewport{
			NorthWest: LatLng{Lat: math.Inf(1), Lng: 0},
			SouthEast: LatLng{Lat: 0, Lng: 1},
		}},
		{"nan", unitLayout(), Viewport{
			NorthWest: LatLng{Lat: math.NaN(), Lng: 0},
			SouthEast: LatLng{Lat: 0, Lng: 1},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.layout.Candidates(tt.vp); got != nil {
				t.Fatalf("expected nil, got %d candidates", len(got))
			}
		})
	}
}

func TestCandidatesMatchVisible(t *testing.T) {
	l := DefaultLayout()
	vp := l.ViewportAround(l.StartPosition(), 2)

	got := l.Candidates(vp)
	if len(got) != 25 {
		t.Fatalf("expected 25 candidates, got %d", len(got))
	}
	seen := make(map[Coord]bool, len(got))
	for _, c := range got {
		seen[c] = true
	}
	for i := -5; i <= 3; i++ {
		for j := -5; j <= 3; j++ {
			c := Coord{I: i, J: j}
			if l.Visible(c, vp) != seen[c] {
				t.Errorf("cell %v: visible=%v candidate=%v", c, l.Visible(c, vp), seen[c])
			}
		}
	}
}

func TestVisibleEdgeContact(t *testing.T) {
	l := unitLayout()
	vp := Viewport{NorthWest: LatLng{Lat: 1, Lng: 0}, SouthEast: LatLng{Lat: 0, Lng: 1}}

	tests := []struct {
		name string
		c    Coord
		want bool
	}{
		{"inside", Coord{0, 0}, true},
		{"shares north edge", Coord{1, 0}, false},
		{"shares west edge", Coord{0, -1}, false},
		{"far away", Coord{10, 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.Visible(tt.c, vp); got != tt.want {
				t.Errorf("Visible(%v) = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}

func TestCellAtNegative(t *testing.T) {
	l := unitLayout()
	tests := []struct {
		p    LatLng
		want Coord
	}{
		{LatLng{0.5, 0.5}, Coord{0, 0}},
		{LatLng{-0.5, -0.5}, Coord{-1, -1}},
		{LatLng{-1, 2.25}, Coord{-1, 2}},
	}
	for _, tt := range tests {
		if got := l.CellAt(tt.p); got != tt.want {
			t.Errorf("CellAt(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestStartPositionCentred(t *testing.T) {
	l := unitLayout()
	p := l.StartPosition()
	if p != l.CellCenter(Coord{-1, -1}) {
		t.Fatalf("start %v is not the centre of cell (-1,-1)", p)
	}
}

func TestWithinReach(t *testing.T) {
	l := unitLayout()
	player := l.CellCenter(Coord{0, 0})

	tests := []struct {
		name string
		c    Coord
		want bool
	}{
		{"same cell", Coord{0, 0}, true},
		{"three east", Coord{0, 3}, true},
		{"diagonal corner", Coord{3, -3}, true},
		{"four north", Coord{4, 0}, false},
		{"four west", Coord{1, -4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.WithinReach(player, tt.c, 3); got != tt.want {
				t.Errorf("WithinReach(%v) = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}

func TestCoordLess(t *testing.T) {
	if !(Coord{0, 5}).Less(Coord{1, -5}) {
		t.Error("row should dominate ordering")
	}
	if !(Coord{1, -5}).Less(Coord{1, 0}) {
		t.Error("column should break ties")
	}
	if (Coord{1, 1}).Less(Coord{1, 1}) {
		t.Error("equal coords are not less")
	}
}
