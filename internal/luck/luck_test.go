package luck

import (
	"math"
	"testing"

	"github.com/gravitas-games/cachegrid/internal/grid"
)

type fixed map[string]float64

func (f fixed) Luck(c grid.Coord, tag string) float64 {
	return f[c.String()+"/"+tag]
}

func TestHashDeterministic(t *testing.T) {
	a := NewHash("world")
	b := NewHash("world")
	for i := -20; i <= 20; i++ {
		for j := -20; j <= 20; j++ {
			c := grid.Coord{I: i, J: j}
			if a.Luck(c, "") != b.Luck(c, "") {
				t.Fatalf("presence luck differs for %v", c)
			}
			if a.Luck(c, TagInitialValue) != b.Luck(c, TagInitialValue) {
				t.Fatalf("baseline luck differs for %v", c)
			}
		}
	}
}

// Worlds must look the same after a restart or an upgrade, so the digests
// are pinned.
func TestHashGolden(t *testing.T) {
	tests := []struct {
		seed string
		c    grid.Coord
		tag  string
		want uint64
	}{
		{"", grid.Coord{I: 0, J: 0}, "", 0x41b4d1c910c1a58d},
		{"", grid.Coord{I: 1, J: 12}, "", 0x93ec8c207063d0d9},
		{"", grid.Coord{I: 11, J: 2}, "", 0xb5eabf949f18b193},
		{"", grid.Coord{I: math.MaxInt64, J: math.MinInt64}, "", 0xfb88b65b20f10c5b},
		{"", grid.Coord{I: -1, J: -1}, TagInitialValue, 0xa19ef210313d846b},
		{"world", grid.Coord{I: 3, J: -4}, TagInitialValue, 0x01f9522687dc4a67},
	}
	for _, tt := range tests {
		if got := NewHash(tt.seed).Sum(tt.c, tt.tag); got != tt.want {
			t.Errorf("Sum(%q, %v, %q) = %#016x, want %#016x", tt.seed, tt.c, tt.tag, got, tt.want)
		}
	}
}

func TestHashRange(t *testing.T) {
	h := NewHash("")
	coords := []grid.Coord{
		{I: 0, J: 0},
		{I: math.MaxInt64, J: math.MinInt64},
		{I: math.MinInt64, J: math.MaxInt64},
		{I: -1, J: -1},
	}
	for _, c := range coords {
		for _, tag := range []string{"", TagInitialValue} {
			v := h.Luck(c, tag)
			if v < 0 || v >= 1 {
				t.Errorf("Luck(%v, %q) = %v out of [0,1)", c, tag, v)
			}
		}
	}
}

func TestHashDistinguishesKeys(t *testing.T) {
	h := NewHash("")
	pairs := [][2]grid.Coord{
		{{I: 1, J: 12}, {I: 11, J: 2}},
		{{I: 1, J: 2}, {I: 12, J: 0}},
		{{I: -1, J: 2}, {I: 1, J: -2}},
		{{I: math.MaxInt64, J: 0}, {I: math.MinInt64, J: 0}},
		{{I: 0, J: 1}, {I: 1, J: 0}},
	}
	for _, p := range pairs {
		if h.Sum(p[0], "") == h.Sum(p[1], "") {
			t.Errorf("digest collision between %v and %v", p[0], p[1])
		}
	}
	if h.Sum(grid.Coord{}, "") == h.Sum(grid.Coord{}, TagInitialValue) {
		t.Error("tag must change the digest")
	}
	if NewHash("a").Sum(grid.Coord{}, "") == NewHash("b").Sum(grid.Coord{}, "") {
		t.Error("seed must change the digest")
	}
}

func TestPresenceRate(t *testing.T) {
	h := NewHash("")
	present := 0
	total := 0
	for i := -50; i < 50; i++ {
		for j := -50; j < 50; j++ {
			total++
			if Present(h, grid.Coord{I: i, J: j}, DefaultSpawnProbability) {
				present++
			}
		}
	}
	rate := float64(present) / float64(total)
	if rate < 0.08 || rate > 0.12 {
		t.Fatalf("presence rate %.3f far from %.2f", rate, DefaultSpawnProbability)
	}
}

func TestBaselineMapping(t *testing.T) {
	tests := []struct {
		luck float64
		want int
	}{
		{0, 0},
		{0.24, 0},
		{0.25, 1},
		{0.5, 2},
		{0.74, 2},
		{0.75, 4},
		{0.999, 4},
	}
	for _, tt := range tests {
		src := fixed{"0,0/" + TagInitialValue: tt.luck}
		if got := Baseline(src, grid.Coord{}); got != tt.want {
			t.Errorf("Baseline(luck=%v) = %d, want %d", tt.luck, got, tt.want)
		}
	}
}

func TestBaselineValues(t *testing.T) {
	h := NewHash("")
	seen := map[int]int{}
	for i := 0; i < 60; i++ {
		for j := 0; j < 60; j++ {
			seen[Baseline(h, grid.Coord{I: i, J: j})]++
		}
	}
	for v := range seen {
		if v != 0 && v != 1 && v != 2 && v != 4 {
			t.Fatalf("unexpected baseline %d", v)
		}
	}
	for _, v := range []int{0, 1, 2, 4} {
		if seen[v] == 0 {
			t.Errorf("baseline %d never produced", v)
		}
	}
}

func TestPresentThreshold(t *testing.T) {
	src := fixed{"3,4/": 0.05}
	if !Present(src, grid.Coord{I: 3, J: 4}, 0.1) {
		t.Error("0.05 < 0.1 should be present")
	}
	if Present(src, grid.Coord{I: 3, J: 4}, 0.05) {
		t.Error("threshold is exclusive")
	}
}
