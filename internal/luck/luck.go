// Package luck derives reproducible pseudo-random values from grid
// coordinates. Nothing here holds state: the same seed, coordinate and tag
// always produce the same value, in every process.
package luck

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/gravitas-games/cachegrid/internal/grid"
)

// TagInitialValue keys the baseline token value of a cache.
const TagInitialValue = "initialValue"

// DefaultSpawnProbability is the share of cells that host a cache.
const DefaultSpawnProbability = 0.1

// Source maps a coordinate and tag to a value in [0,1).
type Source interface {
	Luck(c grid.Coord, tag string) float64
}

// Hash is the default Source: xxhash64 over a fixed-width encoding of the
// seed, both indices and the tag.
type Hash struct {
	Seed string
}

// NewHash returns a Hash source for seed.
func NewHash(seed string) Hash {
	return Hash{Seed: seed}
}

// Luck implements Source.
func (h Hash) Luck(c grid.Coord, tag string) float64 {
	return toUnit(h.Sum(c, tag))
}

// Sum returns the raw 64-bit digest for c and tag.
func (h Hash) Sum(c grid.Coord, tag string) uint64 {
	var buf [18]byte
	binary.BigEndian.PutUint64(buf[1:9], uint64(int64(c.I)))
	binary.BigEndian.PutUint64(buf[9:17], uint64(int64(c.J)))

	d := xxhash.New()
	d.WriteString(h.Seed)
	// buf[0] and buf[17] separate the variable-length seed and tag from
	// the indices.
	d.Write(buf[:])
	d.WriteString(tag)
	return d.Sum64()
}

// toUnit keeps the top 53 bits, the precision of a float64 mantissa.
func toUnit(sum uint64) float64 {
	return float64(sum>>11) / (1 << 53)
}

// Present reports whether c hosts a cache.
func Present(src Source, c grid.Coord, probability float64) bool {
	return src.Luck(c, "") < probability
}

// Baseline returns the procedural token value of c: one of 0, 1, 2 or 4.
func Baseline(src Source, c grid.Coord) int {
	v := int(math.Floor(src.Luck(c, TagInitialValue) * 4))
	switch {
	case v < 0:
		return 0
	case v >= 3:
		return 4
	}
	return v
}
