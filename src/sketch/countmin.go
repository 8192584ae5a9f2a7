package sketch

import (
	"fmt"

	"github.com/shayanshabanzadeh/netquery/src/hashing"
)

// countMinSketch is the classic Count-Min Sketch (spec §4.2.1): depth
// rows of width 32-bit counters, min-across-rows estimate, and a
// heavy-hitter candidate set fed by keys exceeding HeavyHitterThreshold
// on every row after an insert. Grounded on the teacher's
// src/redis/countmin_sketch.go, generalized from a fixed string-keyed
// frequency counter into the spec's byte-key Sketch facade.
type countMinSketch struct {
	depth    int
	width    int
	seed     uint32
	counters [][]uint32
	heavy    map[string]struct{}
}

func newCountMinSketch(kind Kind) (*countMinSketch, error) {
	if kind.Depth <= 0 {
		return nil, fmt.Errorf("sketch: cms depth must be > 0")
	}
	if kind.MemoryBytes <= 0 {
		return nil, fmt.Errorf("sketch: cms memory_bytes must be > 0")
	}
	width := kind.MemoryBytes / (4 * kind.Depth)
	if width <= 0 {
		return nil, fmt.Errorf("sketch: cms width computed as %d (memory_bytes=%d, depth=%d)", width, kind.MemoryBytes, kind.Depth)
	}
	counters := make([][]uint32, kind.Depth)
	for i := range counters {
		counters[i] = make([]uint32, width)
	}
	return &countMinSketch{
		depth:    kind.Depth,
		width:    width,
		seed:     kind.Seed,
		counters: counters,
		heavy:    make(map[string]struct{}),
	}, nil
}

func (c *countMinSketch) rowSeed(row int) uint32 { return c.seed + uint32(row) }

func (c *countMinSketch) Insert(key []byte, delta uint64) {
	allHeavy := true
	for r := 0; r < c.depth; r++ {
		idx := hashing.Seeded(c.rowSeed(r), key) % uint32(c.width)
		next := saturatingAddU32(c.counters[r][idx], delta)
		c.counters[r][idx] = next
		if next <= HeavyHitterThreshold {
			allHeavy = false
		}
	}
	if allHeavy {
		c.heavy[string(key)] = struct{}{}
	}
}

func (c *countMinSketch) Estimate(key []byte) (uint64, error) {
	min := uint32(^uint32(0))
	for r := 0; r < c.depth; r++ {
		idx := hashing.Seeded(c.rowSeed(r), key) % uint32(c.width)
		if v := c.counters[r][idx]; v < min {
			min = v
		}
	}
	return uint64(min), nil
}

func (c *countMinSketch) Contains(key []byte) bool {
	v, _ := c.Estimate(key)
	return v > 0
}

func (c *countMinSketch) InsertMembership(key []byte) { c.Insert(key, 1) }

func (c *countMinSketch) Clear() {
	for r := range c.counters {
		for i := range c.counters[r] {
			c.counters[r][i] = 0
		}
	}
	c.heavy = make(map[string]struct{})
}

// HeavyHitters returns the keys currently tracked as heavy-hitter
// candidates. Exposed for tests and diagnostic tooling; not part of the
// Sketch interface.
func (c *countMinSketch) HeavyHitters() []string {
	out := make([]string, 0, len(c.heavy))
	for k := range c.heavy {
		out = append(out, k)
	}
	return out
}
