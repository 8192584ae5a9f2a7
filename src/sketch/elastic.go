package sketch

import (
	"fmt"

	"github.com/shayanshabanzadeh/netquery/src/hashing"
)

// elasticSketch is the Elastic Sketch (spec §4.2.3): a light Count-Min
// part that every insert always updates, plus a heavy counter array that
// additionally accumulates deltas for keys that have crossed the
// heavy-hitter threshold on every light row. The heavy array is indexed
// by a hash-based numeric projection of the key modulo width, rather
// than the original's raw reinterpretation of a fixed 4-byte flow key,
// since keys here are arbitrary-length byte strings
// (original_source's elastic_sketch.rs).
type elasticSketch struct {
	depth int
	width int
	seed  uint32
	light [][]uint32
	heavy []uint32

	heavyKeys map[string]struct{}
}

func newElasticSketch(kind Kind) (*elasticSketch, error) {
	if kind.Depth <= 0 {
		return nil, fmt.Errorf("sketch: elastic depth must be > 0")
	}
	if kind.Width <= 0 {
		return nil, fmt.Errorf("sketch: elastic width must be > 0")
	}
	light := make([][]uint32, kind.Depth)
	for i := range light {
		light[i] = make([]uint32, kind.Width)
	}
	return &elasticSketch{
		depth:     kind.Depth,
		width:     kind.Width,
		seed:      kind.Seed,
		light:     light,
		heavy:     make([]uint32, kind.Width),
		heavyKeys: make(map[string]struct{}),
	}, nil
}

func (e *elasticSketch) rowSeed(row int) uint32 { return e.seed + uint32(row) }

// heavyIndex is the numeric projection of key used to address the heavy
// counter array, generalizing the original's raw 4-byte key reinterpret
// to arbitrary-length keys.
func (e *elasticSketch) heavyIndex(key []byte) int {
	return int(hashing.Seeded(e.seed+uint32(e.depth), key) % uint32(e.width))
}

func (e *elasticSketch) lightInsert(key []byte, delta uint64) uint32 {
	min := uint32(^uint32(0))
	for r := 0; r < e.depth; r++ {
		idx := hashing.Seeded(e.rowSeed(r), key) % uint32(e.width)
		next := saturatingAddU32(e.light[r][idx], delta)
		e.light[r][idx] = next
		if next < min {
			min = next
		}
	}
	return min
}

func (e *elasticSketch) lightEstimate(key []byte) uint32 {
	min := uint32(^uint32(0))
	for r := 0; r < e.depth; r++ {
		idx := hashing.Seeded(e.rowSeed(r), key) % uint32(e.width)
		if v := e.light[r][idx]; v < min {
			min = v
		}
	}
	return min
}

func (e *elasticSketch) Insert(key []byte, delta uint64) {
	lightMin := e.lightInsert(key, delta)
	ks := string(key)
	_, wasHeavy := e.heavyKeys[ks]
	if wasHeavy || lightMin > HeavyHitterThreshold {
		idx := e.heavyIndex(key)
		e.heavy[idx] = saturatingAddU32(e.heavy[idx], delta)
		e.heavyKeys[ks] = struct{}{}
	}
}

func (e *elasticSketch) Estimate(key []byte) (uint64, error) {
	total := uint64(e.lightEstimate(key))
	if _, ok := e.heavyKeys[string(key)]; ok {
		total += uint64(e.heavy[e.heavyIndex(key)])
	}
	return total, nil
}

func (e *elasticSketch) Contains(key []byte) bool {
	v, _ := e.Estimate(key)
	return v > 0
}

func (e *elasticSketch) InsertMembership(key []byte) { e.Insert(key, 1) }

func (e *elasticSketch) Clear() {
	for r := range e.light {
		for i := range e.light[r] {
			e.light[r][i] = 0
		}
	}
	for i := range e.heavy {
		e.heavy[i] = 0
	}
	e.heavyKeys = make(map[string]struct{})
}

// HeavyHitters returns the keys currently tracked as heavy-hitter
// candidates. Exposed for tests and diagnostic tooling; not part of the
// Sketch interface.
func (e *elasticSketch) HeavyHitters() []string {
	out := make([]string, 0, len(e.heavyKeys))
	for k := range e.heavyKeys {
		out = append(out, k)
	}
	return out
}
