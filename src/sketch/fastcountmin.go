package sketch

import (
	"fmt"

	"github.com/shayanshabanzadeh/netquery/src/hashing"
)

// fastCountMinSketch implements the three-stage hierarchical Count-Min
// variant of spec §4.2.2: each row's index promotes 8-ary from an 8-bit
// stage-1 counter to a 16-bit stage-2 counter to a 32-bit stage-3 counter
// on strict overflow of the configured thresholds. A stage-1 (or
// stage-2) cell that has never overflowed stores the true count for that
// cell directly; once it has overflowed it is pinned at its threshold
// forever and every subsequent delta for that cell routes entirely to
// the next stage, which keeps Insert and Estimate symmetric without any
// extra per-cell "promoted" flag (spec §4.2.2, original_source's
// fcm_first_layer_sketch.rs for the flat single-layer shape this
// generalizes).
type fastCountMinSketch struct {
	depth  int
	widths [3]int
	t1     uint32
	t2     uint32
	seed   uint32

	l1 [][]uint8
	l2 [][]uint16
	l3 [][]uint32

	heavy map[string]struct{}
}

func newFastCountMinSketch(kind Kind) (*fastCountMinSketch, error) {
	if kind.Depth <= 0 {
		return nil, fmt.Errorf("sketch: fcm depth must be > 0")
	}
	if kind.WidthL1 <= 0 || kind.WidthL2 <= 0 || kind.WidthL3 <= 0 {
		return nil, fmt.Errorf("sketch: fcm widths must all be > 0")
	}
	if kind.ThresholdL1 == 0 || kind.ThresholdL2 == 0 {
		return nil, fmt.Errorf("sketch: fcm thresholds must be > 0")
	}
	f := &fastCountMinSketch{
		depth:  kind.Depth,
		widths: [3]int{kind.WidthL1, kind.WidthL2, kind.WidthL3},
		t1:     kind.ThresholdL1,
		t2:     kind.ThresholdL2,
		seed:   kind.Seed,
		l1:     make([][]uint8, kind.Depth),
		l2:     make([][]uint16, kind.Depth),
		l3:     make([][]uint32, kind.Depth),
		heavy:  make(map[string]struct{}),
	}
	for d := 0; d < kind.Depth; d++ {
		f.l1[d] = make([]uint8, kind.WidthL1)
		f.l2[d] = make([]uint16, kind.WidthL2)
		f.l3[d] = make([]uint32, kind.WidthL3)
	}
	return f, nil
}

func (f *fastCountMinSketch) rowSeed(row int) uint32 { return f.seed + uint32(row) }

// index1 returns the stage-1 index for row d; stage-2 and stage-3
// indices are floor(i1/8) and floor(i1/64), the 8-ary tree of spec
// §4.2.2.
func (f *fastCountMinSketch) index1(row int, key []byte) int {
	return int(hashing.Seeded(f.rowSeed(row), key) % uint32(f.widths[0]))
}

// addRow increments row d's cell for stage-1 index i1 by delta, following
// the promotion chain, and returns the row's post-insert estimate.
func (f *fastCountMinSketch) addRow(d, i1 int, delta uint64) uint32 {
	i2 := i1 / 8
	if i2 >= f.widths[1] {
		i2 = i2 % f.widths[1]
	}
	i3 := i2 / 8
	if i3 >= f.widths[2] {
		i3 = i3 % f.widths[2]
	}

	c1 := uint32(f.l1[d][i1])
	sum1 := c1 + uint32(min64(delta, uint64(^uint32(0))))
	if sum1 < f.t1 {
		f.l1[d][i1] = uint8(sum1)
		return sum1
	}
	f.l1[d][i1] = uint8(f.t1)
	overflow1 := sum1 - f.t1

	c2 := uint32(f.l2[d][i2])
	sum2 := c2 + overflow1
	if sum2 < f.t2 {
		f.l2[d][i2] = uint16(sum2)
		return f.t1 + sum2
	}
	f.l2[d][i2] = uint16(f.t2)
	overflow2 := sum2 - f.t2

	f.l3[d][i3] = saturatingAddU32(f.l3[d][i3], uint64(overflow2))
	return f.t1 + f.t2 + f.l3[d][i3]
}

// queryRow mirrors addRow's promotion path without mutation.
func (f *fastCountMinSketch) queryRow(d, i1 int) uint32 {
	i2 := i1 / 8
	if i2 >= f.widths[1] {
		i2 = i2 % f.widths[1]
	}
	i3 := i2 / 8
	if i3 >= f.widths[2] {
		i3 = i3 % f.widths[2]
	}

	c1 := uint32(f.l1[d][i1])
	if c1 < f.t1 {
		return c1
	}
	c2 := uint32(f.l2[d][i2])
	if c2 < f.t2 {
		return f.t1 + c2
	}
	return f.t1 + f.t2 + f.l3[d][i3]
}

func (f *fastCountMinSketch) Insert(key []byte, delta uint64) {
	allHeavy := true
	for d := 0; d < f.depth; d++ {
		i1 := f.index1(d, key)
		v := f.addRow(d, i1, delta)
		if v <= HeavyHitterThreshold {
			allHeavy = false
		}
	}
	if allHeavy {
		f.heavy[string(key)] = struct{}{}
	}
}

func (f *fastCountMinSketch) Estimate(key []byte) (uint64, error) {
	min := uint32(^uint32(0))
	for d := 0; d < f.depth; d++ {
		i1 := f.index1(d, key)
		if v := f.queryRow(d, i1); v < min {
			min = v
		}
	}
	return uint64(min), nil
}

func (f *fastCountMinSketch) Contains(key []byte) bool {
	v, _ := f.Estimate(key)
	return v > 0
}

func (f *fastCountMinSketch) InsertMembership(key []byte) { f.Insert(key, 1) }

func (f *fastCountMinSketch) Clear() {
	for d := 0; d < f.depth; d++ {
		for i := range f.l1[d] {
			f.l1[d][i] = 0
		}
		for i := range f.l2[d] {
			f.l2[d][i] = 0
		}
		for i := range f.l3[d] {
			f.l3[d][i] = 0
		}
	}
	f.heavy = make(map[string]struct{})
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
