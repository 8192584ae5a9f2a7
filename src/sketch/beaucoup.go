package sketch

import (
	"fmt"
	"math"
	"math/bits"
	"math/rand"

	"github.com/shayanshabanzadeh/netquery/src/hashing"
)

// beauCoupSketch is the BeauCoup coupon-collector cardinality sketch
// (spec §4.2.5): m rows, each a bitmap of w coupons. Every insert for a
// key touches d rows, chosen by d independently seeded hashes of the
// key, and sets up to max_per_packet coupons in each from a PRNG stream
// seeded at construction. Estimate takes the row with the most coupons
// collected among the key's d candidate rows and inverts the coupon
// collector's expectation; rows are shared across keys by design, so a
// key's estimate reflects the cardinality of whatever population hashes
// onto its candidate rows (original_source's beaucoup.rs).
type beauCoupSketch struct {
	rows    int
	width   int
	d       int
	maxCp   int
	seed    uint32
	rng     *rand.Rand
	bitmaps [][]uint64
}

func newBeauCoupSketch(kind Kind) (*beauCoupSketch, error) {
	if kind.BCRows <= 0 {
		return nil, fmt.Errorf("sketch: beaucoup rows must be > 0")
	}
	if kind.BCCoupons <= 0 {
		return nil, fmt.Errorf("sketch: beaucoup coupons must be > 0")
	}
	if kind.BCD <= 0 {
		return nil, fmt.Errorf("sketch: beaucoup d must be > 0")
	}
	maxCp := kind.BCMax
	if maxCp <= 0 {
		maxCp = 1
	}
	words := (kind.BCCoupons + 63) / 64
	bitmaps := make([][]uint64, kind.BCRows)
	for i := range bitmaps {
		bitmaps[i] = make([]uint64, words)
	}
	return &beauCoupSketch{
		rows:    kind.BCRows,
		width:   kind.BCCoupons,
		d:       kind.BCD,
		maxCp:   maxCp,
		seed:    kind.Seed,
		rng:     rand.New(rand.NewSource(int64(kind.Seed) + 1)),
		bitmaps: bitmaps,
	}, nil
}

func (b *beauCoupSketch) rowsFor(key []byte) []int {
	out := make([]int, b.d)
	for i := 0; i < b.d; i++ {
		out[i] = int(hashing.Seeded(b.seed+uint32(i), key) % uint32(b.rows))
	}
	return out
}

func (b *beauCoupSketch) popcount(row int) int {
	n := 0
	for _, w := range b.bitmaps[row] {
		n += bits.OnesCount64(w)
	}
	return n
}

func (b *beauCoupSketch) setCoupon(row, coupon int) {
	b.bitmaps[row][coupon/64] |= 1 << (uint(coupon) % 64)
}

func (b *beauCoupSketch) InsertMembership(key []byte) {
	for _, row := range b.rowsFor(key) {
		for i := 0; i < b.maxCp; i++ {
			b.setCoupon(row, b.rng.Intn(b.width))
		}
	}
}

func (b *beauCoupSketch) Insert(key []byte, delta uint64) {
	for i := uint64(0); i < delta; i++ {
		b.InsertMembership(key)
	}
}

// Estimate implements spec §4.2.5's inversion: k_max is the largest
// popcount among the key's d candidate rows; 0 coupons or a fully
// saturated row both report 0, since the collector estimate is undefined
// (respectively trivial and infinite) at those extremes.
func (b *beauCoupSketch) Estimate(key []byte) (uint64, error) {
	kmax := 0
	for _, row := range b.rowsFor(key) {
		if k := b.popcount(row); k > kmax {
			kmax = k
		}
	}
	if kmax == 0 || kmax >= b.width {
		return 0, nil
	}
	est := float64(b.width) * math.Log(float64(b.width)/float64(b.width-kmax))
	return uint64(math.Floor(est)), nil
}

func (b *beauCoupSketch) Contains(key []byte) bool {
	for _, row := range b.rowsFor(key) {
		if b.popcount(row) > 0 {
			return true
		}
	}
	return false
}

func (b *beauCoupSketch) Clear() {
	for i := range b.bitmaps {
		for j := range b.bitmaps[i] {
			b.bitmaps[i][j] = 0
		}
	}
}
