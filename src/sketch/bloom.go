package sketch

import (
	"fmt"

	"github.com/shayanshabanzadeh/netquery/src/hashing"
)

// bloomSketch is a standard Bloom filter: m bits, k independently seeded
// hash functions. Membership-only; it has no notion of a frequency count,
// so Estimate always fails with ErrEstimateUnsupported (spec §4.2.4,
// §4.6). Grounded in shape on the corpus's counting Bloom filter
// (_examples/other_examples bloom.go) simplified to a plain bitset since
// this variant never needs decrement/delete.
type bloomSketch struct {
	bits   []uint64
	size   uint32
	hashes int
	seed   uint32
}

func newBloomSketch(kind Kind) (*bloomSketch, error) {
	if kind.BFSize <= 0 {
		return nil, fmt.Errorf("sketch: bloom size must be > 0")
	}
	if kind.BFHashes <= 0 {
		return nil, fmt.Errorf("sketch: bloom hashes must be > 0")
	}
	words := (kind.BFSize + 63) / 64
	return &bloomSketch{
		bits:   make([]uint64, words),
		size:   uint32(kind.BFSize),
		hashes: kind.BFHashes,
		seed:   kind.Seed,
	}, nil
}

func (b *bloomSketch) positions(key []byte) []uint32 {
	out := make([]uint32, b.hashes)
	for i := 0; i < b.hashes; i++ {
		out[i] = hashing.Seeded(b.seed+uint32(i), key) % b.size
	}
	return out
}

func (b *bloomSketch) set(pos uint32) {
	b.bits[pos/64] |= 1 << (pos % 64)
}

func (b *bloomSketch) isSet(pos uint32) bool {
	return b.bits[pos/64]&(1<<(pos%64)) != 0
}

func (b *bloomSketch) InsertMembership(key []byte) {
	for _, pos := range b.positions(key) {
		b.set(pos)
	}
}

// Insert treats any nonzero delta as a membership insert: Bloom filters
// have no frequency axis, so repeated inserts of the same key are
// idempotent (spec §4.2.4).
func (b *bloomSketch) Insert(key []byte, delta uint64) {
	if delta > 0 {
		b.InsertMembership(key)
	}
}

func (b *bloomSketch) Contains(key []byte) bool {
	for _, pos := range b.positions(key) {
		if !b.isSet(pos) {
			return false
		}
	}
	return true
}

func (b *bloomSketch) Estimate(key []byte) (uint64, error) {
	return 0, ErrEstimateUnsupported
}

func (b *bloomSketch) Clear() {
	for i := range b.bits {
		b.bits[i] = 0
	}
}
