// Package hashing provides the seeded byte-string hash used to index
// every sketch in src/sketch (spec §4.2.7, component C1).
package hashing

import "github.com/cespare/xxhash/v2"

// Seeded hashes data under seed, returning a 32-bit index-shaped digest.
// Different seeds must produce near-independent distributions over the
// output space; this is satisfied by mixing the seed into the hash state
// ahead of the payload, the same idiom the upstream Count-Min Sketch uses
// to derive independent rows from a single hash algorithm.
func Seeded(seed uint32, data []byte) uint32 {
	var seedBytes [4]byte
	seedBytes[0] = byte(seed)
	seedBytes[1] = byte(seed >> 8)
	seedBytes[2] = byte(seed >> 16)
	seedBytes[3] = byte(seed >> 24)

	d := xxhash.New()
	d.Write(seedBytes[:])
	d.Write(data)
	return uint32(d.Sum64())
}

// SeededString is a convenience wrapper over Seeded for string keys.
func SeededString(seed uint32, key string) uint32 {
	return Seeded(seed, []byte(key))
}

// SeededMod hashes data under seed and reduces it to [0, mod).
// mod must be > 0.
func SeededMod(seed uint32, data []byte, mod uint32) uint32 {
	return Seeded(seed, data) % mod
}
