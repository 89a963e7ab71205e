package hash

import (
	murmur3 "github.com/spaolacci/murmur3"
)

// Seed for the 128-bit murmur hash. Filters persisted under one seed are
// unreadable under another, so this never changes.
const Seed uint32 = 0

// ProbeSeeds returns the two base hashes of data.
//
// The digest is viewed as four little-endian 32-bit words and words 0 and 2
// are widened to 64 bits; existing filters were built with exactly this pair.
func ProbeSeeds(data []byte) (a uint64, b uint64) {
	h1, h2 := murmur3.Sum128WithSeed(data, Seed)
	return uint64(uint32(h1)), uint64(uint32(h2))
}

// Position returns probe j, (a + j*b) mod bitLength, in wrapping uint64
// arithmetic.
func Position(a, b, j, bitLength uint64) uint64 {
	return (a + j*b) % bitLength
}

// ProbePositions returns the hashTimes bit positions derived from (a, b).
func ProbePositions(a, b uint64, hashTimes int, bitLength uint64) []uint64 {
	positions := make([]uint64, hashTimes)
	for j := range positions {
		positions[j] = Position(a, b, uint64(j), bitLength)
	}
	return positions
}
