// Package filter implements the Bloom filter engine: sizing, the packed bit
// array, and the add/check operations over it.
//
// Bit p of a filter lives in byte p>>3 under mask 1<<(p%8). Bits are only
// ever set, never cleared, so a filter never reports a false negative.
package filter

import (
	"errors"
	"math"

	bitset "github.com/bits-and-blooms/bitset"
	hash "github.com/brown-csci1270/bloomdb/pkg/hash"
	memory "github.com/brown-csci1270/bloomdb/pkg/memory"
)

// ErrInvalidParams is returned for a non-positive capacity or an error rate
// outside (0, 1).
var ErrInvalidParams = errors.New("invalid filter parameters")

// Bytes charged per filter on top of its storage.
const HeaderSize int64 = 32

// Largest bit length a filter can be created with.
const MaxBitLength = uint64(memory.MaxAlloc) * 8

// Filter is a fixed-size Bloom filter.
type Filter struct {
	hashTimes int              // Probe rounds per item.
	bitLength uint64           // Number of addressable bits.
	bits      []byte           // Packed storage, StorageBytes(bitLength) long.
	alloc     memory.Allocator // Owner of bits.
}

// Params computes the bit length and number of hash rounds needed to hold
// elemCount items with a false-positive rate of at most errRate.
//
//	bitLength = ceil(-(n * ln p) / (ln 2)^2)
//	hashTimes = ceil(-ln p / ln 2)
func Params(elemCount int64, errRate float64) (bitLength uint64, hashTimes int, err error) {
	if elemCount <= 0 || !(errRate > 0 && errRate < 1) {
		return 0, 0, ErrInvalidParams
	}
	bits := math.Ceil(-(float64(elemCount) * math.Log(errRate)) / (math.Ln2 * math.Ln2))
	if math.IsInf(bits, 0) || bits > float64(MaxBitLength) {
		return 0, 0, memory.ErrOutOfMemory
	}
	hashTimes = int(math.Ceil(-(math.Log(errRate) / math.Ln2)))
	return uint64(bits), hashTimes, nil
}

// StorageBytes returns the number of bytes backing bitLength bits.
func StorageBytes(bitLength uint64) int64 {
	size := bitLength / 8
	if bitLength%8 != 0 {
		size++
	}
	return int64(size)
}

// Create sizes and allocates an empty filter for elemCount items at errRate.
// The allocator is charged HeaderSize plus the storage.
func Create(alloc memory.Allocator, elemCount int64, errRate float64) (*Filter, error) {
	bitLength, hashTimes, err := Params(elemCount, errRate)
	if err != nil {
		return nil, err
	}
	return New(alloc, hashTimes, bitLength)
}

// New allocates an empty filter with explicit parameters.
func New(alloc memory.Allocator, hashTimes int, bitLength uint64) (*Filter, error) {
	if hashTimes < 1 || bitLength < 1 {
		return nil, ErrInvalidParams
	}
	if bitLength > MaxBitLength {
		return nil, memory.ErrOutOfMemory
	}
	if err := alloc.Reserve(HeaderSize); err != nil {
		return nil, err
	}
	bits, err := alloc.Alloc(StorageBytes(bitLength))
	if err != nil {
		alloc.Release(HeaderSize)
		return nil, err
	}
	return &Filter{
		hashTimes: hashTimes,
		bitLength: bitLength,
		bits:      bits,
		alloc:     alloc,
	}, nil
}

// Add sets the probe bits of every item. Returns the number of items
// processed, not the number of bits that changed.
func (f *Filter) Add(items ...[]byte) int {
	for _, item := range items {
		a, b := hash.ProbeSeeds(item)
		for j := 0; j < f.hashTimes; j++ {
			f.setBit(hash.Position(a, b, uint64(j), f.bitLength))
		}
	}
	return len(items)
}

// Check reports whether item may have been added. A false result is exact.
func (f *Filter) Check(item []byte) bool {
	a, b := hash.ProbeSeeds(item)
	for j := 0; j < f.hashTimes; j++ {
		if !f.testBit(hash.Position(a, b, uint64(j), f.bitLength)) {
			return false
		}
	}
	return true
}

// Destroy returns the storage to the allocator. The filter must not be used
// afterwards.
func (f *Filter) Destroy() {
	if f.bits != nil {
		f.alloc.Free(f.bits)
		f.alloc.Release(HeaderSize)
		f.bits = nil
	}
}

// Get the number of hash rounds.
func (f *Filter) HashTimes() int {
	return f.hashTimes
}

// Get the number of addressable bits.
func (f *Filter) BitLength() uint64 {
	return f.bitLength
}

// Get the storage size in bytes.
func (f *Filter) Size() int64 {
	return int64(len(f.bits))
}

// Bytes returns the packed storage itself, not a copy.
func (f *Filter) Bytes() []byte {
	return f.bits
}

func (f *Filter) setBit(pos uint64) {
	f.bits[pos>>3] |= 1 << (pos % 8)
}

func (f *Filter) testBit(pos uint64) bool {
	return f.bits[pos>>3]&(1<<(pos%8)) != 0
}

// BitSet returns a copy of the storage as a bitset whose bit i is bit i of
// the filter.
func (f *Filter) BitSet() *bitset.BitSet {
	words := make([]uint64, (len(f.bits)+7)/8)
	for i, c := range f.bits {
		words[i/8] |= uint64(c) << (8 * uint(i%8))
	}
	return bitset.From(words)
}
