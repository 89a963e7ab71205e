// Package memory provides the allocator that filter storage and registry
// nodes are charged against. Allocation can fail, which lets callers surface
// ErrOutOfMemory instead of crashing the process.
package memory

import (
	"errors"
	"sync"
)

// ErrOutOfMemory is returned when an allocation cannot be satisfied.
var ErrOutOfMemory = errors.New("not enough memory")

// Largest single allocation ever attempted, regardless of budget. A size
// read from untrusted input must never reach the runtime allocator unchecked.
const MaxAlloc int64 = 1 << 32

// Allocator hands out zero-filled buffers and tracks what is in use.
type Allocator interface {
	// Alloc returns a zero-filled buffer of n bytes.
	Alloc(n int64) ([]byte, error)
	// Free returns a buffer obtained from Alloc.
	Free(buf []byte)
	// Reserve charges n bytes without handing out a buffer.
	Reserve(n int64) error
	// Release refunds a previous Reserve.
	Release(n int64)
}

// Budget is an Allocator with an upper bound on bytes in use.
type Budget struct {
	mtx   sync.Mutex
	limit int64 // 0 means unbounded (up to MaxAlloc per call)
	used  int64
}

// NewBudget creates a budget of limit bytes. A limit <= 0 disables the bound.
func NewBudget(limit int64) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

// Unlimited returns an allocator with no budget.
func Unlimited() *Budget {
	return NewBudget(0)
}

// Alloc implements Allocator.
func (b *Budget) Alloc(n int64) ([]byte, error) {
	if err := b.Reserve(n); err != nil {
		return nil, err
	}
	return make([]byte, n), nil
}

// Free implements Allocator.
func (b *Budget) Free(buf []byte) {
	b.Release(int64(len(buf)))
}

// Reserve implements Allocator.
func (b *Budget) Reserve(n int64) error {
	if n < 0 || n > MaxAlloc {
		return ErrOutOfMemory
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if b.limit > 0 && b.used+n > b.limit {
		return ErrOutOfMemory
	}
	b.used += n
	return nil
}

// Release implements Allocator.
func (b *Budget) Release(n int64) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.used -= n
	if b.used < 0 {
		b.used = 0
	}
}

// Used returns the number of bytes currently charged.
func (b *Budget) Used() int64 {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.used
}

// Limit returns the configured limit, 0 if unbounded.
func (b *Budget) Limit() int64 {
	return b.limit
}
